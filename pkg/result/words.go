package result

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/teslashibe/go-snapbooth/pkg/frame"
)

// DefaultWords is the stock word list.
var DefaultWords = []string{"Érable", "Frêne", "Chêne", "Banji"}

// ErrNoWords is returned when a RandomWord is built without words.
var ErrNoWords = errors.New("result: word list is empty")

// RandomWord picks a word uniformly at random, ignoring the frame.
type RandomWord struct {
	words []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomWord creates a producer over words seeded with seed. The same
// seed yields the same sequence of picks.
func NewRandomWord(words []string, seed int64) (*RandomWord, error) {
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	return &RandomWord{
		words: append([]string(nil), words...),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Words returns a copy of the word list.
func (w *RandomWord) Words() []string {
	return append([]string(nil), w.words...)
}

// Produce implements Producer.
func (w *RandomWord) Produce(_ context.Context, _ *frame.Frame) (Result, error) {
	w.mu.Lock()
	i := w.rng.Intn(len(w.words))
	w.mu.Unlock()
	return Result{Label: w.words[i], Kind: Word}, nil
}

// Close implements Producer.
func (w *RandomWord) Close() error { return nil }
