// Package result turns a frozen frame into something to show on screen:
// a random word, or a model's best label and its score.
package result

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-snapbooth/pkg/frame"
)

// Kind classifies a Result.
type Kind int

const (
	// Word is a pick from a word list. It has no score.
	Word Kind = iota
	// Classified is a model label with its score.
	Classified
	// NoMatch means no label scored above zero.
	NoMatch
	// Unsupported means the model produced bounding boxes.
	Unsupported
	// Failed means inference failed.
	Failed
	// Empty means the model returned neither classes nor boxes.
	Empty
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Classified:
		return "classified"
	case NoMatch:
		return "no_match"
	case Unsupported:
		return "unsupported"
	case Failed:
		return "failed"
	case Empty:
		return "empty"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel labels shown in place of a real result.
const (
	NoMatchLabel     = "No match found"
	UnsupportedLabel = "Bounding box not handled"
	FailedLabel      = "Error"
	NoResultLabel    = "No result"
)

// Result is one displayable outcome. Score is meaningful only when
// Scored is set.
type Result struct {
	Label  string
	Score  float64
	Scored bool
	Kind   Kind
}

// IsSentinel reports whether r is a placeholder rather than a real result.
func (r Result) IsSentinel() bool {
	return r.Kind != Word && r.Kind != Classified
}

func (r Result) String() string {
	if r.Scored {
		return fmt.Sprintf("%s (%.2f)", r.Label, r.Score)
	}
	return r.Label
}

// NoMatchResult is shown when no label scored above zero. It carries the
// zero score so it renders like a classification.
func NoMatchResult() Result {
	return Result{Label: NoMatchLabel, Scored: true, Kind: NoMatch}
}

// UnsupportedResult is shown for object-detection output.
func UnsupportedResult() Result {
	return Result{Label: UnsupportedLabel, Kind: Unsupported}
}

// FailedResult is shown when inference fails.
func FailedResult() Result {
	return Result{Label: FailedLabel, Kind: Failed}
}

// NoResult is shown when the model output is empty.
func NoResult() Result {
	return Result{Label: NoResultLabel, Kind: Empty}
}

// Producer produces a result from a frozen frame.
type Producer interface {
	// Produce returns the result for f. When it returns an error the
	// Result is still displayable (a sentinel).
	Produce(ctx context.Context, f *frame.Frame) (Result, error)

	// Close releases resources held by the producer.
	Close() error
}
