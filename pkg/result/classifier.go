package result

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
	"github.com/teslashibe/go-snapbooth/pkg/model"
)

// Classifier produces the best-scoring label of a model.
type Classifier struct {
	model  model.Model
	logger *slog.Logger
}

// NewClassifier wraps m. The classifier owns m and closes it.
func NewClassifier(m model.Model) *Classifier {
	return &Classifier{model: m, logger: log.Component("classifier")}
}

// Model returns the wrapped model.
func (c *Classifier) Model() model.Model { return c.model }

// Produce implements Producer. Model errors and panics come back as the
// Failed sentinel together with an error wrapping model.ErrInference.
// Detection output comes back as the Unsupported sentinel with
// model.ErrUnsupportedOutput.
func (c *Classifier) Produce(ctx context.Context, f *frame.Frame) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = FailedResult()
			err = fmt.Errorf("%w: panic: %v", model.ErrInference, p)
		}
	}()

	out, err := c.model.Infer(ctx, f)
	if err != nil {
		return FailedResult(), fmt.Errorf("%w: %w", model.ErrInference, err)
	}
	if out == nil {
		return NoResult(), nil
	}

	switch {
	case out.Classification != nil:
		return Best(out.Classification, c.model.Info().Labels), nil
	case out.BoundingBoxes != nil:
		c.logger.Debug("detection output", "boxes", len(out.BoundingBoxes))
		return UnsupportedResult(), model.ErrUnsupportedOutput
	default:
		return NoResult(), nil
	}
}

// Close closes the model.
func (c *Classifier) Close() error {
	return c.model.Close()
}

// Best returns the label with the highest score. Labels are scanned in
// order, then any scored label missing from order in natural order
// ("class_2" before "class_10"); the
// comparison is strict, so the first of several equal maxima wins. When
// nothing scores above zero the result is NoMatch.
func Best(scores map[string]float64, order []string) Result {
	best := NoMatchResult()
	high := 0.0

	consider := func(label string) {
		s, ok := scores[label]
		if ok && s > high {
			high = s
			best = Result{Label: label, Score: s, Scored: true, Kind: Classified}
		}
	}

	seen := make(map[string]bool, len(order))
	for _, label := range order {
		if seen[label] {
			continue
		}
		seen[label] = true
		consider(label)
	}

	var rest []string
	for label := range scores {
		if !seen[label] {
			rest = append(rest, label)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return naturalLess(rest[i], rest[j]) })
	for _, label := range rest {
		consider(label)
	}
	return best
}

// naturalLess orders labels that share a prefix by their numeric suffix,
// and everything else as plain strings.
func naturalLess(a, b string) bool {
	pa, na, oka := splitIndex(a)
	pb, nb, okb := splitIndex(b)
	if oka && okb && pa == pb && na != nb {
		return na < nb
	}
	return a < b
}

// splitIndex splits "class_12" into "class_" and 12.
func splitIndex(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
