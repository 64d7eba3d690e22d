package result

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/teslashibe/go-snapbooth/pkg/frame"
	"github.com/teslashibe/go-snapbooth/pkg/model"
)

func TestRandomWord_Deterministic(t *testing.T) {
	a, err := NewRandomWord(DefaultWords, 42)
	if err != nil {
		t.Fatalf("NewRandomWord: %v", err)
	}
	b, _ := NewRandomWord(DefaultWords, 42)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		ra, _ := a.Produce(ctx, frame.Black(2, 2))
		rb, _ := b.Produce(ctx, frame.Black(2, 2))
		if ra != rb {
			t.Fatalf("pick %d: %q != %q with the same seed", i, ra.Label, rb.Label)
		}
		if ra.Kind != Word || ra.Scored {
			t.Errorf("pick %d: got %+v, want an unscored word", i, ra)
		}
	}
}

func TestRandomWord_PicksFromList(t *testing.T) {
	w, _ := NewRandomWord([]string{"a", "b", "c"}, 7)
	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		r, err := w.Produce(context.Background(), nil)
		if err != nil {
			t.Fatalf("Produce: %v", err)
		}
		seen[r.Label]++
	}
	if len(seen) != 3 {
		t.Errorf("expected all three words over 300 picks, got %v", seen)
	}
	for label := range seen {
		if label != "a" && label != "b" && label != "c" {
			t.Errorf("unexpected word %q", label)
		}
	}
}

func TestRandomWord_Empty(t *testing.T) {
	if _, err := NewRandomWord(nil, 1); !errors.Is(err, ErrNoWords) {
		t.Errorf("got %v, want ErrNoWords", err)
	}
}

func TestBest(t *testing.T) {
	order := []string{"Chêne", "Érable", "Frêne"}

	tests := []struct {
		name   string
		scores map[string]float64
		order  []string
		want   Result
	}{
		{
			name:   "clear winner",
			scores: map[string]float64{"Chêne": 0.1, "Érable": 0.8, "Frêne": 0.1},
			order:  order,
			want:   Result{Label: "Érable", Score: 0.8, Scored: true, Kind: Classified},
		},
		{
			name:   "tie keeps first in order",
			scores: map[string]float64{"Chêne": 0.2, "Érable": 0.4, "Frêne": 0.4},
			order:  order,
			want:   Result{Label: "Érable", Score: 0.4, Scored: true, Kind: Classified},
		},
		{
			name:   "tie follows the given order",
			scores: map[string]float64{"Chêne": 0.2, "Érable": 0.4, "Frêne": 0.4},
			order:  []string{"Frêne", "Érable", "Chêne"},
			want:   Result{Label: "Frêne", Score: 0.4, Scored: true, Kind: Classified},
		},
		{
			name:   "all zero",
			scores: map[string]float64{"Chêne": 0, "Érable": 0},
			order:  order,
			want:   NoMatchResult(),
		},
		{
			name:   "empty map",
			scores: map[string]float64{},
			order:  order,
			want:   NoMatchResult(),
		},
		{
			name:   "labels without order are sorted",
			scores: map[string]float64{"b": 0.5, "a": 0.5},
			want:   Result{Label: "a", Score: 0.5, Scored: true, Kind: Classified},
		},
		{
			name:   "unlabelled outputs tie in index order",
			scores: map[string]float64{"class_10": 0.5, "class_2": 0.5, "class_1": 0.1},
			want:   Result{Label: "class_2", Score: 0.5, Scored: true, Kind: Classified},
		},
		{
			name:   "index order past nine",
			scores: map[string]float64{"class_11": 0.7, "class_9": 0.7, "class_100": 0.7},
			want:   Result{Label: "class_9", Score: 0.7, Scored: true, Kind: Classified},
		},
		{
			name:   "ordered labels win ties over extras",
			scores: map[string]float64{"a": 0.5, "z": 0.5},
			order:  []string{"z"},
			want:   Result{Label: "z", Score: 0.5, Scored: true, Kind: Classified},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				if got := Best(tc.scores, tc.order); got != tc.want {
					t.Fatalf("run %d: got %+v, want %+v", i, got, tc.want)
				}
			}
		})
	}
}

func TestClassifier_Produce(t *testing.T) {
	labels := []string{"cat", "dog"}

	tests := []struct {
		name     string
		infer    func(ctx context.Context, img image.Image) (*model.Output, error)
		wantKind Kind
		wantErr  error
	}{
		{
			name: "classification",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				return &model.Output{Classification: map[string]float64{"cat": 0.3, "dog": 0.7}}, nil
			},
			wantKind: Classified,
		},
		{
			name: "bounding boxes",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				return &model.Output{BoundingBoxes: []model.BoundingBox{{Label: "cat", Score: 0.9}}}, nil
			},
			wantKind: Unsupported,
			wantErr:  model.ErrUnsupportedOutput,
		},
		{
			name: "detection with no boxes",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				return &model.Output{BoundingBoxes: []model.BoundingBox{}}, nil
			},
			wantKind: Unsupported,
			wantErr:  model.ErrUnsupportedOutput,
		},
		{
			name: "empty output",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				return &model.Output{}, nil
			},
			wantKind: Empty,
		},
		{
			name: "inference error",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				return nil, errors.New("runner died")
			},
			wantKind: Failed,
			wantErr:  model.ErrInference,
		},
		{
			name: "panic",
			infer: func(ctx context.Context, img image.Image) (*model.Output, error) {
				panic("index out of range")
			},
			wantKind: Failed,
			wantErr:  model.ErrInference,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := model.NewMock(labels, nil)
			m.InferFunc = tc.infer
			c := NewClassifier(m)

			got, err := c.Produce(context.Background(), frame.Black(4, 4))
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Produce: unexpected error %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Produce: got %v, want %v", err, tc.wantErr)
			}
			if got.Kind != tc.wantKind {
				t.Errorf("kind: got %v, want %v", got.Kind, tc.wantKind)
			}
			if got.Label == "" {
				t.Error("result must always carry a displayable label")
			}
		})
	}
}

func TestClassifier_PassesFrame(t *testing.T) {
	f := frame.Black(3, 2)
	m := model.NewMock([]string{"x"}, nil)
	m.InferFunc = func(ctx context.Context, img image.Image) (*model.Output, error) {
		if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
			t.Errorf("model got %v, want the frozen frame", img.Bounds())
		}
		return &model.Output{Classification: map[string]float64{"x": 1}}, nil
	}

	c := NewClassifier(m)
	if _, err := c.Produce(context.Background(), f); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if m.CallCount("Infer") != 1 {
		t.Errorf("Infer calls: got %d, want 1", m.CallCount("Infer"))
	}

	c.Close()
	if m.CallCount("Close") != 1 {
		t.Errorf("Close should close the model")
	}
}

func TestResult_String(t *testing.T) {
	r := Result{Label: "cat", Score: 0.876, Scored: true, Kind: Classified}
	if got := r.String(); got != "cat (0.88)" {
		t.Errorf("got %q", got)
	}
	if got := FailedResult().String(); got != FailedLabel {
		t.Errorf("got %q", got)
	}
	if !FailedResult().IsSentinel() || r.IsSentinel() {
		t.Error("IsSentinel mismatch")
	}
}
