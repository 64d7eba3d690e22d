package model

import (
	"context"
	"image"
	"sync"
	"time"
)

// Mock implements Model for testing.
type Mock struct {
	// InfoValue is returned by Info.
	InfoValue Info

	// InferFunc is called when Infer is invoked.
	InferFunc func(ctx context.Context, img image.Image) (*Output, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock classifier over labels that always returns
// scores.
func NewMock(labels []string, scores map[string]float64) *Mock {
	return &Mock{
		InfoValue: Info{Name: "mock", Labels: labels, InputWidth: 96, InputHeight: 96, Channels: 3},
		InferFunc: func(ctx context.Context, img image.Image) (*Output, error) {
			return &Output{Classification: scores}, nil
		},
	}
}

// Info returns InfoValue.
func (m *Mock) Info() Info {
	return m.InfoValue
}

// Infer calls InferFunc and records the call.
func (m *Mock) Infer(ctx context.Context, img image.Image) (*Output, error) {
	m.record("Infer")
	if m.InferFunc != nil {
		return m.InferFunc(ctx, img)
	}
	return &Output{}, nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of calls to method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
