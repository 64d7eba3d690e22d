package result

import (
	"context"
	"sync"

	"github.com/teslashibe/go-snapbooth/pkg/frame"
)

// Mock implements Producer for testing.
type Mock struct {
	// ProduceFunc is called when Produce is invoked.
	ProduceFunc func(ctx context.Context, f *frame.Frame) (Result, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu       sync.Mutex
	produced int
	closed   int
}

// Produce calls ProduceFunc and counts the call.
func (m *Mock) Produce(ctx context.Context, f *frame.Frame) (Result, error) {
	m.mu.Lock()
	m.produced++
	m.mu.Unlock()
	if m.ProduceFunc != nil {
		return m.ProduceFunc(ctx, f)
	}
	return Result{Label: "mock", Kind: Word}, nil
}

// Close calls CloseFunc and counts the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// ProduceCount returns the number of Produce calls.
func (m *Mock) ProduceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.produced
}

// CloseCount returns the number of Close calls.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
