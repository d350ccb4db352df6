package backplane

import (
	"context"
	"sync"
)

// fakeTransport is an in-memory Transport used by unit tests in this
// package. Delivery is synchronous and immediate.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string][]func(string)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string][]func(string))}
}

func (f *fakeTransport) Publish(_ context.Context, channel string, payload string) error {
	f.mu.Lock()
	handlers := append([]func(string){}, f.handlers[channel]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
	return nil
}

func (f *fakeTransport) Subscribe(_ context.Context, channel string, handler func(string)) (func() error, error) {
	f.mu.Lock()
	f.handlers[channel] = append(f.handlers[channel], handler)
	idx := len(f.handlers[channel]) - 1
	f.mu.Unlock()

	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[channel][idx] = func(string) {}
		return nil
	}, nil
}
