package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Fan copies every value read from input to each subscriber, in order. A slow
// subscriber slows them all down.
type Fan[T any] struct {
	name    string
	size    int
	mu      sync.Mutex
	input   <-chan T
	outputs map[string]chan T
	closed  bool
}

func NewFan[T any](name string, input <-chan T, size int) *Fan[T] {
	return &Fan[T]{
		name:    name,
		size:    size,
		input:   input,
		outputs: make(map[string]chan T),
	}
}

func (f *Fan[T]) Subscribe(client string) (<-chan T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.outputs[client]; ok {
		return nil, fmt.Errorf("client already subscribed to %s: %s", f.name, client)
	}
	c := make(chan T, f.size)
	if f.closed {
		close(c)
		return c, nil
	}
	slog.Debug("subscribing to fan", "fan", f.name, "client", client, "module", "router")
	f.outputs[client] = c
	return c, nil
}

func (f *Fan[T]) Unsubscribe(client string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.outputs[client]
	if !ok {
		return fmt.Errorf("client not subscribed to %s: %s", f.name, client)
	}
	slog.Debug("unsubscribing from fan", "fan", f.name, "client", client, "module", "router")
	close(c)
	delete(f.outputs, client)
	return nil
}

// Run blocks until input is closed or ctx is done, then closes every subscriber
// channel. A subscriber that stops reading holds up delivery until ctx is done.
func (f *Fan[T]) Run(ctx context.Context) error {
	defer f.closeAll()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("fan cancelled", "fan", f.name, "module", "router")
			return nil
		case v, ok := <-f.input:
			if !ok {
				slog.Debug("fan input closed", "fan", f.name, "module", "router")
				return nil
			}
			if !f.send(ctx, v) {
				slog.Debug("fan cancelled", "fan", f.name, "module", "router")
				return nil
			}
		}
	}
}

func (f *Fan[T]) send(ctx context.Context, v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.outputs {
		select {
		case ch <- v:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (f *Fan[T]) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for client, ch := range f.outputs {
		close(ch)
		delete(f.outputs, client)
	}
	f.closed = true
}
