package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process bus for tests and single-node development.
// Handlers run on their own goroutine, matching the asynchronous delivery
// of the redis bus.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	closed   bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, event *Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	handlers := make([]Handler, len(b.handlers[channel]))
	copy(handlers, b.handlers[channel])
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			h(context.WithoutCancel(ctx), event)
		}()
	}
	return nil
}

func (b *MemoryBus) Subscribe(channel, label string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = append(b.handlers[channel], handler)
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

// Wait blocks until every in-flight handler has returned.
func (b *MemoryBus) Wait() {
	b.wg.Wait()
}
