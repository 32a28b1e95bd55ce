// Package event is an in-process publish/subscribe bus. Services fire
// domain events (an order changed status) and adapters such as the
// websocket hub listen without the two knowing about each other.
package event

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Bus dispatches named events to their listeners.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Listen registers h for name.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) listeners(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

// Fire runs every listener synchronously, in registration order.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	for _, h := range b.listeners(name) {
		b.call(ctx, name, h, payload)
	}
}

// FireAsync runs listeners in their own goroutines and returns at once.
// ctx is detached from cancellation: the request that fired the event is
// usually finished before the listeners run.
func (b *Bus) FireAsync(ctx context.Context, name string, payload any) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.listeners(name) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			b.call(ctx, name, h, payload)
		}(h)
	}
}

// Wait blocks until every async listener started so far has returned.
func (b *Bus) Wait() { b.wg.Wait() }

// call isolates a panicking listener from the others and from the caller.
func (b *Bus) call(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event: listener panicked",
				"event", name, "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	h(ctx, payload)
}
