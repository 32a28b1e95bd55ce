package event_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/pkg/event"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.Listen("order.status_updated", func(_ context.Context, p any) { got = append(got, "a:"+p.(string)) })
	bus.Listen("order.status_updated", func(_ context.Context, p any) { got = append(got, "b:"+p.(string)) })
	bus.Listen("other", func(context.Context, any) { got = append(got, "never") })

	bus.Fire(context.Background(), "order.status_updated", "x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestFireAsyncSurvivesPanics(t *testing.T) {
	bus := event.NewBus()
	var calls atomic.Int32
	bus.Listen("e", func(context.Context, any) { panic("boom") })
	bus.Listen("e", func(context.Context, any) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	bus.FireAsync(ctx, "e", nil)
	cancel()
	bus.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
