package sdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	ctx := context.Background()

	var got []any
	unsubscribe := bus.Subscribe("plugin.activated", func(ctx context.Context, payload any) {
		got = append(got, payload)
	})
	var other []any
	bus.Subscribe("plugin.deactivated", func(ctx context.Context, payload any) {
		other = append(other, payload)
	})

	bus.Publish(ctx, "plugin.activated", "chat")
	bus.Publish(ctx, "plugin.activated", "billing")
	assert.Equal(t, []any{"chat", "billing"}, got)
	assert.Empty(t, other)

	unsubscribe()
	unsubscribe()
	bus.Publish(ctx, "plugin.activated", "ignored")
	assert.Len(t, got, 2)
}

func TestEventBus_DeliveryOrder(t *testing.T) {
	bus := NewEventBus()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.Subscribe("topic", func(ctx context.Context, payload any) { order = append(order, i) })
	}

	bus.Publish(context.Background(), "topic", nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}
