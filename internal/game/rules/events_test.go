package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	bought := 0
	sold := 0

	handle := bus.SubscribeTyped(EventSharesBought, func(e Event) {
		bought++
	})
	bus.SubscribeTyped(EventSharesSold, func(e Event) {
		sold += e.Amount
	})

	bus.Publish(NewEvent(EventSharesBought, "p1", "PRR"))
	bus.Publish(NewEventWithAmount(EventSharesSold, "p1", "PRR", 20))
	assert.Equal(t, 1, bought)
	assert.Equal(t, 20, sold)

	bus.Unsubscribe(handle)
	bus.Publish(NewEvent(EventSharesBought, "p2", "PRR"))
	assert.Equal(t, 1, bought, "unsubscribed listener must not fire")
}

func TestEventBusSubscribeAllPreservesOrder(t *testing.T) {
	bus := NewEventBus()

	var seen []string
	bus.Subscribe(func(e Event) { seen = append(seen, "first:"+string(e.Type)) })
	bus.Subscribe(func(e Event) { seen = append(seen, "second:"+string(e.Type)) })

	bus.Publish(NewEvent(EventRoundStarted, "", ""))
	bus.Publish(NewEvent(EventPhaseChanged, "", ""))

	assert.Equal(t, []string{
		"first:ROUND_STARTED",
		"second:ROUND_STARTED",
		"first:PHASE_CHANGED",
		"second:PHASE_CHANGED",
	}, seen)
}

func TestEventBusIgnoresNilListeners(t *testing.T) {
	bus := NewEventBus()
	assert.Equal(t, -1, bus.Subscribe(nil))
	assert.Equal(t, -1, bus.SubscribeTyped(EventGameEnded, nil))
	assert.NotPanics(t, func() { bus.Publish(NewEvent(EventGameEnded, "", "")) })
}
