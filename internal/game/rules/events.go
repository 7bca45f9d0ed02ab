package rules

import (
	"sync"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Round flow
	EventRoundStarted  EventType = "ROUND_STARTED"
	EventRoundFinished EventType = "ROUND_FINISHED"
	EventTurnStarted   EventType = "TURN_STARTED"
	EventPhaseChanged  EventType = "PHASE_CHANGED"
	EventGameEnded     EventType = "GAME_ENDED"

	// Stock events
	EventCorporationParred    EventType = "CORPORATION_PARRED"
	EventCorporationFloated   EventType = "CORPORATION_FLOATED"
	EventCorporationClosed    EventType = "CORPORATION_CLOSED"
	EventCorporationConverted EventType = "CORPORATION_CONVERTED"
	EventSharesBought         EventType = "SHARES_BOUGHT"
	EventSharesSold           EventType = "SHARES_SOLD"
	EventPresidentChanged     EventType = "PRESIDENT_CHANGED"
	EventReceivership         EventType = "RECEIVERSHIP"
	EventPriceMoved           EventType = "PRICE_MOVED"

	// Company events
	EventCompanyBought EventType = "COMPANY_BOUGHT"
	EventCompanySold   EventType = "COMPANY_SOLD"
	EventCompanyClosed EventType = "COMPANY_CLOSED"

	// Operating events
	EventTileLaid       EventType = "TILE_LAID"
	EventTokenPlaced    EventType = "TOKEN_PLACED"
	EventRoutesRun      EventType = "ROUTES_RUN"
	EventDividendPaid   EventType = "DIVIDEND_PAID"
	EventTrainBought    EventType = "TRAIN_BOUGHT"
	EventTrainsRusted   EventType = "TRAINS_RUSTED"
	EventTrainDiscarded EventType = "TRAIN_DISCARDED"
	EventTrainExported  EventType = "TRAIN_EXPORTED"
	EventLoanTaken      EventType = "LOAN_TAKEN"
	EventLoanPaid       EventType = "LOAN_PAID"
	EventBankrupt       EventType = "BANKRUPT"
	EventBankBroken     EventType = "BANK_BROKEN"
)

// Event carries information about something that happened while an action was
// applied. Sequence is the index of the action in the log.
type Event struct {
	Type     EventType
	EntityID string
	TargetID string
	Amount   int
	Sequence int
	Metadata map[string]string
}

// Listener receives events.
type Listener func(Event)

// TypedListener is a listener registered for one event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus dispatches game events synchronously in subscription order.
type EventBus struct {
	mu             sync.RWMutex
	nextHandle     int
	listeners      map[int]Listener
	order          []int
	typedListeners map[EventType][]TypedListener
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	bus.order = append(bus.order, handle)
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if _, ok := bus.listeners[handle]; ok {
		delete(bus.listeners, handle)
		for i, h := range bus.order {
			if h == handle {
				bus.order = append(bus.order[:i], bus.order[i+1:]...)
				break
			}
		}
		return
	}
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	listeners := make([]Listener, 0, len(bus.order))
	for _, h := range bus.order {
		listeners = append(listeners, bus.listeners[h])
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, entityID, targetID string) Event {
	return Event{
		Type:     eventType,
		EntityID: entityID,
		TargetID: targetID,
		Metadata: make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, entityID, targetID string, amount int) Event {
	evt := NewEvent(eventType, entityID, targetID)
	evt.Amount = amount
	return evt
}
