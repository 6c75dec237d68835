// internal/handler/event_bus.go
package handler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"vx4-service/internal/model"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan model.ControllerEvent
	all         []chan model.ControllerEvent
	events      chan model.ControllerEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
	done        chan struct{}
	startOnce   sync.Once
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.ControllerEvent),
		events:      make(chan model.ControllerEvent, 1000),
		logger:      logger.With(zap.String("component", "event-bus")),
		done:        make(chan struct{}),
	}
}

// Start distributes published events until ctx is done. It returns
// immediately; a second call is a no-op.
func (eb *EventBus) Start(ctx context.Context) {
	eb.startOnce.Do(func() {
		go func() {
			defer close(eb.done)
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-eb.events:
					eb.distributeEvent(event)
				}
			}
		}()
	})
}

// Wait blocks until the distribution loop has exited.
func (eb *EventBus) Wait() {
	<-eb.done
}

// Publish publishes an event. It never blocks the caller.
func (eb *EventBus) Publish(event model.ControllerEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.ControllerEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.ControllerEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// SubscribeAll subscribes to every event
func (eb *EventBus) SubscribeAll() <-chan model.ControllerEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.ControllerEvent, 100)
	eb.all = append(eb.all, subscriber)
	return subscriber
}

// Unsubscribe removes and closes a subscription channel.
func (eb *EventBus) Unsubscribe(sub <-chan model.ControllerEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	remove := func(list []chan model.ControllerEvent) []chan model.ControllerEvent {
		for i, ch := range list {
			if ch == sub {
				close(ch)
				return append(list[:i], list[i+1:]...)
			}
		}
		return list
	}

	eb.all = remove(eb.all)
	for t, list := range eb.subscribers {
		eb.subscribers[t] = remove(list)
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.ControllerEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	deliver := func(subscriber chan model.ControllerEvent) {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}

	for _, subscriber := range eb.subscribers[event.EventType] {
		deliver(subscriber)
	}
	for _, subscriber := range eb.all {
		deliver(subscriber)
	}
}
