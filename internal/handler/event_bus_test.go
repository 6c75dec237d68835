package handler

import (
	"context"
	"testing"
	"time"

	"vx4-service/internal/model"
)

func receive(t *testing.T, ch <-chan model.ControllerEvent) model.ControllerEvent {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
	return model.ControllerEvent{}
}

func TestEventBusDeliversByType(t *testing.T) {
	bus := NewEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	readings := bus.Subscribe(model.EventReading)
	all := bus.SubscribeAll()

	bus.Publish(model.NewEvent(model.EventSetpointChanged, 1, model.SeverityInfo, nil))
	bus.Publish(model.NewEvent(model.EventReading, 2, model.SeverityInfo, nil))

	if e := receive(t, all); e.EventType != model.EventSetpointChanged {
		t.Fatalf("all: first event %s", e.EventType)
	}
	if e := receive(t, all); e.EventType != model.EventReading {
		t.Fatalf("all: second event %s", e.EventType)
	}
	e := receive(t, readings)
	if e.EventType != model.EventReading || !e.ForStation(2) {
		t.Fatalf("typed subscriber got %+v", e)
	}
	select {
	case extra := <-readings:
		t.Fatalf("typed subscriber got unrelated event %s", extra.EventType)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	sub := bus.SubscribeAll()
	bus.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatalf("channel still open")
	}
	// publishing after unsubscribe must not panic
	bus.Publish(model.NewEvent(model.EventReading, 1, model.SeverityInfo, nil))
	time.Sleep(10 * time.Millisecond)
}

func TestEventBusPublishNeverBlocks(t *testing.T) {
	bus := NewEventBus(nil) // not started, queue fills

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2000; i++ {
			bus.Publish(model.NewEvent(model.EventReading, 1, model.SeverityInfo, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full queue")
	}
}

func TestEventBusStopsWithContext(t *testing.T) {
	bus := NewEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)
	cancel()

	waited := make(chan struct{})
	go func() {
		bus.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatalf("bus loop did not exit")
	}
}
