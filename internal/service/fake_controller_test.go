package service

import (
	"context"
	"sync"

	"vx4-service/internal/model"
	"vx4-service/internal/protocol"
)

// fakeController serves values from maps; a missing station times out.
type fakeController struct {
	mu        sync.Mutex
	connected bool
	pv        map[int]float64
	sv        map[int]float64
	setErr    error
	reads     int
}

func newFakeController() *fakeController {
	return &fakeController{
		connected: true,
		pv:        map[int]float64{1: 20.0, 2: 21.5},
		sv:        map[int]float64{1: 25.0, 2: 30.0},
	}
}

func (f *fakeController) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeController) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeController) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeController) lookup(table map[int]float64, station int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if station < 0 || station > 99 {
		return 0, &protocol.Error{Op: "read", Kind: protocol.ErrInvalidStation}
	}
	if !f.connected {
		return 0, &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
	}
	v, ok := table[station]
	if !ok {
		return 0, &protocol.Error{Op: "read", Kind: protocol.ErrTimeout}
	}
	return v, nil
}

func (f *fakeController) ReadPV(_ context.Context, station int) (float64, error) {
	return f.lookup(f.pv, station)
}

func (f *fakeController) ReadSV(_ context.Context, station int) (float64, error) {
	return f.lookup(f.sv, station)
}

func (f *fakeController) SetSV(_ context.Context, station int, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
	}
	if f.setErr != nil {
		return f.setErr
	}
	f.sv[station] = value
	return nil
}

func (f *fakeController) Stats() protocol.ProtocolStats {
	return protocol.ProtocolStats{IsConnected: f.IsConnected()}
}

func (f *fakeController) Link() protocol.LinkConfig {
	return protocol.LinkConfig{Port: "/dev/ttyUSB0", BaudRate: 9600}.WithDefaults()
}

func (f *fakeController) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ControllerEvent
}

func (r *recordingPublisher) Publish(e model.ControllerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
