package handler

import (
	"context"
	"sync"

	"vx4-service/internal/protocol"
)

// fakeController answers reads from maps. Stations listed in errs fail with
// the given error; other unknown stations time out.
type fakeController struct {
	mu        sync.Mutex
	connected bool
	pv        map[int]float64
	sv        map[int]float64
	errs      map[int]error
}

func newFakeController() *fakeController {
	return &fakeController{
		connected: true,
		pv:        map[int]float64{1: 20.0, 2: 21.5},
		sv:        map[int]float64{1: 25.0, 2: 30.0},
		errs:      map[int]error{},
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

func (f *fakeController) check(op string, station int) error {
	if station < 0 || station > 99 {
		return &protocol.Error{Op: op, Kind: protocol.ErrInvalidStation}
	}
	if !f.connected {
		return &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
	}
	return f.errs[station]
}

func (f *fakeController) read(op string, table map[int]float64, station int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(op, station); err != nil {
		return 0, err
	}
	v, ok := table[station]
	if !ok {
		return 0, &protocol.Error{Op: op, Kind: protocol.ErrTimeout}
	}
	return v, nil
}

func (f *fakeController) ReadPV(_ context.Context, station int) (float64, error) {
	return f.read("read_pv", f.pv, station)
}

func (f *fakeController) ReadSV(_ context.Context, station int) (float64, error) {
	return f.read("read_sv", f.sv, station)
}

func (f *fakeController) SetSV(_ context.Context, station int, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("set_sv", station); err != nil {
		return err
	}
	f.sv[station] = value
	return nil
}

func (f *fakeController) setErr(station int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[station] = err
}

func (f *fakeController) svOf(station int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sv[station]
}

func (f *fakeController) Stats() protocol.ProtocolStats {
	return protocol.ProtocolStats{IsConnected: f.IsConnected()}
}

func (f *fakeController) Link() protocol.LinkConfig {
	return protocol.LinkConfig{Port: "/dev/ttyUSB0", BaudRate: 9600}.WithDefaults()
}
