// internal/service/controller_service.go
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vx4-service/internal/config"
	"vx4-service/internal/model"
	"vx4-service/internal/protocol"
	"vx4-service/internal/utils"
)

// Controller is the protocol controller the service drives.
// *hanyoung.VX4Driver implements it.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	ReadPV(ctx context.Context, station int) (float64, error)
	ReadSV(ctx context.Context, station int) (float64, error)
	SetSV(ctx context.Context, station int, value float64) error
	Stats() protocol.ProtocolStats
	Link() protocol.LinkConfig
}

// EventPublisher receives controller events.
type EventPublisher interface {
	Publish(event model.ControllerEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.ControllerEvent) {}

// ControllerService handles controller business logic: connection
// lifecycle, reads and set-point writes, and the latest-reading table.
type ControllerService struct {
	controller Controller
	publisher  EventPublisher
	config     *config.ControllerConfig
	logger     *utils.ServiceLogger

	mu     sync.RWMutex
	latest map[int]*model.StationSnapshot

	pollingFn func() bool
}

// NewControllerService creates a new controller service instance
func NewControllerService(
	controller Controller,
	publisher EventPublisher,
	cfg *config.ControllerConfig,
	logger *zap.Logger,
) *ControllerService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if cfg == nil {
		cfg = &config.ControllerConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ControllerService{
		controller: controller,
		publisher:  publisher,
		config:     cfg,
		logger:     utils.NewServiceLogger(logger, "controller-service"),
		latest:     make(map[int]*model.StationSnapshot),
	}
}

// Connect opens the serial link
func (cs *ControllerService) Connect(ctx context.Context) error {
	err := cs.controller.Connect(ctx)
	utils.LogConnection(cs.logger.Logger, "connect", err)
	if err != nil {
		cs.publisher.Publish(model.NewEvent(model.EventTransactionFailed, -1, model.SeverityError, map[string]interface{}{
			"operation":  "connect",
			"error":      err.Error(),
			"error_kind": protocol.KindOf(err),
		}))
		return err
	}

	cs.publisher.Publish(model.NewEvent(model.EventControllerConnected, -1, model.SeverityInfo, map[string]interface{}{
		"port": cs.controller.Link().Port,
	}))
	return nil
}

// Disconnect closes the serial link
func (cs *ControllerService) Disconnect(ctx context.Context) error {
	err := cs.controller.Disconnect()
	utils.LogConnection(cs.logger.Logger, "disconnect", err)
	if err != nil {
		return err
	}

	cs.publisher.Publish(model.NewEvent(model.EventControllerDisconnected, -1, model.SeverityInfo, map[string]interface{}{
		"port": cs.controller.Link().Port,
	}))
	return nil
}

// IsConnected reports whether the link is open
func (cs *ControllerService) IsConnected() bool {
	return cs.controller.IsConnected()
}

// ReadPV reads the process value of station. The returned reading is never
// nil; when err is non-nil it carries no value.
func (cs *ControllerService) ReadPV(ctx context.Context, station int) (*model.Reading, error) {
	return cs.read(ctx, station, model.QuantityPV, cs.controller.ReadPV)
}

// ReadSV reads the set-point of station.
func (cs *ControllerService) ReadSV(ctx context.Context, station int) (*model.Reading, error) {
	return cs.read(ctx, station, model.QuantitySV, cs.controller.ReadSV)
}

func (cs *ControllerService) read(
	ctx context.Context,
	station int,
	q model.Quantity,
	fn func(context.Context, int) (float64, error),
) (*model.Reading, error) {
	ctx, cancel := cs.operationContext(ctx)
	defer cancel()

	stationLogger := utils.NewStationLogger(cs.logger.Logger, cs.controller.Link().Port, station)

	start := time.Now()
	value, err := fn(ctx, station)
	reading := model.NewReading(station, q, value, err, time.Since(start))
	stationLogger.LogReading(string(q), value, time.Since(start), err)

	if !protocol.IsInvalidRequest(err) {
		cs.store(reading)
	}

	if err != nil {
		cs.publishFailure(station, "read_"+string(q), err)
		return reading, err
	}

	cs.publisher.Publish(model.NewEvent(model.EventReading, station, model.SeverityInfo, map[string]interface{}{
		"quantity": q,
		"value":    value,
	}))
	return reading, nil
}

// SetSV writes the set-point of station. It succeeds only when the
// controller acknowledges the write.
func (cs *ControllerService) SetSV(ctx context.Context, station int, value float64) error {
	ctx, cancel := cs.operationContext(ctx)
	defer cancel()

	opLogger := utils.NewOperationLogger(cs.logger.Logger, "set_sv", uuid.NewString())
	opLogger.Start(zap.Int("station", station), zap.Float64("value", value))

	err := cs.controller.SetSV(ctx, station, value)
	utils.NewStationLogger(cs.logger.Logger, cs.controller.Link().Port, station).LogSetpoint(value, err)
	if err != nil {
		opLogger.Error(err, zap.Int("station", station), zap.String("error_kind", protocol.KindOf(err)))
		cs.publishFailure(station, "set_sv", err)
		return err
	}

	opLogger.Success(zap.Int("station", station))
	cs.publisher.Publish(model.NewEvent(model.EventSetpointChanged, station, model.SeverityInfo, map[string]interface{}{
		"value": value,
	}))
	return nil
}

func (cs *ControllerService) publishFailure(station int, op string, err error) {
	cs.publisher.Publish(model.NewEvent(model.EventTransactionFailed, station, model.SeverityWarning, map[string]interface{}{
		"operation":  op,
		"error":      err.Error(),
		"error_kind": protocol.KindOf(err),
	}))
}

func (cs *ControllerService) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if cs.config.OperationTimeout > 0 {
		return context.WithTimeout(ctx, cs.config.OperationTimeout)
	}
	return context.WithCancel(ctx)
}

func (cs *ControllerService) store(r *model.Reading) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	snap, ok := cs.latest[r.Station]
	if !ok {
		snap = &model.StationSnapshot{Station: r.Station}
		cs.latest[r.Station] = snap
	}
	switch r.Quantity {
	case model.QuantityPV:
		snap.PV = r
	case model.QuantitySV:
		snap.SV = r
	}
	snap.UpdatedAt = r.Timestamp
}

// Snapshot returns the latest readings kept for station.
func (cs *ControllerService) Snapshot(station int) (model.StationSnapshot, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	snap, ok := cs.latest[station]
	if !ok {
		return model.StationSnapshot{Station: station}, false
	}
	return *snap, true
}

// Snapshots returns the latest readings of the configured stations and of
// any other station read since startup, ordered by address.
func (cs *ControllerService) Snapshots() []model.StationSnapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	seen := make(map[int]bool)
	var out []model.StationSnapshot
	add := func(station int) {
		if seen[station] {
			return
		}
		seen[station] = true
		if snap, ok := cs.latest[station]; ok {
			out = append(out, *snap)
		} else {
			out = append(out, model.StationSnapshot{Station: station})
		}
	}

	for _, station := range cs.config.Stations {
		add(station)
	}
	for station := range cs.latest {
		add(station)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out
}

// Stations returns the configured station addresses.
func (cs *ControllerService) Stations() []int {
	return append([]int(nil), cs.config.Stations...)
}

// SetPollingStatus lets the monitor report whether it is running.
func (cs *ControllerService) SetPollingStatus(fn func() bool) {
	cs.pollingFn = fn
}

// Status describes the link and transport counters.
func (cs *ControllerService) Status() *model.ControllerStatus {
	status := &model.ControllerStatus{
		Connected:    cs.controller.IsConnected(),
		Link:         cs.controller.Link(),
		Stats:        cs.controller.Stats(),
		Stations:     cs.Stations(),
		PollInterval: cs.config.PollInterval.String(),
	}
	if cs.pollingFn != nil {
		status.Polling = cs.pollingFn()
	}
	return status
}
