// internal/service/monitor_service.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"vx4-service/internal/utils"
)

// MonitorService periodically reads PV and SV of the configured stations
// through the controller service, keeping its latest-reading table fresh.
type MonitorService struct {
	controller *ControllerService
	interval   time.Duration
	stations   []int
	logger     *utils.ServiceLogger

	running atomic.Bool
	rounds  atomic.Int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewMonitorService creates a poller. A zero interval disables polling.
func NewMonitorService(controller *ControllerService, interval time.Duration, logger *zap.Logger) *MonitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MonitorService{
		controller: controller,
		interval:   interval,
		stations:   controller.Stations(),
		logger:     utils.NewServiceLogger(logger, "monitor-service"),
	}
	controller.SetPollingStatus(m.IsRunning)
	return m
}

// Start launches the polling loop. It returns false when polling is
// disabled or already running.
func (m *MonitorService) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interval <= 0 || len(m.stations) == 0 || m.running.Load() {
		return false
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.running.Store(true)
	m.wg.Add(1)
	go m.loop(ctx)

	m.logger.Info("Station monitoring started",
		zap.Duration("interval", m.interval),
		zap.Ints("stations", m.stations),
	)
	return true
}

// Stop ends the polling loop and waits for an in-flight round.
func (m *MonitorService) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("Station monitoring stopped", zap.Int64("rounds", m.rounds.Load()))
}

// IsRunning reports whether the polling loop is active.
func (m *MonitorService) IsRunning() bool {
	return m.running.Load()
}

// Rounds returns the number of completed polling rounds.
func (m *MonitorService) Rounds() int64 {
	return m.rounds.Load()
}

func (m *MonitorService) loop(ctx context.Context) {
	defer m.wg.Done()
	defer m.running.Store(false)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PollOnce(ctx)
		}
	}
}

// PollOnce reads every configured station once. Stations are skipped while
// the link is closed.
func (m *MonitorService) PollOnce(ctx context.Context) {
	if !m.controller.IsConnected() {
		m.logger.Debug("Controller not connected, skipping poll")
		return
	}

	failures := 0
	for _, station := range m.stations {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.controller.ReadPV(ctx, station); err != nil {
			failures++
		}
		if _, err := m.controller.ReadSV(ctx, station); err != nil {
			failures++
		}
	}

	m.rounds.Inc()
	if failures > 0 {
		m.logger.Warn("Poll round finished with failures",
			zap.Int("failures", failures),
			zap.Int("stations", len(m.stations)),
		)
	}
}
