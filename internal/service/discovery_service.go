// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vx4-service/internal/discovery"
	"vx4-service/internal/protocol"
	"vx4-service/internal/utils"
)

const (
	defaultScanTimeout = 300 * time.Millisecond
	maxScanStations    = 100
)

// DiscoveryService finds serial ports on the host and controllers on the
// configured link.
type DiscoveryService struct {
	scanner    discovery.PortScanner
	controller Controller
	logger     *utils.ServiceLogger
}

// ScanRequest selects the station addresses to scan
type ScanRequest struct {
	From    int           `json:"from"`
	To      int           `json:"to"`
	Timeout time.Duration `json:"timeout"`
}

// ScanResult is the outcome of scanning one station address
type ScanResult struct {
	Station   int      `json:"station"`
	Responded bool     `json:"responded"`
	PV        *float64 `json:"pv,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(scanner discovery.PortScanner, controller Controller, logger *zap.Logger) *DiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryService{
		scanner:    scanner,
		controller: controller,
		logger:     utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// ScanPorts lists the host's serial ports and flags the configured one.
func (ds *DiscoveryService) ScanPorts(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	ports, err := ds.scanner.Scan(ctx)
	if err != nil {
		ds.logger.Error("Port scan failed", zap.Error(err))
		return nil, err
	}

	configured := ds.controller.Link().Port
	for _, p := range ports {
		p.Configured = p.Name == configured
	}
	return ports, nil
}

// ScanStations reads PV from each address in [From, To] with a short
// timeout and reports which ones answered. The link must be open.
func (ds *DiscoveryService) ScanStations(ctx context.Context, req *ScanRequest) ([]ScanResult, error) {
	if req.From < 0 || req.To > 99 || req.From > req.To {
		return nil, fmt.Errorf("%w: scan range %d..%d", protocol.ErrInvalidStation, req.From, req.To)
	}
	if req.To-req.From+1 > maxScanStations {
		return nil, fmt.Errorf("%w: scan range too large", protocol.ErrInvalidStation)
	}
	if !ds.controller.IsConnected() {
		return nil, &protocol.Error{Op: "scan_stations", Kind: protocol.ErrNotConnected}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}

	results := make([]ScanResult, 0, req.To-req.From+1)
	for station := req.From; station <= req.To; station++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		scanCtx, cancel := context.WithTimeout(ctx, timeout)
		pv, err := ds.controller.ReadPV(scanCtx, station)
		cancel()

		result := ScanResult{Station: station, Responded: err == nil}
		switch {
		case err == nil:
			result.PV = &pv
		case errors.Is(err, protocol.ErrNotConnected):
			return results, err
		default:
			result.ErrorKind = protocol.KindOf(err)
		}
		results = append(results, result)
	}

	found := 0
	for _, r := range results {
		if r.Responded {
			found++
		}
	}
	ds.logger.Info("Station scan completed",
		zap.Int("from", req.From),
		zap.Int("to", req.To),
		zap.Int("responding", found),
	)
	return results, nil
}
