// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// PortScanner lists the serial ports present on the host.
type PortScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredPort, error)
}

// DiscoveredPort represents a serial port found on the host
type DiscoveredPort struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
	Configured   bool   `json:"configured"`
}

// EnumeratorScanner scans with go.bug.st/serial/enumerator.
type EnumeratorScanner struct {
	logger *zap.Logger
	list   func() ([]*enumerator.PortDetails, error)
}

// NewEnumeratorScanner creates a scanner over the host's serial ports
func NewEnumeratorScanner(logger *zap.Logger) *EnumeratorScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnumeratorScanner{
		logger: logger.With(zap.String("scanner", "serial")),
		list:   enumerator.GetDetailedPortsList,
	}
}

// Scan lists the ports ordered by name.
func (s *EnumeratorScanner) Scan(ctx context.Context) ([]*DiscoveredPort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	ports := make([]*DiscoveredPort, 0, len(details))
	for _, d := range details {
		ports = append(ports, &DiscoveredPort{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          strings.ToUpper(d.VID),
			PID:          strings.ToUpper(d.PID),
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })

	s.logger.Info("Serial scan completed", zap.Int("ports_found", len(ports)))
	return ports, nil
}
