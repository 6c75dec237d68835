// internal/protocol/protocol.go
package protocol

import (
	"context"
	"time"
)

// Transport owns the physical channel and runs one command/response
// exchange at a time.
type Transport interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Transact writes cmd and returns the next response line with trailing
	// whitespace and control bytes removed, using the link's timeouts.
	Transact(ctx context.Context, cmd []byte) (string, error)
	TransactWithTimeout(ctx context.Context, cmd []byte, readTimeout, writeTimeout time.Duration) (string, error)

	// Diagnostics
	Link() LinkConfig
	Stats() ProtocolStats
}

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	TimeoutCount   int64         `json:"timeout_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}
