// internal/model/reading.go
package model

import (
	"time"

	"vx4-service/internal/protocol"
)

// Quantity names a controller register exposed by the service.
type Quantity string

const (
	QuantityPV Quantity = "PV"
	QuantitySV Quantity = "SV"
)

// Reading is the outcome of one register read. Value is nil and Valid is
// false when the read failed; a failed read never carries a number.
type Reading struct {
	Station    int       `json:"station"`
	Quantity   Quantity  `json:"quantity"`
	Value      *float64  `json:"value"`
	Valid      bool      `json:"valid"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}

// NewReading builds a reading from a driver result.
func NewReading(station int, q Quantity, value float64, err error, duration time.Duration) *Reading {
	r := &Reading{
		Station:    station,
		Quantity:   q,
		Timestamp:  time.Now(),
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		r.Error = err.Error()
		r.ErrorKind = protocol.KindOf(err)
		return r
	}
	r.Value = &value
	r.Valid = true
	return r
}

// StationSnapshot holds the latest PV and SV seen for one station.
type StationSnapshot struct {
	Station   int       `json:"station"`
	PV        *Reading  `json:"pv,omitempty"`
	SV        *Reading  `json:"sv,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ControllerStatus describes the link and its counters.
type ControllerStatus struct {
	Connected    bool                   `json:"connected"`
	Link         protocol.LinkConfig    `json:"link"`
	Stats        protocol.ProtocolStats `json:"stats"`
	Stations     []int                  `json:"stations"`
	PollInterval string                 `json:"poll_interval"`
	Polling      bool                   `json:"polling"`
}
