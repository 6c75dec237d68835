// internal/driver/hanyoung/response.go
package hanyoung

import (
	"fmt"
	"strconv"
	"strings"

	"vx4-service/internal/protocol"
)

const (
	fieldDelimiter = ","
	ackToken       = "OK"
	// status, echo, value
	minReadFields = 3
)

// Record is one response line split into its comma separated fields.
type Record struct {
	Raw    string
	Fields []string
}

// ParseResponse splits a response line. A leading STX is dropped.
func ParseResponse(line string) (Record, error) {
	trimmed := strings.TrimLeft(line, string(STX))
	if strings.TrimSpace(trimmed) == "" {
		return Record{Raw: line}, fmt.Errorf("%w: empty response", protocol.ErrMalformedResponse)
	}
	return Record{Raw: line, Fields: strings.Split(trimmed, fieldDelimiter)}, nil
}

// Status is the first field (station, command echo and status code).
func (r Record) Status() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0]
}

// ValueField returns the register word of a read response.
func (r Record) ValueField() (string, error) {
	if len(r.Fields) < minReadFields {
		return "", fmt.Errorf("%w: %d fields, want at least %d", protocol.ErrMalformedResponse, len(r.Fields), minReadFields)
	}
	return strings.TrimSpace(r.Fields[2]), nil
}

// Word decodes the register word as unsigned hex.
func (r Record) Word() (uint32, error) {
	field, err := r.ValueField()
	if err != nil {
		return 0, err
	}
	if field == "" {
		return 0, fmt.Errorf("%w: empty value field", protocol.ErrDecodeFailure)
	}
	n, err := strconv.ParseUint(field, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: value field %q: %v", protocol.ErrDecodeFailure, field, err)
	}
	return uint32(n), nil
}

// Tenths decodes the register word as an engineering value.
func (r Record) Tenths() (float64, error) {
	w, err := r.Word()
	if err != nil {
		return 0, err
	}
	return DecodeTenths(w), nil
}

// IsAcknowledged reports whether a write response carries OK.
func IsAcknowledged(line string) bool {
	return line != "" && strings.Contains(line, ackToken)
}
