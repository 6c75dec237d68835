// internal/driver/hanyoung/command.go
package hanyoung

import (
	"bytes"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"vx4-service/internal/protocol"
)

// Frame control bytes
const (
	STX byte = 0x02
	CR  byte = 0x0D
	LF  byte = 0x0A
)

// Opcode is the three letter PC-LINK command.
type Opcode string

const (
	OpReadRegister  Opcode = "DRS" // D-register read
	OpWriteRegister Opcode = "DWS" // D-register write
)

// Register is a 4 hex digit D-register number.
type Register string

const (
	RegisterPV Register = "0000"
	RegisterSV Register = "0103"
)

const (
	MaxStation = 99
	// every command addresses a single word
	wordCount = "01"
	maxTenths = math.MaxUint16
)

var tenthsScale = decimal.NewFromInt(10)

// Frame is one command to a controller.
type Frame struct {
	Station  int
	Opcode   Opcode
	Register Register
	Value    *uint16
}

// ReadFrame builds a DRS frame for one register.
func ReadFrame(station int, reg Register) Frame {
	return Frame{Station: station, Opcode: OpReadRegister, Register: reg}
}

// WriteFrame builds a DWS frame setting reg to raw.
func WriteFrame(station int, reg Register, raw uint16) Frame {
	return Frame{Station: station, Opcode: OpWriteRegister, Register: reg, Value: &raw}
}

// Validate checks the station address and register code.
func (f Frame) Validate() error {
	if err := ValidateStation(f.Station); err != nil {
		return err
	}
	if !isRegister(f.Register) {
		return fmt.Errorf("%w: register %q is not 4 upper-case hex digits", protocol.ErrInvalidValue, f.Register)
	}
	switch f.Opcode {
	case OpReadRegister:
		if f.Value != nil {
			return fmt.Errorf("%w: %s carries no value", protocol.ErrInvalidValue, f.Opcode)
		}
	case OpWriteRegister:
		if f.Value == nil {
			return fmt.Errorf("%w: %s requires a value", protocol.ErrInvalidValue, f.Opcode)
		}
	default:
		return fmt.Errorf("%w: unknown opcode %q", protocol.ErrInvalidValue, f.Opcode)
	}
	return nil
}

// Encode renders STX addr OPCODE,01,REG[,VALUE] CR LF.
func (f Frame) Encode() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(STX)
	fmt.Fprintf(&buf, "%02d%s,%s,%s", f.Station, f.Opcode, wordCount, f.Register)
	if f.Value != nil {
		fmt.Fprintf(&buf, ",%04X", *f.Value)
	}
	buf.WriteByte(CR)
	buf.WriteByte(LF)
	return buf.Bytes(), nil
}

// ValidateStation rejects addresses that do not fit two decimal digits.
func ValidateStation(station int) error {
	if station < 0 || station > MaxStation {
		return fmt.Errorf("%w: %d not in 0..%d", protocol.ErrInvalidStation, station, MaxStation)
	}
	return nil
}

// EncodeTenths converts an engineering value to the device's tenths fixed
// point: round(v*10), clamped to 0..0xFFFF.
func EncodeTenths(v float64) (uint16, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", protocol.ErrInvalidValue, v)
	}

	d := decimal.NewFromFloat(v).Mul(tenthsScale).Round(0)
	if d.Sign() < 0 {
		return 0, nil
	}
	if d.GreaterThan(decimal.NewFromInt(maxTenths)) {
		return maxTenths, nil
	}
	return uint16(d.IntPart()), nil
}

// DecodeTenths converts a raw register word to its engineering value.
func DecodeTenths(raw uint32) float64 {
	f, _ := decimal.New(int64(raw), -1).Float64()
	return f
}

func isRegister(r Register) bool {
	if len(r) != 4 {
		return false
	}
	for _, c := range []byte(r) {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
