// internal/driver/hanyoung/vx4_driver.go
package hanyoung

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vx4-service/internal/protocol"
)

// Operation names used in errors and logs
const (
	OpReadPV            = "read_pv"
	OpReadSV            = "read_sv"
	OpSetSV             = "set_sv"
	opNameReadRegister  = "read_register"
	opNameWriteRegister = "write_register"
)

// VX4Driver talks to Hanyoung NUX VX4 temperature controllers sharing one
// serial link. The transport is owned by the driver.
type VX4Driver struct {
	transport protocol.Transport
	logger    *zap.Logger
}

// NewVX4Driver creates a driver over a closed transport.
func NewVX4Driver(transport protocol.Transport, logger *zap.Logger) *VX4Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VX4Driver{
		transport: transport,
		logger: logger.With(
			zap.String("driver", "hanyoung-vx4"),
			zap.String("port", transport.Link().Port),
		),
	}
}

// Connect opens the link. Connecting twice is harmless.
func (d *VX4Driver) Connect(ctx context.Context) error {
	if err := d.transport.Open(ctx); err != nil {
		d.logger.Error("Failed to connect to VX4 controller", zap.Error(err))
		return err
	}
	d.logger.Info("Connected to VX4 controller")
	return nil
}

// Disconnect closes the link.
func (d *VX4Driver) Disconnect() error {
	if err := d.transport.Close(); err != nil {
		d.logger.Error("Failed to disconnect from VX4 controller", zap.Error(err))
		return err
	}
	d.logger.Info("Disconnected from VX4 controller")
	return nil
}

// IsConnected reports whether the link is open.
func (d *VX4Driver) IsConnected() bool {
	return d.transport.IsOpen()
}

// Stats exposes the transport counters.
func (d *VX4Driver) Stats() protocol.ProtocolStats {
	return d.transport.Stats()
}

// Link returns the serial link parameters.
func (d *VX4Driver) Link() protocol.LinkConfig {
	return d.transport.Link()
}

// ReadPV reads the process value of station. A nil error is the only
// indication that the value is a real measurement.
func (d *VX4Driver) ReadPV(ctx context.Context, station int) (float64, error) {
	return d.readTenths(ctx, OpReadPV, station, RegisterPV)
}

// ReadSV reads the set-point of station.
func (d *VX4Driver) ReadSV(ctx context.Context, station int) (float64, error) {
	return d.readTenths(ctx, OpReadSV, station, RegisterSV)
}

// ReadRegister reads any D-register as tenths.
func (d *VX4Driver) ReadRegister(ctx context.Context, station int, reg Register) (float64, error) {
	return d.readTenths(ctx, opNameReadRegister, station, reg)
}

// SetSV writes the set-point of station. It succeeds only when the
// controller acknowledges with OK.
func (d *VX4Driver) SetSV(ctx context.Context, station int, value float64) error {
	raw, err := EncodeTenths(value)
	if err != nil {
		return d.fault(OpSetSV, station, "", err)
	}
	if DecodeTenths(uint32(raw)) != value {
		d.logger.Debug("Set-point adjusted to device resolution",
			zap.Int("station", station),
			zap.Float64("requested", value),
			zap.Float64("sent", DecodeTenths(uint32(raw))),
		)
	}
	return d.writeWord(ctx, OpSetSV, station, RegisterSV, raw)
}

// WriteRegister writes a raw word to any D-register.
func (d *VX4Driver) WriteRegister(ctx context.Context, station int, reg Register, raw uint16) error {
	return d.writeWord(ctx, opNameWriteRegister, station, reg, raw)
}

func (d *VX4Driver) readTenths(ctx context.Context, op string, station int, reg Register) (float64, error) {
	cmd, err := ReadFrame(station, reg).Encode()
	if err != nil {
		return 0, d.fault(op, station, "", err)
	}

	start := time.Now()
	resp, err := d.transport.Transact(ctx, cmd)
	if err != nil {
		return 0, d.fault(op, station, "", err)
	}

	rec, err := ParseResponse(resp)
	if err != nil {
		return 0, d.fault(op, station, resp, err)
	}
	value, err := rec.Tenths()
	if err != nil {
		return 0, d.fault(op, station, resp, err)
	}

	d.logger.Debug("Register read",
		zap.String("operation", op),
		zap.Int("station", station),
		zap.String("register", string(reg)),
		zap.Float64("value", value),
		zap.Duration("duration", time.Since(start)),
	)
	return value, nil
}

func (d *VX4Driver) writeWord(ctx context.Context, op string, station int, reg Register, raw uint16) error {
	cmd, err := WriteFrame(station, reg, raw).Encode()
	if err != nil {
		return d.fault(op, station, "", err)
	}

	resp, err := d.transport.Transact(ctx, cmd)
	if err != nil {
		return d.fault(op, station, "", err)
	}
	if !IsAcknowledged(resp) {
		return d.fault(op, station, resp, protocol.ErrRejected)
	}

	d.logger.Info("Register written",
		zap.String("operation", op),
		zap.Int("station", station),
		zap.String("register", string(reg)),
		zap.String("word", fmt.Sprintf("%04X", raw)),
	)
	return nil
}

// fault classifies err, logs it with the operation context and returns it.
func (d *VX4Driver) fault(op string, station int, resp string, err error) error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		err = fmt.Errorf("%s station %02d: %w", op, station, err)
	} else {
		err = &protocol.Error{
			Op:       fmt.Sprintf("%s station %02d", op, station),
			Kind:     kindFor(err),
			Err:      err,
			Response: resp,
		}
	}

	d.logger.Error("VX4 operation failed",
		zap.String("operation", op),
		zap.Int("station", station),
		zap.String("kind", protocol.KindOf(err)),
		zap.String("response", resp),
		zap.Error(err),
	)
	return err
}

var driverKinds = []error{
	protocol.ErrInvalidStation,
	protocol.ErrInvalidValue,
	protocol.ErrMalformedResponse,
	protocol.ErrDecodeFailure,
	protocol.ErrRejected,
}

func kindFor(err error) error {
	for _, k := range driverKinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return protocol.ErrIO
}
