// internal/protocol/factory.go
package protocol

import (
	"errors"
	"fmt"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

// portHandle is the subset of a serial port the transport drives. Read must
// return within roughly readPollInterval when no data arrives.
type portHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// inputResetter is implemented by handles that can drop unread input.
type inputResetter interface {
	ResetInputBuffer() error
}

const (
	readPollInterval = 50 * time.Millisecond
	// termios VTIME has 100 ms granularity
	termiosPollMillis = 100
)

// openPort is overridden in tests.
var openPort = openBackend

func openBackend(cfg LinkConfig) (portHandle, error) {
	switch cfg.Backend {
	case BackendTarm:
		return openTarm(cfg)
	case BackendJacobsa:
		return openJacobsa(cfg)
	default:
		return openBugst(cfg)
	}
}

func openBugst(cfg LinkConfig) (portHandle, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}

	switch cfg.StopBits {
	case StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, describeOpenError(cfg.Port, err)
	}

	if err := port.SetReadTimeout(readPollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

// describeOpenError turns go.bug.st port error codes into operator-facing
// messages.
func describeOpenError(port string, err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return fmt.Errorf("failed to open serial port %s: %w", port, err)
	}

	switch portErr.Code() {
	case serial.PortBusy:
		return fmt.Errorf("serial port %s is busy: %w", port, err)
	case serial.PortNotFound:
		return fmt.Errorf("serial port %s not found: %w", port, err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied opening serial port %s: %w", port, err)
	case serial.InvalidSerialPort:
		return fmt.Errorf("%s is not a serial port: %w", port, err)
	case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
		return fmt.Errorf("serial port %s rejected the line settings: %w", port, err)
	default:
		return fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
}

// tarmPort adds input discarding on top of tarm's Flush.
type tarmPort struct {
	*tarm.Port
}

var _ inputResetter = tarmPort{}

// ResetInputBuffer flushes with TCIOFLUSH, so tarm drops the output queue as
// well as unread input. Bytes still queued from a write that timed out are
// lost; only the bugst backend discards input alone.
func (p tarmPort) ResetInputBuffer() error {
	return p.Flush()
}

func openTarm(cfg LinkConfig) (portHandle, error) {
	c := &tarm.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		ReadTimeout: termiosPollMillis * time.Millisecond,
		Size:        byte(cfg.DataBits),
	}

	switch cfg.Parity {
	case ParityOdd:
		c.Parity = tarm.ParityOdd
	case ParityEven:
		c.Parity = tarm.ParityEven
	case ParityMark:
		c.Parity = tarm.ParityMark
	case ParitySpace:
		c.Parity = tarm.ParitySpace
	default:
		c.Parity = tarm.ParityNone
	}

	switch cfg.StopBits {
	case StopBitsOnePointFive:
		c.StopBits = tarm.Stop1Half
	case StopBitsTwo:
		c.StopBits = tarm.Stop2
	default:
		c.StopBits = tarm.Stop1
	}

	p, err := tarm.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	return tarmPort{Port: p}, nil
}

func openJacobsa(cfg LinkConfig) (portHandle, error) {
	opts := jserial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              uint(cfg.BaudRate),
		DataBits:              uint(cfg.DataBits),
		InterCharacterTimeout: termiosPollMillis,
		MinimumReadSize:       0,
	}

	switch cfg.Parity {
	case ParityNone:
		opts.ParityMode = jserial.PARITY_NONE
	case ParityOdd:
		opts.ParityMode = jserial.PARITY_ODD
	case ParityEven:
		opts.ParityMode = jserial.PARITY_EVEN
	default:
		return nil, fmt.Errorf("jacobsa backend does not support %s parity", cfg.Parity)
	}

	switch cfg.StopBits {
	case StopBitsOne:
		opts.StopBits = 1
	case StopBitsTwo:
		opts.StopBits = 2
	default:
		return nil, fmt.Errorf("jacobsa backend does not support %s stop bits", cfg.StopBits)
	}

	rwc, err := jserial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	return rwc, nil
}
