// internal/protocol/connection.go
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultReadTimeout    = time.Second
	DefaultWriteTimeout   = time.Second
	DefaultSettleInterval = 150 * time.Millisecond
	DefaultLineDelimiter  = '\n'
)

// Backend names a serial library used to reach the port.
type Backend string

const (
	BackendBugst   Backend = "bugst"
	BackendTarm    Backend = "tarm"
	BackendJacobsa Backend = "jacobsa"
)

// Parity of the asynchronous link.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

var parityNames = map[Parity]string{
	ParityNone:  "none",
	ParityOdd:   "odd",
	ParityEven:  "even",
	ParityMark:  "mark",
	ParitySpace: "space",
}

func (p Parity) String() string {
	if name, ok := parityNames[p]; ok {
		return name
	}
	return "parity(" + strconv.Itoa(int(p)) + ")"
}

func (p Parity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Parity) UnmarshalText(text []byte) error {
	v, err := ParseParity(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseParity accepts a parity name ("none", "odd", ...) or the legacy
// numeric code (0=none .. 4=space).
func ParseParity(s string) (Parity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range parityNames {
		if s == name || s == name[:1] {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(ParityNone) && n <= int(ParitySpace) {
		return Parity(n), nil
	}
	return ParityNone, fmt.Errorf("invalid parity %q", s)
}

// StopBits of the asynchronous link.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

func (sb StopBits) String() string {
	switch sb {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	default:
		return "stopbits(" + strconv.Itoa(int(sb)) + ")"
	}
}

func (sb StopBits) MarshalText() ([]byte, error) {
	return []byte(sb.String()), nil
}

func (sb *StopBits) UnmarshalText(text []byte) error {
	v, err := ParseStopBits(string(text))
	if err != nil {
		return err
	}
	*sb = v
	return nil
}

// ParseStopBits accepts "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1", "one":
		return StopBitsOne, nil
	case "1.5", "onepointfive":
		return StopBitsOnePointFive, nil
	case "2", "two":
		return StopBitsTwo, nil
	default:
		return StopBitsOne, fmt.Errorf("invalid stop bits %q", s)
	}
}

// StopBitsFromCode maps the legacy settings-file code (1=one, 2=two,
// 3=one and a half) to StopBits.
func StopBitsFromCode(code int) (StopBits, error) {
	switch code {
	case 1:
		return StopBitsOne, nil
	case 2:
		return StopBitsTwo, nil
	case 3:
		return StopBitsOnePointFive, nil
	default:
		return StopBitsOne, fmt.Errorf("invalid stop bits code %d", code)
	}
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// LinkConfig represents the resolved serial link parameters. It is passed
// by value and never modified after the transport is built.
type LinkConfig struct {
	Port           string        `json:"port"`
	BaudRate       int           `json:"baud_rate"`
	Parity         Parity        `json:"parity"`
	DataBits       int           `json:"data_bits"`
	StopBits       StopBits      `json:"stop_bits"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	SettleInterval time.Duration `json:"settle_interval"`
	LineDelimiter  byte          `json:"line_delimiter"`
	Backend        Backend       `json:"backend"`
}

// WithDefaults fills zero timeouts, delimiter and backend.
func (c LinkConfig) WithDefaults() LinkConfig {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.SettleInterval == 0 {
		c.SettleInterval = DefaultSettleInterval
	}
	if c.LineDelimiter == 0 {
		c.LineDelimiter = DefaultLineDelimiter
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Backend == "" {
		c.Backend = BackendBugst
	}
	return c
}

// Validate checks the link parameters.
func (c LinkConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port name cannot be empty")
	}

	validBaud := false
	for _, b := range validBaudRates {
		if c.BaudRate == b {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate %d, must be one of: %v", c.BaudRate, validBaudRates)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be 5-8, got: %d", c.DataBits)
	}
	if _, ok := parityNames[c.Parity]; !ok {
		return fmt.Errorf("invalid parity value: %d", c.Parity)
	}
	if c.StopBits < StopBitsOne || c.StopBits > StopBitsTwo {
		return fmt.Errorf("invalid stop bits value: %d", c.StopBits)
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout cannot be negative: %v", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout cannot be negative: %v", c.WriteTimeout)
	}
	if c.SettleInterval < 0 {
		return fmt.Errorf("settle interval cannot be negative: %v", c.SettleInterval)
	}

	switch c.Backend {
	case BackendBugst, BackendTarm, BackendJacobsa:
	default:
		return fmt.Errorf("unsupported serial backend %q", c.Backend)
	}
	return nil
}
