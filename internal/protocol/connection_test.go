package protocol

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseParity(t *testing.T) {
	tests := []struct {
		in      string
		want    Parity
		wantErr bool
	}{
		{"none", ParityNone, false},
		{"N", ParityNone, false},
		{"Even", ParityEven, false},
		{"o", ParityOdd, false},
		{"4", ParitySpace, false},
		{" mark ", ParityMark, false},
		{"5", ParityNone, true},
		{"weird", ParityNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParity(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseParity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStopBitsCodes(t *testing.T) {
	cases := map[int]StopBits{1: StopBitsOne, 2: StopBitsTwo, 3: StopBitsOnePointFive}
	for code, want := range cases {
		got, err := StopBitsFromCode(code)
		if err != nil || got != want {
			t.Errorf("StopBitsFromCode(%d) = %v, %v", code, got, err)
		}
	}
	if _, err := StopBitsFromCode(0); err == nil {
		t.Errorf("expected error for code 0")
	}

	sb, err := ParseStopBits("1.5")
	if err != nil || sb != StopBitsOnePointFive {
		t.Errorf("ParseStopBits(1.5) = %v, %v", sb, err)
	}
	if sb.String() != "1.5" {
		t.Errorf("String() = %s", sb.String())
	}
}

func TestLinkConfigWithDefaults(t *testing.T) {
	link := LinkConfig{Port: "COM3", BaudRate: 9600}.WithDefaults()

	if link.ReadTimeout != DefaultReadTimeout || link.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("timeouts not defaulted: %+v", link)
	}
	if link.SettleInterval != 150*time.Millisecond {
		t.Errorf("settle interval = %v", link.SettleInterval)
	}
	if link.LineDelimiter != '\n' || link.DataBits != 8 || link.Backend != BackendBugst {
		t.Errorf("unexpected defaults: %+v", link)
	}
	if err := link.Validate(); err != nil {
		t.Errorf("defaulted link invalid: %v", err)
	}
}

func TestLinkConfigValidate(t *testing.T) {
	valid := LinkConfig{Port: "/dev/ttyUSB0", BaudRate: 9600}.WithDefaults()

	tests := []struct {
		name   string
		mutate func(*LinkConfig)
		errMsg string
	}{
		{"empty port", func(c *LinkConfig) { c.Port = "" }, "port name"},
		{"bad baud", func(c *LinkConfig) { c.BaudRate = 9601 }, "baud rate"},
		{"data bits", func(c *LinkConfig) { c.DataBits = 9 }, "data bits"},
		{"parity", func(c *LinkConfig) { c.Parity = Parity(9) }, "parity"},
		{"stop bits", func(c *LinkConfig) { c.StopBits = StopBits(7) }, "stop bits"},
		{"negative read timeout", func(c *LinkConfig) { c.ReadTimeout = -time.Second }, "read timeout"},
		{"backend", func(c *LinkConfig) { c.Backend = "usb" }, "backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := newError("read", ErrTimeout, errors.New("no response line within 1s"))
	err.Response = "OK,01"

	if !errors.Is(err, ErrTimeout) || errors.Is(err, ErrIO) {
		t.Fatalf("kind matching broken")
	}
	if KindOf(err) != "TIMEOUT" {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	want := `read: timeout: no response line within 1s (response "OK,01")`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	if KindOf(nil) != "" || KindOf(errors.New("other")) != "UNKNOWN" {
		t.Fatalf("KindOf fallbacks broken")
	}
	if got := newError("transact", ErrNotConnected, nil).Error(); got != "transact: not connected" {
		t.Fatalf("Error() = %q", got)
	}
}
