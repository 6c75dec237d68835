package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type interval struct {
	start, end time.Time
	data       []byte
}

// mockPort is an in-memory device. respond is called for every completed
// write and its result becomes readable input.
type mockPort struct {
	mu         sync.Mutex
	respond    func(cmd []byte) []byte
	pending    []byte
	writes     []interval
	writeDelay time.Duration
	readErr    error
	resets     int
	closed     bool

	active  int
	overlap bool
}

func newMockPort(respond func(cmd []byte) []byte) *mockPort {
	return &mockPort{respond: respond}
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("mock: port closed")
	}
	m.active++
	if m.active > 1 {
		m.overlap = true
	}
	delay := m.writeDelay
	m.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		time.Sleep(delay)
	}
	cp := append([]byte(nil), p...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.writes = append(m.writes, interval{start: start, end: time.Now(), data: cp})
	if m.respond != nil {
		m.pending = append(m.pending, m.respond(cp)...)
	}
	return len(p), nil
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("mock: port closed")
	}
	if len(m.pending) == 0 {
		m.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		return 0, nil
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *mockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.pending = nil
	return nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// reopen models the device node being opened again after Close.
func (m *mockPort) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	m.pending = nil
}

func (m *mockPort) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockPort) setWriteDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeDelay = d
}

func (m *mockPort) setReadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *mockPort) preload(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, b...)
}

func (m *mockPort) recordedWrites() []interval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interval(nil), m.writes...)
}

func testLink() LinkConfig {
	return LinkConfig{
		Port:           "mock",
		BaudRate:       9600,
		DataBits:       8,
		Parity:         ParityNone,
		StopBits:       StopBitsOne,
		ReadTimeout:    200 * time.Millisecond,
		WriteTimeout:   200 * time.Millisecond,
		SettleInterval: time.Millisecond,
	}
}

// openMock swaps the port opener for the lifetime of the test.
func openMock(t *testing.T, mp *mockPort) *int {
	t.Helper()
	opens := 0
	prev := openPort
	openPort = func(LinkConfig) (portHandle, error) {
		opens++
		mp.reopen()
		return mp, nil
	}
	t.Cleanup(func() { openPort = prev })
	return &opens
}

func newOpenConnection(t *testing.T, mp *mockPort) *SerialConnection {
	t.Helper()
	openMock(t, mp)
	sc := NewSerialConnection(testLink(), nil, nil)
	if err := sc.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func (m *mockPort) overlapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlap
}
