package hanyoung

import (
	"context"
	"sync"
	"time"

	"vx4-service/internal/protocol"
)

// fakeTransport answers each command through handle and records what was
// sent.
type fakeTransport struct {
	mu     sync.Mutex
	open   bool
	sent   []string
	handle func(cmd string) (string, error)
}

func newFakeTransport(handle func(cmd string) (string, error)) *fakeTransport {
	return &fakeTransport{open: true, handle: handle}
}

func (f *fakeTransport) Open(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Transact(ctx context.Context, cmd []byte) (string, error) {
	return f.TransactWithTimeout(ctx, cmd, 0, 0)
}

func (f *fakeTransport) TransactWithTimeout(_ context.Context, cmd []byte, _, _ time.Duration) (string, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return "", &protocol.Error{Op: "transact", Kind: protocol.ErrNotConnected}
	}
	f.sent = append(f.sent, string(cmd))
	handle := f.handle
	f.mu.Unlock()
	return handle(string(cmd))
}

func (f *fakeTransport) Link() protocol.LinkConfig {
	return protocol.LinkConfig{Port: "fake", BaudRate: 9600}.WithDefaults()
}

func (f *fakeTransport) Stats() protocol.ProtocolStats {
	return protocol.ProtocolStats{IsConnected: f.IsOpen()}
}

func (f *fakeTransport) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func answer(resp string) func(string) (string, error) {
	return func(string) (string, error) { return resp, nil }
}
