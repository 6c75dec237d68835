// internal/protocol/serial_connection.go
package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const maxLineSize = 1024

const (
	opOpen     = "open"
	opClose    = "close"
	opTransact = "transact"
	opWrite    = "write"
	opRead     = "read"
)

// SerialConnection implements Transport over one serial port.
type SerialConnection struct {
	link    LinkConfig
	logger  *zap.Logger
	journal *zap.Logger

	// sem is the exclusive section: every exchange, Open and Close hold it.
	sem chan struct{}

	// guarded by sem
	handle  portHandle
	stalled <-chan error

	isOpen atomic.Bool
	stats  connStats
}

type connStats struct {
	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	operations   atomic.Int64
	errors       atomic.Int64
	timeouts     atomic.Int64
	lastActivity atomic.Time
	avgLatency   atomic.Duration
}

// NewSerialConnection creates a closed transport for link. journal receives
// one entry per exchange with the raw command and response; nil disables it.
func NewSerialConnection(link LinkConfig, logger, journal *zap.Logger) *SerialConnection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if journal == nil {
		journal = zap.NewNop()
	}

	link = link.WithDefaults()
	return &SerialConnection{
		link: link,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", link.Port),
		),
		journal: journal,
		sem:     make(chan struct{}, 1),
	}
}

func (sc *SerialConnection) acquire(ctx context.Context) error {
	select {
	case sc.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sc *SerialConnection) release() {
	<-sc.sem
}

// Open opens the serial port. It is a no-op when the port is already open.
func (sc *SerialConnection) Open(ctx context.Context) error {
	if err := sc.acquire(ctx); err != nil {
		return contextError(opOpen, err)
	}
	defer sc.release()

	if sc.isOpen.Load() {
		return nil
	}

	if err := sc.link.Validate(); err != nil {
		return newError(opOpen, ErrIO, fmt.Errorf("invalid link configuration: %w", err))
	}

	sc.logger.Info("Opening serial port",
		zap.Int("baud_rate", sc.link.BaudRate),
		zap.String("parity", sc.link.Parity.String()),
		zap.Int("data_bits", sc.link.DataBits),
		zap.String("stop_bits", sc.link.StopBits.String()),
		zap.String("backend", string(sc.link.Backend)),
	)

	h, err := openPort(sc.link)
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return newError(opOpen, ErrIO, err)
	}

	sc.handle = h
	sc.stalled = nil
	sc.isOpen.Store(true)
	sc.stats.lastActivity.Store(time.Now())

	sc.logger.Info("Serial port opened successfully")
	return nil
}

// Close closes the serial port. It waits for an exchange in progress and is
// safe to call on a closed transport.
func (sc *SerialConnection) Close() error {
	_ = sc.acquire(context.Background())
	defer sc.release()

	if !sc.isOpen.Load() {
		return nil
	}

	h := sc.handle
	sc.handle = nil
	sc.stalled = nil
	sc.isOpen.Store(false)

	if err := h.Close(); err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return newError(opClose, ErrIO, err)
	}

	sc.logger.Info("Serial port closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	return sc.isOpen.Load()
}

// Link returns the link parameters with defaults applied.
func (sc *SerialConnection) Link() LinkConfig {
	return sc.link
}

// Transact runs one exchange with the link's timeouts.
func (sc *SerialConnection) Transact(ctx context.Context, cmd []byte) (string, error) {
	return sc.TransactWithTimeout(ctx, cmd, sc.link.ReadTimeout, sc.link.WriteTimeout)
}

// TransactWithTimeout runs one exchange: discard stale input, write cmd,
// wait the settle interval, then read one delimited line. Callers are
// served in the order they enter the exclusive section. Zero timeouts fall
// back to the link's.
func (sc *SerialConnection) TransactWithTimeout(ctx context.Context, cmd []byte, readTimeout, writeTimeout time.Duration) (string, error) {
	if !sc.isOpen.Load() {
		return "", sc.fail(newError(opTransact, ErrNotConnected, nil), cmd)
	}

	if readTimeout <= 0 {
		readTimeout = sc.link.ReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = sc.link.WriteTimeout
	}

	if err := sc.acquire(ctx); err != nil {
		return "", sc.fail(contextError(opTransact, err), cmd)
	}
	defer sc.release()

	// Close may have won the race for the section.
	if !sc.isOpen.Load() || sc.handle == nil {
		return "", sc.fail(newError(opTransact, ErrNotConnected, nil), cmd)
	}

	start := time.Now()
	resp, err := sc.exchange(ctx, cmd, readTimeout, writeTimeout)
	if err != nil {
		return "", sc.fail(err, cmd)
	}

	sc.recordSuccess(len(cmd), len(resp), time.Since(start))
	sc.journal.Info("exchange",
		zap.String("port", sc.link.Port),
		zap.String("sent", strconv.Quote(string(cmd))),
		zap.String("received", strconv.Quote(resp)),
	)
	return resp, nil
}

func (sc *SerialConnection) exchange(ctx context.Context, cmd []byte, readTimeout, writeTimeout time.Duration) (string, error) {
	if err := sc.awaitStalledWrite(writeTimeout); err != nil {
		return "", err
	}

	sc.discardInput()

	if err := sc.write(ctx, cmd, writeTimeout); err != nil {
		return "", err
	}

	if err := sleepContext(ctx, sc.link.SettleInterval); err != nil {
		return "", contextError(opTransact, err)
	}

	line, err := sc.readLine(ctx, readTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimRightFunc(line, isTrailingJunk), nil
}

// awaitStalledWrite blocks until a write abandoned by an earlier exchange
// has left the channel.
func (sc *SerialConnection) awaitStalledWrite(timeout time.Duration) error {
	if sc.stalled == nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-sc.stalled:
		sc.stalled = nil
		if err != nil {
			sc.logger.Debug("Abandoned write finished with error", zap.Error(err))
		}
		return nil
	case <-timer.C:
		return newError(opWrite, ErrTimeout, errors.New("previous write still pending"))
	}
}

func (sc *SerialConnection) discardInput() {
	r, ok := sc.handle.(inputResetter)
	if !ok {
		return
	}
	if err := r.ResetInputBuffer(); err != nil {
		sc.logger.Warn("Failed to discard serial input buffer", zap.Error(err))
	}
}

func (sc *SerialConnection) write(ctx context.Context, data []byte, timeout time.Duration) error {
	h := sc.handle
	done := make(chan error, 1)
	go func() {
		done <- writeFull(h, data)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return newError(opWrite, ErrIO, err)
		}
		return nil
	case <-timer.C:
		sc.stalled = done
		return newError(opWrite, ErrTimeout, fmt.Errorf("write not completed within %v", timeout))
	case <-ctx.Done():
		sc.stalled = done
		return contextError(opWrite, ctx.Err())
	}
}

func writeFull(w io.Writer, data []byte) error {
	written := 0
	for written < len(data) {
		n, err := w.Write(data[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}

// readLine reads until the link delimiter. Bytes after the delimiter are
// stale by definition and dropped with the next discard.
func (sc *SerialConnection) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 256)
	var line []byte

	for {
		if err := ctx.Err(); err != nil {
			return "", contextError(opRead, err)
		}
		if !time.Now().Before(deadline) {
			e := newError(opRead, ErrTimeout, fmt.Errorf("no response line within %v", timeout))
			e.Response = string(line)
			return "", e
		}

		n, err := sc.handle.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if idx := bytes.IndexByte(chunk, sc.link.LineDelimiter); idx >= 0 {
				line = append(line, chunk[:idx]...)
				return string(line), nil
			}
			line = append(line, chunk...)
			if len(line) > maxLineSize {
				return "", newError(opRead, ErrMalformedResponse, fmt.Errorf("line exceeds %d bytes", maxLineSize))
			}
		}
		if err != nil {
			// termios based backends report an empty poll as EOF
			if n == 0 && errors.Is(err, io.EOF) {
				continue
			}
			return "", newError(opRead, ErrIO, err)
		}
	}
}

func (sc *SerialConnection) fail(err error, cmd []byte) error {
	sc.stats.errors.Inc()
	if errors.Is(err, ErrTimeout) {
		sc.stats.timeouts.Inc()
	}

	sc.logger.Error("Serial transaction failed",
		zap.String("kind", KindOf(err)),
		zap.String("command", strconv.Quote(string(cmd))),
		zap.Error(err),
	)
	return err
}

func (sc *SerialConnection) recordSuccess(written, read int, latency time.Duration) {
	sc.stats.bytesWritten.Add(int64(written))
	sc.stats.bytesRead.Add(int64(read))
	sc.stats.operations.Inc()
	sc.stats.lastActivity.Store(time.Now())

	if avg := sc.stats.avgLatency.Load(); avg == 0 {
		sc.stats.avgLatency.Store(latency)
	} else {
		sc.stats.avgLatency.Store((avg + latency) / 2)
	}
}

// Stats returns a snapshot of the transport counters.
func (sc *SerialConnection) Stats() ProtocolStats {
	return ProtocolStats{
		BytesWritten:   sc.stats.bytesWritten.Load(),
		BytesRead:      sc.stats.bytesRead.Load(),
		OperationCount: sc.stats.operations.Load(),
		ErrorCount:     sc.stats.errors.Load(),
		TimeoutCount:   sc.stats.timeouts.Load(),
		LastActivity:   sc.stats.lastActivity.Load(),
		AverageLatency: sc.stats.avgLatency.Load(),
		IsConnected:    sc.isOpen.Load(),
	}
}

func contextError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(op, ErrTimeout, err)
	}
	return newError(op, ErrCanceled, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isTrailingJunk(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}
