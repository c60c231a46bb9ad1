// Package port provides the byte-level link to the instrument: serial port
// drivers plus the background line receiver that feeds the sentence stream
// to a handler.
//
// Exactly one actor reads the link at a time. While the receiver runs, it
// owns all reads; binary request/response traffic must stop it first via
// StopReceive, which blocks until the receiver goroutine has parked.
package port

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned when a blocking link operation exceeds its timeout.
var ErrTimeout = errors.New("port: timeout")

// LineHandler receives each complete received line, terminator stripped.
type LineHandler func(line string)

// Config selects and tunes the underlying serial driver.
type Config struct {
	// Device is the serial device path, e.g. /dev/ttyUSB0.
	Device string
	Baud   int
	// Driver is "serial" (portable, default) or "termios" (linux raw fd).
	Driver string
}

const (
	// readTick bounds how long a single underlying read may block, so the
	// receiver can notice StopReceive and deadlines stay accurate.
	readTick = 100 * time.Millisecond

	flushWindow = 200 * time.Millisecond

	maxLineLen = 256
)

// Link is an open instrument connection. It satisfies the driver's port
// interface.
type Link struct {
	rw      io.ReadWriteCloser
	handler LineHandler

	mu     sync.Mutex
	rxStop chan struct{}
	rxDone chan struct{}
}

// Open opens the configured serial device. handler receives lines while the
// background receiver is running; it must be fast or offload its work.
func Open(cfg Config, handler LineHandler) (*Link, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("port: device is required")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 19200
	}

	var (
		rw  io.ReadWriteCloser
		err error
	)
	switch cfg.Driver {
	case "", "serial":
		rw, err = openSerial(cfg.Device, cfg.Baud)
	case "termios":
		rw, err = openTermios(cfg.Device, cfg.Baud)
	default:
		return nil, fmt.Errorf("port: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("port: open %s: %w", cfg.Device, err)
	}
	return NewLink(rw, handler), nil
}

// NewLink wraps an already-open byte stream. The stream's Read must return
// within roughly readTick even when no data arrives (a zero-byte read or
// io.EOF per tick is fine); both built-in drivers behave that way.
func NewLink(rw io.ReadWriteCloser, handler LineHandler) *Link {
	return &Link{rw: rw, handler: handler}
}

// Write transmits p. timeout bounds the overall transmission; serial writes
// normally complete immediately, so the deadline only matters on a wedged
// link.
func (l *Link) Write(p []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for len(p) > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("write: %w", ErrTimeout)
		}
		n, err := l.rw.Write(p)
		p = p[n:]
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadFull reads exactly len(p) bytes or fails with ErrTimeout.
func (l *Link) ReadFull(p []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	got := 0
	for got < len(p) {
		if time.Now().After(deadline) {
			return fmt.Errorf("read %d/%d bytes: %w", got, len(p), ErrTimeout)
		}
		n, err := l.rw.Read(p[got:])
		got += n
		if err != nil && !isTick(err) {
			return err
		}
	}
	return nil
}

// WaitForByte discards inbound bytes until want appears or the timeout
// elapses.
func (l *Link) WaitForByte(want byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var b [1]byte
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for 0x%02x: %w", want, ErrTimeout)
		}
		n, err := l.rw.Read(b[:])
		if n == 1 && b[0] == want {
			return nil
		}
		if err != nil && !isTick(err) {
			return err
		}
	}
}

// Flush discards pending inbound bytes: it drains until the line stays
// silent for one read tick, bounded by a short overall window.
func (l *Link) Flush() error {
	deadline := time.Now().Add(flushWindow)
	buf := make([]byte, 64)
	for time.Now().Before(deadline) {
		n, err := l.rw.Read(buf)
		if n == 0 {
			return nil
		}
		if err != nil && !isTick(err) {
			return err
		}
	}
	return nil
}

// StartReceive starts (or restarts) the background line receiver. It is a
// no-op when already running.
func (l *Link) StartReceive() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rxStop != nil {
		return nil
	}
	if l.handler == nil {
		return fmt.Errorf("port: no line handler configured")
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	l.rxStop, l.rxDone = stop, done
	go l.rxLoop(stop, done)
	return nil
}

// StopReceive parks the background receiver. It blocks until the receiver
// goroutine has stopped reading the link, so the caller may immediately
// start a binary exchange.
func (l *Link) StopReceive() {
	l.mu.Lock()
	stop, done := l.rxStop, l.rxDone
	l.rxStop, l.rxDone = nil, nil
	l.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

// Close stops the receiver and closes the device.
func (l *Link) Close() error {
	l.StopReceive()
	return l.rw.Close()
}

func (l *Link) rxLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	line := make([]byte, 0, maxLineLen)
	buf := make([]byte, 64)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := l.rw.Read(buf)
		for _, b := range buf[:n] {
			switch b {
			case '\n':
				if len(line) > 0 {
					l.handler(string(line))
					line = line[:0]
				}
			case '\r':
			default:
				if len(line) < maxLineLen {
					line = append(line, b)
				}
			}
		}
		if err != nil && !isTick(err) {
			return
		}
	}
}

// isTick reports whether err is just the per-tick timeout of the underlying
// driver rather than a real link fault. Both drivers surface an empty read
// tick as io.EOF through os.File.
func isTick(err error) bool {
	return errors.Is(err, io.EOF)
}
