package port

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeSerial mimics the tick behavior of the real drivers: an empty read
// returns io.EOF after a short pause instead of blocking.
type fakeSerial struct {
	mu     sync.Mutex
	rx     bytes.Buffer
	tx     bytes.Buffer
	closed bool
}

func (f *fakeSerial) push(b []byte) {
	f.mu.Lock()
	f.rx.Write(b)
	f.mu.Unlock()
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, errors.New("closed")
	}
	n, _ := f.rx.Read(p)
	f.mu.Unlock()
	if n == 0 {
		time.Sleep(time.Millisecond)
		return 0, io.EOF
	}
	return n, nil
}

func (f *fakeSerial) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx.Write(p)
}

func (f *fakeSerial) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestReadFull_Timeout(t *testing.T) {
	rw := &fakeSerial{}
	l := NewLink(rw, nil)

	rw.push([]byte{0x01, 0x02})
	buf := make([]byte, 4)
	err := l.ReadFull(buf, 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v want ErrTimeout", err)
	}
}

func TestReadFull_Complete(t *testing.T) {
	rw := &fakeSerial{}
	l := NewLink(rw, nil)

	rw.push([]byte{0x01, 0x02, 0x03})
	buf := make([]byte, 3)
	if err := l.ReadFull(buf, 100*time.Millisecond); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if buf[2] != 0x03 {
		t.Fatalf("buf=%x", buf)
	}
}

func TestWaitForByte_DiscardsLeadingNoise(t *testing.T) {
	rw := &fakeSerial{}
	l := NewLink(rw, nil)

	rw.push([]byte{0x41, 0x42, 0x06, 0x99})
	if err := l.WaitForByte(0x06, 100*time.Millisecond); err != nil {
		t.Fatalf("WaitForByte: %v", err)
	}
	// The byte after the match is still available.
	buf := make([]byte, 1)
	if err := l.ReadFull(buf, 100*time.Millisecond); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if buf[0] != 0x99 {
		t.Fatalf("next byte=0x%02x", buf[0])
	}
}

func TestWaitForByte_Timeout(t *testing.T) {
	rw := &fakeSerial{}
	l := NewLink(rw, nil)

	if err := l.WaitForByte(0x06, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v want ErrTimeout", err)
	}
}

func TestFlush_DrainsPendingInput(t *testing.T) {
	rw := &fakeSerial{}
	l := NewLink(rw, nil)

	rw.push(bytes.Repeat([]byte{0x55}, 200))
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := l.WaitForByte(0x55, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatal("input was not drained")
	}
}

func TestReceive_DeliversLines(t *testing.T) {
	rw := &fakeSerial{}
	lines := make(chan string, 8)
	l := NewLink(rw, func(line string) { lines <- line })

	if err := l.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	defer l.StopReceive()

	rw.push([]byte("$LXWP0,Y*22\r\n$LXWP1,a,b,c,d*33\n"))

	for _, want := range []string{"$LXWP0,Y*22", "$LXWP1,a,b,c,d*33"} {
		select {
		case got := <-lines:
			if got != want {
				t.Fatalf("line=%q want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestStopReceive_ParksReceiver(t *testing.T) {
	rw := &fakeSerial{}
	lines := make(chan string, 8)
	l := NewLink(rw, func(line string) { lines <- line })

	if err := l.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	l.StopReceive()

	// Bytes arriving while stopped must not reach the handler.
	rw.push([]byte("$LXWP0,Y*22\n"))
	select {
	case line := <-lines:
		t.Fatalf("unexpected line %q while stopped", line)
	case <-time.After(50 * time.Millisecond):
	}

	// Restarting resumes delivery, including the buffered line.
	if err := l.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	defer l.StopReceive()
	select {
	case <-lines:
	case <-time.After(time.Second):
		t.Fatal("line not delivered after restart")
	}
}

func TestStartReceive_RequiresHandler(t *testing.T) {
	l := NewLink(&fakeSerial{}, nil)
	if err := l.StartReceive(); err == nil {
		t.Fatal("expected error without a handler")
	}
}

func TestStartReceive_Idempotent(t *testing.T) {
	l := NewLink(&fakeSerial{}, func(string) {})
	if err := l.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	if err := l.StartReceive(); err != nil {
		t.Fatalf("second StartReceive: %v", err)
	}
	l.StopReceive()
}
