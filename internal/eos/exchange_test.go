package eos

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakePort scripts the instrument side of an exchange. Reads are served from
// a queue of pre-built reply fragments; WaitForByte behavior is pluggable.
type fakePort struct {
	writes  [][]byte
	reads   [][]byte
	waitErr error
	onWait  func(attempt int, want byte) error

	flushes   int
	waits     int
	receiving bool
}

func (f *fakePort) Write(p []byte, _ time.Duration) error {
	f.writes = append(f.writes, append([]byte(nil), p...))
	return nil
}

func (f *fakePort) ReadFull(p []byte, _ time.Duration) error {
	if len(f.reads) == 0 {
		return errors.New("fake: no scripted read")
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	if len(next) != len(p) {
		return errors.New("fake: scripted read length mismatch")
	}
	copy(p, next)
	return nil
}

func (f *fakePort) WaitForByte(want byte, _ time.Duration) error {
	f.waits++
	if f.onWait != nil {
		return f.onWait(f.waits, want)
	}
	return f.waitErr
}

func (f *fakePort) Flush() error {
	f.flushes++
	return nil
}

func (f *fakePort) StartReceive() error {
	f.receiving = true
	return nil
}

func (f *fakePort) StopReceive() {
	f.receiving = false
}

func newTestDevice(p Port) *Device {
	return New(p, &recTelemetry{}, &recSettings{}, Config{})
}

func TestRequest_ValidReply(t *testing.T) {
	reply := appendChecksum([]byte{ackByte, 0x07})
	p := &fakePort{reads: [][]byte{reply[1:]}}
	dev := newTestDevice(p)

	resp, err := dev.request(flightCountRequest(), flightCountResponseLen)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp[1] != 0x07 {
		t.Fatalf("count=%d want 7", resp[1])
	}
	if p.flushes == 0 {
		t.Fatal("stale input was not flushed before the write")
	}
}

func TestRequest_ChecksumMismatch(t *testing.T) {
	reply := appendChecksum([]byte{ackByte, 0x07})
	reply[1] ^= 0x01
	p := &fakePort{reads: [][]byte{reply[1:]}}
	dev := newTestDevice(p)

	_, err := dev.request(flightCountRequest(), flightCountResponseLen)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("err=%v want ErrChecksum", err)
	}
}

func TestRequest_NoAck(t *testing.T) {
	p := &fakePort{waitErr: errors.New("fake: timeout")}
	dev := newTestDevice(p)

	_, err := dev.request(flightCountRequest(), flightCountResponseLen)
	if err == nil {
		t.Fatal("expected error on missing ack")
	}
	if len(p.reads) != 0 {
		t.Fatal("reply must not be read without an ack")
	}
}

func TestRequestBlock_IDMismatchRejected(t *testing.T) {
	// Header echoes block id 3 while id 2 was requested.
	header := []byte{ackByte, 0x02, 0x00, 0x03, 0x00}
	p := &fakePort{reads: [][]byte{header[1:]}}
	dev := newTestDevice(p)

	_, err := dev.requestBlock(1, 2)
	if err == nil {
		t.Fatal("expected block id mismatch error")
	}
}

func TestRequestBlock_ValidatesAcrossParts(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	header := []byte{ackByte, 0x03, 0x00, 0x00, 0x00}
	whole := append(append([]byte(nil), header...), payload...)
	trailer := Checksum(whole, crcSeed)

	p := &fakePort{reads: [][]byte{header[1:], payload, {trailer}}}
	dev := newTestDevice(p)

	got, err := dev.requestBlock(1, 0)
	if err != nil {
		t.Fatalf("requestBlock: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload=%x want %x", got, payload)
	}
}

func TestRequestBlock_CorruptPayloadRejected(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	header := []byte{ackByte, 0x03, 0x00, 0x00, 0x00}
	whole := append(append([]byte(nil), header...), payload...)
	trailer := Checksum(whole, crcSeed)
	payload[1] ^= 0x10

	p := &fakePort{reads: [][]byte{header[1:], payload, {trailer}}}
	dev := newTestDevice(p)

	if _, err := dev.requestBlock(1, 0); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err=%v want ErrChecksum", err)
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, func() error {
		calls++
		return errors.New("always")
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 5 {
		t.Fatalf("calls=%d want 5", calls)
	}
}

func TestWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, 5, func() error {
		calls++
		return errors.New("x")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d want 0", calls)
	}
}
