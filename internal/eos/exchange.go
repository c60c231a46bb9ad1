package eos

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrChecksum reports a reply that arrived complete but corrupted.
var ErrChecksum = errors.New("reply checksum mismatch")

// writeAndWaitACK flushes stale bytes off the line, transmits one framed
// request and waits for the acknowledgement byte.
//
// A NAK, any other byte, or silence all count the same: no ack. The
// instrument is not known to distinguish "malformed request" from "request
// lost" in a way the driver could act on, so retries treat them alike.
func (d *Device) writeAndWaitACK(frame []byte) error {
	if err := d.port.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := d.port.Write(frame, d.timeouts.Write); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := d.port.WaitForByte(ackByte, d.timeouts.Ack); err != nil {
		return fmt.Errorf("no ack: %w", err)
	}
	return nil
}

// request performs one exchange with a fixed-size reply. respLen counts the
// leading ack byte, which is not re-read from the wire but participates in
// the reply checksum, so it is stitched back in before verification.
func (d *Device) request(frame []byte, respLen int) ([]byte, error) {
	if err := d.writeAndWaitACK(frame); err != nil {
		return nil, err
	}
	resp := make([]byte, respLen)
	resp[0] = ackByte
	if err := d.port.ReadFull(resp[1:], d.timeouts.Response); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if !verifyChecksum(resp) {
		return nil, ErrChecksum
	}
	return resp, nil
}

// requestBlock performs one flight-log block exchange: a 5-byte header
// carrying the payload size and the echoed block id, the payload, and one
// trailing checksum byte covering all three parts.
func (d *Device) requestBlock(flightID, blockID uint16) ([]byte, error) {
	if err := d.writeAndWaitACK(flightBlockRequest(flightID, blockID)); err != nil {
		return nil, err
	}

	header := make([]byte, blockHeaderLen)
	header[0] = ackByte
	if err := d.port.ReadFull(header[1:], d.timeouts.Response); err != nil {
		return nil, fmt.Errorf("read block header: %w", err)
	}

	size := binary.LittleEndian.Uint16(header[1:3])
	id := binary.LittleEndian.Uint16(header[3:5])
	if id != blockID {
		return nil, fmt.Errorf("block id mismatch: got %d, requested %d", id, blockID)
	}

	payload := make([]byte, size)
	if err := d.port.ReadFull(payload, d.timeouts.Response); err != nil {
		return nil, fmt.Errorf("read block payload: %w", err)
	}
	var trailer [1]byte
	if err := d.port.ReadFull(trailer[:], d.timeouts.Response); err != nil {
		return nil, fmt.Errorf("read block checksum: %w", err)
	}

	crc := Checksum(header, crcSeed)
	crc = Checksum(payload, crc)
	if Checksum(trailer[:], crc) != 0 {
		return nil, ErrChecksum
	}
	return payload, nil
}

// withRetry runs fn up to attempts times, stopping early on success or
// cancellation. No backoff: each attempt already carries the full set of
// per-step link timeouts.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
