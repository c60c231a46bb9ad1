// Package sim provides an in-memory vario instrument: it answers the binary
// flight-catalog protocol and can emit telemetry sentences. Tests and the
// CLI smoke mode run the real driver against it without hardware.
package sim

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"eoslink/internal/eos"
	"eoslink/internal/nmea"
)

// Wire constants duplicated from the protocol; the simulator speaks the wire
// format, not the driver's internals.
const (
	stx = 0x02
	ack = 0x06
	nak = 0x15

	cmdFlightCount = 0xF4
	cmdFlightInfo  = 0xF0
	cmdFlightBlock = 0xF1
	cmdDeclaration = 0xCA
	cmdObsZone     = 0xF9
	cmdClass       = 0xD0
)

const blockSize = 500

// Flight is one recorded flight the simulated logger can serve.
type Flight struct {
	DeviceFlightID uint16
	JulianDate     uint32
	TakeOffSec     uint32
	LandingSec     uint32
	Data           []byte
}

// Vario simulates the instrument behind the driver's port interface.
//
// Every valid request is acknowledged and answered from the configured
// flight set; malformed frames get a NAK. CorruptNextReply flips a reply
// byte once, for exercising the retry path.
type Vario struct {
	mu sync.Mutex

	flights []Flight

	// rx holds bytes the instrument has "sent" and the driver has not yet
	// consumed.
	rx bytes.Buffer

	handler   func(line string)
	receiving bool

	// Sentences written by the driver ($PFLX...) in arrival order.
	sentences []string
	// Declaration record frames accepted so far.
	declRecords [][]byte

	// CorruptNextReply makes the next reply fail its checksum.
	CorruptNextReply bool
	// DropRequests makes the instrument ignore everything (no ack).
	DropRequests bool
}

// NewVario builds a simulator serving the given flights, newest first.
func NewVario(flights []Flight) *Vario {
	return &Vario{flights: flights}
}

// SetLineHandler registers the sentence consumer used while receiving.
func (v *Vario) SetLineHandler(h func(line string)) {
	v.mu.Lock()
	v.handler = h
	v.mu.Unlock()
}

// EmitTelemetry pushes one primary telemetry sentence to the line handler,
// as the real instrument does once per second.
func (v *Vario) EmitTelemetry(tasKmh, altM, varioMPS float64) {
	payload := fmt.Sprintf("LXWP0,Y,%.1f,%.1f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,,,",
		tasKmh, altM, varioMPS, varioMPS, varioMPS, varioMPS, varioMPS, varioMPS)
	v.emit(payload)
}

// EmitSettings pushes one settings sentence.
func (v *Vario) EmitSettings(mc, ballast, bugsPercent float64) {
	payload := fmt.Sprintf("LXWP2,%.1f,%.2f,%.0f,1.2,-2.3,1.1,50", mc, ballast, bugsPercent)
	v.emit(payload)
}

func (v *Vario) emit(payload string) {
	v.mu.Lock()
	h := v.handler
	receiving := v.receiving
	v.mu.Unlock()
	if h != nil && receiving {
		h(string(bytes.TrimRight([]byte(nmea.Format(payload)), "\r\n")))
	}
}

// Sentences returns the sentences the driver wrote, in order.
func (v *Vario) Sentences() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.sentences...)
}

// DeclarationRecords returns the accepted declaration frames, checksums
// stripped off.
func (v *Vario) DeclarationRecords() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.declRecords))
	for i, r := range v.declRecords {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// Write receives driver output: either a textual sentence or one binary
// request frame per call.
func (v *Vario) Write(p []byte, _ time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.DropRequests {
		return nil
	}
	if len(p) > 0 && p[0] == '$' {
		v.sentences = append(v.sentences, string(bytes.TrimRight(p, "\r\n")))
		return nil
	}
	v.handleFrame(append([]byte(nil), p...))
	return nil
}

func (v *Vario) handleFrame(frame []byte) {
	if len(frame) < 3 || frame[0] != stx || eos.Checksum(frame, 0xFF) != 0 {
		v.rx.WriteByte(nak)
		return
	}

	switch frame[1] {
	case cmdFlightCount:
		v.reply(v.countReply())
	case cmdFlightInfo:
		index := binary.LittleEndian.Uint16(frame[2:4])
		if index == 0 || int(index) > len(v.flights) {
			v.rx.WriteByte(nak)
			return
		}
		v.reply(v.maybeCorrupt(v.infoReply(index)))
	case cmdFlightBlock:
		flightID := binary.LittleEndian.Uint16(frame[2:4])
		blockID := binary.LittleEndian.Uint16(frame[4:6])
		if flightID == 0 || int(flightID) > len(v.flights) {
			v.rx.WriteByte(nak)
			return
		}
		v.reply(v.maybeCorrupt(v.blockReply(v.flights[flightID-1], blockID)))
	case cmdDeclaration, cmdObsZone, cmdClass:
		v.declRecords = append(v.declRecords, frame[:len(frame)-1])
		v.rx.WriteByte(ack)
	default:
		v.rx.WriteByte(nak)
	}
}

// reply queues a full checksummed reply.
func (v *Vario) reply(msg []byte) {
	v.rx.Write(msg)
}

// maybeCorrupt flips a byte of msg once when CorruptNextReply is set,
// simulating line noise on a catalog or block reply.
func (v *Vario) maybeCorrupt(msg []byte) []byte {
	if v.CorruptNextReply && len(msg) > 1 {
		msg[1] ^= 0x40
		v.CorruptNextReply = false
	}
	return msg
}

func (v *Vario) countReply() []byte {
	msg := []byte{ack, byte(len(v.flights))}
	return append(msg, eos.Checksum(msg, 0xFF))
}

func (v *Vario) infoReply(index uint16) []byte {
	f := v.flights[index-1]
	msg := make([]byte, 93)
	msg[0] = ack
	binary.LittleEndian.PutUint16(msg[1:], f.DeviceFlightID)
	binary.LittleEndian.PutUint32(msg[13:], f.JulianDate)
	binary.LittleEndian.PutUint32(msg[17:], f.TakeOffSec)
	binary.LittleEndian.PutUint32(msg[21:], f.LandingSec)
	binary.LittleEndian.PutUint32(msg[89:], uint32(len(f.Data)))
	return append(msg, eos.Checksum(msg, 0xFF))
}

func (v *Vario) blockReply(f Flight, blockID uint16) []byte {
	start := int(blockID) * blockSize
	if start > len(f.Data) {
		start = len(f.Data)
	}
	end := start + blockSize
	if end > len(f.Data) {
		end = len(f.Data)
	}
	payload := f.Data[start:end]

	msg := make([]byte, 5, 5+len(payload)+1)
	msg[0] = ack
	binary.LittleEndian.PutUint16(msg[1:], uint16(len(payload)))
	binary.LittleEndian.PutUint16(msg[3:], blockID)
	msg = append(msg, payload...)
	return append(msg, eos.Checksum(msg, 0xFF))
}

// ReadFull serves queued reply bytes.
func (v *Vario) ReadFull(p []byte, _ time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rx.Len() < len(p) {
		return fmt.Errorf("sim: %d bytes wanted, %d queued", len(p), v.rx.Len())
	}
	_, err := v.rx.Read(p)
	return err
}

// WaitForByte consumes one queued byte and matches it against want.
func (v *Vario) WaitForByte(want byte, _ time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, err := v.rx.ReadByte()
	if err != nil {
		return fmt.Errorf("sim: no byte queued: %w", err)
	}
	if b != want {
		return fmt.Errorf("sim: got 0x%02x, want 0x%02x", b, want)
	}
	return nil
}

// Flush drops anything still queued.
func (v *Vario) Flush() error {
	v.mu.Lock()
	v.rx.Reset()
	v.mu.Unlock()
	return nil
}

func (v *Vario) StartReceive() error {
	v.mu.Lock()
	v.receiving = true
	v.mu.Unlock()
	return nil
}

func (v *Vario) StopReceive() {
	v.mu.Lock()
	v.receiving = false
	v.mu.Unlock()
}

// Receiving reports whether the driver currently allows sentence delivery.
// Long binary operations must leave this false for their whole duration.
func (v *Vario) Receiving() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.receiving
}
