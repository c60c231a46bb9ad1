package eos

import "encoding/binary"

// Binary protocol constants. Requests are framed as
// [stx, command, args...] + trailing checksum; replies open with the ack
// byte, which also participates in the reply checksum.
const (
	stxByte = 0x02
	ackByte = 0x06
	nakByte = 0x15

	cmdFlightCount = 0xF4
	cmdFlightInfo  = 0xF0
	cmdFlightBlock = 0xF1

	cmdDeclaration = 0xCA
	cmdObsZone     = 0xF9
	cmdClass       = 0xD0
)

// Fixed reply sizes, ack byte included.
const (
	flightCountResponseLen = 3
	flightInfoResponseLen  = 94
	blockHeaderLen         = 5
)

// Flight-info reply field offsets (4-byte little-endian each).
const (
	offFlightJulianDate = 13
	offFlightTakeOff    = 17
	offFlightLanding    = 21
	offFlightFileSize   = 89
)

func flightCountRequest() []byte {
	return appendChecksum([]byte{stxByte, cmdFlightCount})
}

func flightInfoRequest(index uint16) []byte {
	frame := make([]byte, 4)
	frame[0] = stxByte
	frame[1] = cmdFlightInfo
	binary.LittleEndian.PutUint16(frame[2:], index)
	return appendChecksum(frame)
}

func flightBlockRequest(flightID, blockID uint16) []byte {
	frame := make([]byte, 6)
	frame[0] = stxByte
	frame[1] = cmdFlightBlock
	binary.LittleEndian.PutUint16(frame[2:], flightID)
	binary.LittleEndian.PutUint16(frame[4:], blockID)
	return appendChecksum(frame)
}

// Declaration record geometry. String fields are space-padded to a fixed
// width with the final byte an explicit NUL terminator.
const (
	maxDeclTurnpoints = 12

	pilotFieldLen     = 19
	gliderFieldLen    = 12
	regFieldLen       = 8
	compIDFieldLen    = 4
	tpNameFieldLen    = 9
	classFieldLen     = 9
	declVersionByte   = 0x01
	declReservedLen   = 2
	milliArcMinPerDeg = 60000
)

// putPaddedString writes src space-padded into dst, always leaving the last
// byte as the NUL terminator.
func putPaddedString(dst []byte, src string) {
	for i := 0; i < len(dst)-1; i++ {
		if i < len(src) {
			dst[i] = src[i]
		} else {
			dst[i] = ' '
		}
	}
	dst[len(dst)-1] = 0
}

// putCoord writes an angle in degrees as a signed milli-arcminute count,
// big-endian, the representation the declaration records use for turnpoint
// coordinates.
func putCoord(dst []byte, deg float64) {
	binary.BigEndian.PutUint32(dst, uint32(int32(deg*milliArcMinPerDeg)))
}

// declarationRecord encodes the task header: constant version/reserved
// fields, the four identity strings, and the coordinate table padded out to
// the full turnpoint capacity.
func declarationRecord(decl Declaration, rows []Turnpoint) []byte {
	frame := make([]byte, 0, 64+maxDeclTurnpoints*(8+tpNameFieldLen))
	frame = append(frame, stxByte, cmdDeclaration, declVersionByte)
	frame = append(frame, make([]byte, declReservedLen)...)

	var pilot [pilotFieldLen]byte
	var glider [gliderFieldLen]byte
	var reg [regFieldLen]byte
	var compID [compIDFieldLen]byte
	putPaddedString(pilot[:], decl.Pilot)
	putPaddedString(glider[:], decl.Glider)
	putPaddedString(reg[:], decl.Registration)
	putPaddedString(compID[:], decl.CompetitionID)
	frame = append(frame, pilot[:]...)
	frame = append(frame, glider[:]...)
	frame = append(frame, reg[:]...)
	frame = append(frame, compID[:]...)

	frame = append(frame, byte(len(rows)))
	for i := 0; i < maxDeclTurnpoints; i++ {
		var coord [8]byte
		var name [tpNameFieldLen]byte
		if i < len(rows) {
			putCoord(coord[0:4], rows[i].LatDeg)
			putCoord(coord[4:8], rows[i].LonDeg)
			putPaddedString(name[:], rows[i].Name)
		} else {
			putPaddedString(name[:], "")
		}
		frame = append(frame, coord[:]...)
		frame = append(frame, name[:]...)
	}

	return appendChecksum(frame)
}

// obsZoneRecord encodes the observation-zone geometry of one declared
// turnpoint. Radii and elevation are meters; angles are tenths of a degree.
func obsZoneRecord(index int, zone ObservationZone) []byte {
	frame := make([]byte, 22)
	frame[0] = stxByte
	frame[1] = cmdObsZone
	frame[2] = byte(index)
	frame[3] = byte(zone.Type)
	frame[4] = byte(zone.Orientation)
	binary.LittleEndian.PutUint32(frame[5:], uint32(zone.Radius1M))
	binary.LittleEndian.PutUint16(frame[9:], uint16(zone.Angle1Deg*10))
	binary.LittleEndian.PutUint32(frame[11:], uint32(zone.Radius2M))
	binary.LittleEndian.PutUint16(frame[15:], uint16(zone.Angle2Deg*10))
	binary.LittleEndian.PutUint16(frame[17:], uint16(zone.Angle12Deg*10))
	binary.LittleEndian.PutUint16(frame[19:], uint16(int16(zone.ElevationM)))
	frame[21] = 0 // reserved
	return appendChecksum(frame)
}

// classRecord encodes the competition-class name record.
func classRecord(class string) []byte {
	frame := make([]byte, 2+classFieldLen)
	frame[0] = stxByte
	frame[1] = cmdClass
	putPaddedString(frame[2:], class)
	return appendChecksum(frame)
}
