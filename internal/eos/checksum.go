package eos

// crcSeed is the initial value for every framed message on the binary side of
// the protocol. A message with its trailing checksum byte appended runs
// through Checksum with this seed and must come out 0x00.
const crcSeed = 0xFF

// Checksum computes the instrument's 8-bit polynomial-feedback checksum over
// data, starting from seed. Bits are fed most-significant first; whenever the
// bit shifted out of the XOR of the running value and the input byte is set,
// the running value is folded with 0x69.
func Checksum(data []byte, seed byte) byte {
	result := seed
	for _, b := range data {
		d := b
		for bit := 0; bit < 8; bit++ {
			tmp := result ^ d
			result <<= 1
			if tmp&0x80 != 0 {
				result ^= 0x69
			}
			d <<= 1
		}
	}
	return result
}

// verifyChecksum reports whether msg (which includes its trailing checksum
// byte) is intact.
func verifyChecksum(msg []byte) bool {
	return Checksum(msg, crcSeed) == 0x00
}

// appendChecksum returns frame with its trailing checksum byte appended.
func appendChecksum(frame []byte) []byte {
	return append(frame, Checksum(frame, crcSeed))
}
