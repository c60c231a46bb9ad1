package eos

import "testing"

func TestChecksum_AppendedTrailerYieldsZero(t *testing.T) {
	msgs := [][]byte{
		{0x02, 0xF4},
		{0x06, 0x03},
		{0x02, 0xF0, 0x01, 0x00},
		make([]byte, 93),
	}
	for _, msg := range msgs {
		full := appendChecksum(append([]byte(nil), msg...))
		if got := Checksum(full, crcSeed); got != 0 {
			t.Fatalf("Checksum(%x)=0x%02x want 0", full, got)
		}
		if !verifyChecksum(full) {
			t.Fatalf("verifyChecksum(%x)=false", full)
		}
	}
}

func TestChecksum_DetectsEverySingleBitFlip(t *testing.T) {
	msg := []byte{0x02, 0xF1, 0x01, 0x00, 0x05, 0x00}
	full := appendChecksum(msg)

	for i := range full {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), full...)
			corrupt[i] ^= 1 << bit
			if verifyChecksum(corrupt) {
				t.Fatalf("flip byte %d bit %d undetected", i, bit)
			}
		}
	}
}

func TestChecksum_ChainableAcrossParts(t *testing.T) {
	header := []byte{0x06, 0x04, 0x00, 0x02, 0x00}
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	whole := append(append([]byte(nil), header...), payload...)
	trailer := Checksum(whole, crcSeed)

	crc := Checksum(header, crcSeed)
	crc = Checksum(payload, crc)
	if got := Checksum([]byte{trailer}, crc); got != 0 {
		t.Fatalf("chained checksum=0x%02x want 0", got)
	}
}
