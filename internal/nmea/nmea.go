package nmea

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Sentence is a checksum-verified NMEA-style line split into its tag and a
// field cursor. The vario emits both standard-looking $LXWPn telemetry and
// accepts $PFLXn configuration sentences in the same framing.
type Sentence struct {
	Tag    string
	fields []string
	pos    int
}

// Parse verifies the line-level XOR checksum and splits the payload.
// The returned sentence's cursor starts at the first field after the tag.
func Parse(line string) (*Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil, fmt.Errorf("nmea: missing '$'")
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return nil, fmt.Errorf("nmea: missing checksum")
	}
	payload := line[1:star]
	ck := strings.TrimSpace(line[star+1:])
	if len(ck) < 2 {
		return nil, fmt.Errorf("nmea: short checksum")
	}
	want, err := hex.DecodeString(ck[:2])
	if err != nil || len(want) != 1 {
		return nil, fmt.Errorf("nmea: bad checksum field")
	}
	if xor(payload) != want[0] {
		return nil, fmt.Errorf("nmea: checksum mismatch")
	}

	parts := strings.Split(payload, ",")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("nmea: empty tag")
	}
	return &Sentence{Tag: strings.ToUpper(parts[0]), fields: parts[1:]}, nil
}

// Next returns the next raw field. ok is false past the end of the sentence.
func (s *Sentence) Next() (string, bool) {
	if s.pos >= len(s.fields) {
		return "", false
	}
	f := strings.TrimSpace(s.fields[s.pos])
	s.pos++
	return f, true
}

// Float reads the next field as a float. A blank or malformed field returns
// ok=false but still consumes the field, matching the checked-read style of
// the instrument protocol where optional fields are simply left empty.
func (s *Sentence) Float() (float64, bool) {
	f, ok := s.Next()
	if !ok || f == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Skip consumes n fields.
func (s *Sentence) Skip(n int) {
	s.pos += n
}

// Format wraps a raw payload (without '$') into a transmit-ready sentence
// with the XOR checksum and CRLF terminator appended.
func Format(payload string) string {
	return fmt.Sprintf("$%s*%02X\r\n", payload, xor(payload))
}

func xor(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}
