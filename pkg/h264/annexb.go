package h264

import (
	"errors"
	"fmt"
)

// Annex-B errors.
var (
	ErrDelimiterNotFound = errors.New("no start code found")
	ErrNALUEmpty         = errors.New("empty NALU")
)

// NALUTooBigError .
type NALUTooBigError struct {
	NALUSize int
}

func (e NALUTooBigError) Error() string {
	return fmt.Sprintf("NALU size (%d) is too big (maximum is %d)", e.NALUSize, MaxNALUSize)
}

// FindStartCode locates the next Annex-B start code (00 00 01 or 00 00 00 01)
// at or after start. It returns the position of the code, its length in bytes
// and whether one was found. The earliest code wins and the 4-byte form is
// only considered when it fits inside the buffer.
func FindStartCode(buf []byte, start int) (int, int, bool) {
	for pos := start; pos+3 <= len(buf); pos++ {
		if buf[pos] != 0 || buf[pos+1] != 0 {
			continue
		}
		if buf[pos+2] == 1 {
			return pos, 3, true
		}
		if pos+4 <= len(buf) && buf[pos+2] == 0 && buf[pos+3] == 1 {
			return pos, 4, true
		}
	}
	return 0, 0, false
}

// AnnexBUnmarshal decodes NALUs from the Annex-B stream format.
// Each returned NALU includes its header byte but not the start code.
// A start code at the very end of the buffer yields no unit. Adjacent
// start codes and units larger than MaxNALUSize are rejected.
func AnnexBUnmarshal(buf []byte) ([][]byte, error) {
	start, scLen, ok := FindStartCode(buf, 0)
	if !ok {
		return nil, ErrDelimiterNotFound
	}

	var nalus [][]byte
	for {
		naluStart := start + scLen
		if naluStart >= len(buf) {
			// Start code with no header byte after it.
			break
		}

		next, nextLen, found := FindStartCode(buf, naluStart)
		if !found {
			next = len(buf)
		}

		naluSize := next - naluStart
		if naluSize == 0 {
			// Two adjacent start codes.
			return nil, ErrNALUEmpty
		}
		if naluSize > MaxNALUSize {
			return nil, NALUTooBigError{NALUSize: naluSize}
		}

		nalus = append(nalus, buf[naluStart:next])
		if !found {
			break
		}
		start, scLen = next, nextLen
	}

	if len(nalus) == 0 {
		return nil, ErrNALUEmpty
	}
	return nalus, nil
}

func annexBMarshalSize(nalus [][]byte) int {
	n := 0
	for _, nalu := range nalus {
		n += 4 + len(nalu)
	}
	return n
}

// AnnexBMarshal encodes NALUs into the Annex-B stream format
// with 4-byte start codes.
func AnnexBMarshal(nalus [][]byte) []byte {
	buf := make([]byte, annexBMarshalSize(nalus))
	pos := 0

	for _, nalu := range nalus {
		pos += copy(buf[pos:], []byte{0x00, 0x00, 0x00, 0x01})
		pos += copy(buf[pos:], nalu)
	}

	return buf
}
