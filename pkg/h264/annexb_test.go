package h264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindStartCode(t *testing.T) {
	cases := []struct {
		name   string
		buf    []byte
		start  int
		pos    int
		length int
		ok     bool
	}{
		{
			name:   "threeByte",
			buf:    []byte{0x00, 0x00, 0x01, 0xaa},
			pos:    0,
			length: 3,
			ok:     true,
		},
		{
			name:   "fourByte",
			buf:    []byte{0x00, 0x00, 0x00, 0x01, 0xaa},
			pos:    0,
			length: 4,
			ok:     true,
		},
		{
			name:   "offset",
			buf:    []byte{0xff, 0xff, 0x00, 0x00, 0x01, 0xaa},
			pos:    2,
			length: 3,
			ok:     true,
		},
		{
			name:   "fromStart",
			buf:    []byte{0x00, 0x00, 0x01, 0xaa, 0x00, 0x00, 0x01, 0xbb},
			start:  3,
			pos:    4,
			length: 3,
			ok:     true,
		},
		{
			name: "notFound",
			buf:  []byte{0xff, 0xff, 0xff, 0xff},
		},
		{
			name: "tooShort",
			buf:  []byte{0x00, 0x00},
		},
		{
			// The 4-byte form at the end of the buffer must not
			// read past it.
			name: "truncatedFourByte",
			buf:  []byte{0xff, 0x00, 0x00, 0x00},
		},
		{
			name:   "fourByteNotOverrun",
			buf:    []byte{0x00, 0x00, 0x00, 0x01},
			pos:    0,
			length: 4,
			ok:     true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, length, ok := FindStartCode(tc.buf, tc.start)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.pos, pos)
				require.Equal(t, tc.length, length)
			}
		})
	}
}

func TestAnnexBUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		nalus [][]byte
	}{
		{
			name: "threeByteCodes",
			input: []byte{
				0x00, 0x00, 0x01, 0x67, 0x42,
				0x00, 0x00, 0x01, 0x68, 0xee,
			},
			nalus: [][]byte{
				{0x67, 0x42},
				{0x68, 0xee},
			},
		},
		{
			name: "fourByteCodes",
			input: []byte{
				0x00, 0x00, 0x00, 0x01, 0x67, 0x42,
				0x00, 0x00, 0x00, 0x01, 0x65, 0x88,
			},
			nalus: [][]byte{
				{0x67, 0x42},
				{0x65, 0x88},
			},
		},
		{
			name: "mixedCodes",
			input: []byte{
				0x00, 0x00, 0x00, 0x01, 0x67, 0x42,
				0x00, 0x00, 0x01, 0x68, 0xee,
				0x00, 0x00, 0x00, 0x01, 0x65, 0x88,
			},
			nalus: [][]byte{
				{0x67, 0x42},
				{0x68, 0xee},
				{0x65, 0x88},
			},
		},
		{
			name: "leadingGarbage",
			input: []byte{
				0xff, 0xfe,
				0x00, 0x00, 0x01, 0x65, 0x88,
			},
			nalus: [][]byte{
				{0x65, 0x88},
			},
		},
		{
			name: "trailingStartCode",
			input: []byte{
				0x00, 0x00, 0x01, 0x65, 0x88,
				0x00, 0x00, 0x01,
			},
			nalus: [][]byte{
				{0x65, 0x88},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nalus, err := AnnexBUnmarshal(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.nalus, nalus)
		})
	}

	t.Run("adjacentStartCodes", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{
			0x00, 0x00, 0x01,
			0x00, 0x00, 0x01, 0x67, 0x42,
			0x00, 0x00, 0x01, 0x68, 0xee,
			0x00, 0x00, 0x01, 0x65, 0x88,
		})
		require.ErrorIs(t, err, ErrNALUEmpty)
	})
	t.Run("adjacentStartCodesMidStream", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{
			0x00, 0x00, 0x01, 0x67, 0x42,
			0x00, 0x00, 0x01,
			0x00, 0x00, 0x00, 0x01, 0x65, 0x88,
		})
		require.ErrorIs(t, err, ErrNALUEmpty)
	})
	t.Run("tooBig", func(t *testing.T) {
		input := append(
			[]byte{0x00, 0x00, 0x01, 0x65},
			bytes.Repeat([]byte{0xaa}, MaxNALUSize)...)
		input = append(input, 0x00, 0x00, 0x01, 0x41, 0x9a)

		_, err := AnnexBUnmarshal(input)
		var tooBig NALUTooBigError
		require.ErrorAs(t, err, &tooBig)
		require.Equal(t, MaxNALUSize+1, tooBig.NALUSize)
	})
	t.Run("tailTooBig", func(t *testing.T) {
		// The last unit has no closing start code but is still
		// subject to the size limit.
		input := append(
			[]byte{0x00, 0x00, 0x01, 0x65},
			bytes.Repeat([]byte{0xaa}, MaxNALUSize)...)

		_, err := AnnexBUnmarshal(input)
		var tooBig NALUTooBigError
		require.ErrorAs(t, err, &tooBig)
		require.Equal(t, MaxNALUSize+1, tooBig.NALUSize)
	})
	t.Run("noStartCode", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{0x67, 0x42, 0x00, 0x1e})
		require.ErrorIs(t, err, ErrDelimiterNotFound)
	})
	t.Run("onlyStartCode", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{0x00, 0x00, 0x01})
		require.ErrorIs(t, err, ErrNALUEmpty)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := AnnexBUnmarshal(nil)
		require.ErrorIs(t, err, ErrDelimiterNotFound)
	})
}

// Segmenting and re-marshaling must reconstruct the stream
// byte-for-byte when the input uses 4-byte start codes.
func TestAnnexBRoundTrip(t *testing.T) {
	input := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1e,
		0x00, 0x00, 0x00, 0x01, 0x68, 0xee, 0x3c, 0x80,
		0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x01,
	}
	nalus, err := AnnexBUnmarshal(input)
	require.NoError(t, err)
	require.Len(t, nalus, 3)
	require.Equal(t, input, AnnexBMarshal(nalus))
}

func TestTypeOf(t *testing.T) {
	require.Equal(t, NALUTypeSPS, TypeOf([]byte{0x67}))
	require.Equal(t, NALUTypePPS, TypeOf([]byte{0x68}))
	require.Equal(t, NALUTypeIDR, TypeOf([]byte{0x65}))
	require.Equal(t, NALUTypeNonIDR, TypeOf([]byte{0x41}))
	require.Equal(t, NALUTypeSEI, TypeOf([]byte{0x06}))
}
