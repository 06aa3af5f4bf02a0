package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"remux/pkg/h264"
	"remux/pkg/log"
	"remux/pkg/muxer"

	"github.com/stretchr/testify/require"
)

var (
	testSPS = []byte{0x67, 0x42, 0x00, 0x1e, 0xab, 0x40, 0xb0, 0x1e, 0x80}
	testPPS = []byte{0x68, 0xee, 0x3c, 0x80}
	testIDR = []byte{0x65, 0x88, 0x84, 0x00, 0x33, 0xff}
)

func newTestConverter(t *testing.T) *converter {
	logger := log.NewMockLogger()
	ctx, cancel := context.WithCancel(context.Background())
	logger.Start(ctx)
	t.Cleanup(cancel)

	return &converter{
		cfg: muxer.TrackConfig{
			Width:     640,
			Height:    480,
			Timescale: 90000,
			FrameRate: 30,
		},
		logger:  logger,
		verbose: true,
	}
}

func TestConvert(t *testing.T) {
	t.Run("working", func(t *testing.T) {
		tempDir := t.TempDir()
		input := filepath.Join(tempDir, "stream.h264")
		output := filepath.Join(tempDir, "stream.mp4")

		stream := h264.AnnexBMarshal([][]byte{testSPS, testPPS, testIDR})
		require.NoError(t, os.WriteFile(input, stream, 0o600))

		c := newTestConverter(t)
		require.NoError(t, c.convert(input, output))

		buf, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, []byte("ftyp"), buf[4:8])

		// No temp file left behind.
		_, err = os.Stat(output + ".tmp")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("missingInput", func(t *testing.T) {
		c := newTestConverter(t)
		err := c.convert("/nil", "/nil.mp4")
		require.Error(t, err)
	})
	t.Run("malformed", func(t *testing.T) {
		tempDir := t.TempDir()
		input := filepath.Join(tempDir, "bad.h264")
		require.NoError(t, os.WriteFile(input, []byte{0, 1, 2, 3}, 0o600))

		c := newTestConverter(t)
		err := c.convert(input, filepath.Join(tempDir, "bad.mp4"))
		require.ErrorIs(t, err, muxer.ErrMalformedStream)
	})
	t.Run("adjacentStartCodes", func(t *testing.T) {
		tempDir := t.TempDir()
		input := filepath.Join(tempDir, "gap.h264")

		// An empty unit between two start codes.
		stream := append(
			[]byte{0x00, 0x00, 0x01},
			h264.AnnexBMarshal([][]byte{testSPS, testPPS, testIDR})...)
		require.NoError(t, os.WriteFile(input, stream, 0o600))

		c := newTestConverter(t)
		err := c.convert(input, filepath.Join(tempDir, "gap.mp4"))
		require.ErrorIs(t, err, muxer.ErrMalformedStream)
		require.ErrorIs(t, err, h264.ErrNALUEmpty)
	})
	t.Run("idrBeforeParameterSets", func(t *testing.T) {
		tempDir := t.TempDir()
		input := filepath.Join(tempDir, "idr.h264")
		output := filepath.Join(tempDir, "idr.mp4")

		stream := h264.AnnexBMarshal([][]byte{testIDR})
		require.NoError(t, os.WriteFile(input, stream, 0o600))

		c := newTestConverter(t)
		err := c.convert(input, output)
		require.ErrorIs(t, err, muxer.ErrMissingParameterSets)

		// A failed conversion must not leave an output file.
		_, err = os.Stat(output)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, "/a/b.mp4", outputPath("/a/b.h264"))
	require.Equal(t, "/a/b.mp4", outputPath("/a/b.264"))
	require.Equal(t, "/a/b.mp4", outputPath("/a/b"))
}

func TestFindInputs(t *testing.T) {
	tempDir := t.TempDir()

	write := func(name string) string {
		path := filepath.Join(tempDir, name)
		require.NoError(t, os.WriteFile(path, []byte{0}, 0o600))
		return path
	}

	stream1 := write("a.h264")
	stream2 := write("b.264")
	write("c.txt")

	// Streams with an existing output are skipped.
	converted := write("d.h264")
	write("d.mp4")

	t.Run("dir", func(t *testing.T) {
		inputs, err := findInputs([]string{tempDir})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{stream1, stream2}, inputs)
	})
	t.Run("file", func(t *testing.T) {
		inputs, err := findInputs([]string{stream1})
		require.NoError(t, err)
		require.Equal(t, []string{stream1}, inputs)
	})
	t.Run("convertedFile", func(t *testing.T) {
		inputs, err := findInputs([]string{converted})
		require.NoError(t, err)
		require.Empty(t, inputs)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := findInputs([]string{filepath.Join(tempDir, "nil")})
		require.Error(t, err)
	})
}

func TestWriteFileAtomic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out")

	require.NoError(t, writeFileAtomic(path, []byte("data")))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), buf)
}
