package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"remux/pkg/h264"
	"remux/pkg/log"
	"remux/pkg/muxer"
	"remux/pkg/muxer/writerseeker"
)

type converter struct {
	cfg     muxer.TrackConfig
	opts    muxer.Options
	logger  *log.Logger
	verbose bool
}

// convert reads an Annex-B file and writes the finished container
// next to it. The output is built in memory and committed with a
// rename, so a failed conversion leaves no partial file behind.
func (c *converter) convert(inputPath, outputPath string) error {
	buf, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	nalus, err := h264.AnnexBUnmarshal(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", muxer.ErrMalformedStream, err)
	}

	c.logStats(inputPath, nalus)
	c.checkGeometry(inputPath, nalus)

	ws := &writerseeker.WriterSeeker{}
	m, err := muxer.NewMuxer(ws, c.cfg, c.opts)
	if err != nil {
		return err
	}
	for _, nalu := range nalus {
		if err := m.WriteNALU(nalu); err != nil {
			return err
		}
	}
	if err := m.Finalize(); err != nil {
		return err
	}

	c.logger.Info().Src("convert").File(inputPath).
		Msgf("%v samples, %v bytes", m.SampleCount(), len(ws.Bytes()))

	return writeFileAtomic(outputPath, ws.Bytes())
}

func (c *converter) logStats(path string, nalus [][]byte) {
	if !c.verbose {
		return
	}
	stats := h264.NewStreamStats()
	for _, nalu := range nalus {
		stats.Add(nalu)
	}
	for typ, s := range stats.Types {
		c.logger.Debug().Src("scan").File(path).
			Msgf("%v: %v units, %v bytes", typ, s.Count, s.Bytes)
	}
}

// checkGeometry warns when the stream SPS disagrees with the
// configured track geometry. The configuration stays authoritative.
func (c *converter) checkGeometry(path string, nalus [][]byte) {
	for _, nalu := range nalus {
		if h264.TypeOf(nalu) != h264.NALUTypeSPS {
			continue
		}
		var sps h264.SPS
		if err := sps.Unmarshal(nalu); err != nil {
			c.logger.Warn().Src("scan").File(path).
				Msgf("could not parse sps: %v", err)
			return
		}
		if sps.Width() != c.cfg.Width || sps.Height() != c.cfg.Height {
			c.logger.Warn().Src("scan").File(path).
				Msgf("sps geometry %vx%v does not match configured %vx%v",
					sps.Width(), sps.Height(), c.cfg.Width, c.cfg.Height)
		}
		return
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func outputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".mp4"
}
