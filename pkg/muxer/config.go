package muxer

import "fmt"

// TrackConfig describes the single video track of the output container.
// The caller is authoritative for the geometry even when it disagrees
// with the stream's SPS.
type TrackConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Timescale uint32 `yaml:"timescale"`
	FrameRate int    `yaml:"frameRate"`
}

// Validate config.
func (c TrackConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", c.Width, c.Height)
	}
	if c.Width > 0xFFFF || c.Height > 0xFFFF {
		return fmt.Errorf("dimensions exceed 16 bits: %dx%d", c.Width, c.Height)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate: %d", c.FrameRate)
	}
	if c.Timescale == 0 {
		return fmt.Errorf("invalid timescale: %d", c.Timescale)
	}
	if c.Timescale < uint32(c.FrameRate) {
		return fmt.Errorf("timescale %d smaller than frame rate %d",
			c.Timescale, c.FrameRate)
	}
	return nil
}

// FrameDuration returns the per-frame tick count in timescale units.
// The division truncates, so timescales that are not a multiple of the
// frame rate lose sub-tick precision.
func (c TrackConfig) FrameDuration() uint32 {
	return c.Timescale / uint32(c.FrameRate)
}
