package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	"remux/pkg/muxer"

	"gopkg.in/yaml.v2"
)

// ConfigEnv stores the default conversion settings. Command line
// flags override individual fields.
type ConfigEnv struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Timescale uint32 `yaml:"timescale"`
	FrameRate int    `yaml:"frameRate"`
	Strategy  string `yaml:"strategy"`
	Mvex      bool   `yaml:"mvex"`
	Workers   int    `yaml:"workers"`
	LogDBPath string `yaml:"logDBPath"`
}

// ErrPathNotAbsolute path is not absolute.
var ErrPathNotAbsolute = fmt.Errorf("path is not absolute")

// NewConfigEnv return new environment configuration.
func NewConfigEnv(envYAML []byte) (*ConfigEnv, error) {
	var env ConfigEnv

	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return nil, fmt.Errorf("unmarshal env.yaml: %w", err)
	}

	if env.Width == 0 {
		env.Width = 640
	}
	if env.Height == 0 {
		env.Height = 480
	}
	if env.Timescale == 0 {
		env.Timescale = 90000
	}
	if env.FrameRate == 0 {
		env.FrameRate = 30
	}
	if env.Strategy == "" {
		env.Strategy = "trailer"
	}
	if env.Workers == 0 {
		env.Workers = runtime.NumCPU()
	}

	if _, err := parseStrategy(env.Strategy); err != nil {
		return nil, err
	}
	if env.LogDBPath != "" && !filepath.IsAbs(env.LogDBPath) {
		return nil, fmt.Errorf("logDBPath '%v': %w", env.LogDBPath, ErrPathNotAbsolute)
	}

	return &env, nil
}

func parseStrategy(s string) (muxer.Strategy, error) {
	switch s {
	case "trailer":
		return muxer.StrategyTrailer, nil
	case "placeholder":
		return muxer.StrategyPlaceholder, nil
	}
	return 0, fmt.Errorf("unknown strategy: %v", s)
}
