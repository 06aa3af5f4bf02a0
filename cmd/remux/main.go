// Package main is a CLI utility that converts raw H.264 Annex-B
// streams into playable mp4 files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"remux/pkg/log"
	"remux/pkg/muxer"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

var cli struct {
	Env       string   `help:"Path to yaml config file." type:"existingfile"`
	Width     int      `help:"Video width in pixels."`
	Height    int      `help:"Video height in pixels."`
	Timescale uint32   `help:"Track timescale in ticks per second."`
	FrameRate int      `help:"Constant frame rate of the input."`
	Strategy  string   `help:"Moov placement: trailer or placeholder."`
	Mvex      bool     `help:"Append a movie extends box to the moov."`
	Workers   int      `help:"Number of files to convert in parallel."`
	LogDB     string   `help:"Path to the log database." type:"path"`
	Verbose   bool     `help:"Print debug logs."`
	Paths     []string `arg:"" help:"Input files or directories." type:"path"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("remux"),
		kong.Description("convert raw H.264 Annex-B streams into mp4 files"))

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "remux: %v\n", err)
		os.Exit(1)
	}
}

func run() error { //nolint:funlen
	var envYAML []byte
	if cli.Env != "" {
		var err error
		envYAML, err = os.ReadFile(cli.Env)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	env, err := NewConfigEnv(envYAML)
	if err != nil {
		return err
	}
	applyOverrides(env)

	strategy, err := parseStrategy(env.Strategy)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	logger := log.NewLogger(wg)
	logger.Start(ctx)
	go logger.LogToStdout(ctx)

	if env.LogDBPath != "" {
		logDB := log.NewDB(env.LogDBPath, wg)
		if err := logDB.Init(ctx); err != nil {
			return err
		}
		go logDB.SaveLogs(ctx, logger)
	}

	inputs, err := findInputs(cli.Paths)
	if err != nil {
		return err
	}
	logger.Info().Src("app").Msgf("found %v new files", len(inputs))

	c := &converter{
		cfg: muxer.TrackConfig{
			Width:     env.Width,
			Height:    env.Height,
			Timescale: env.Timescale,
			FrameRate: env.FrameRate,
		},
		opts: muxer.Options{
			Strategy: strategy,
			Mvex:     env.Mvex,
		},
		logger:  logger,
		verbose: cli.Verbose,
	}

	var failed atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(env.Workers)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			output := outputPath(input)
			if err := c.convert(input, output); err != nil {
				failed.Add(1)
				logger.Error().Src("convert").File(input).Msgf("%v", err)
				return nil
			}
			logger.Info().Src("convert").File(input).Msgf("wrote %v", output)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%v of %v conversions failed", n, len(inputs))
	}

	cancel()
	wg.Wait()
	return nil
}

// applyOverrides applies non-zero command line flags on top of the
// file configuration.
func applyOverrides(env *ConfigEnv) {
	if cli.Width != 0 {
		env.Width = cli.Width
	}
	if cli.Height != 0 {
		env.Height = cli.Height
	}
	if cli.Timescale != 0 {
		env.Timescale = cli.Timescale
	}
	if cli.FrameRate != 0 {
		env.FrameRate = cli.FrameRate
	}
	if cli.Strategy != "" {
		env.Strategy = cli.Strategy
	}
	if cli.Mvex {
		env.Mvex = true
	}
	if cli.Workers != 0 {
		env.Workers = cli.Workers
	}
	if cli.LogDB != "" {
		env.LogDBPath = cli.LogDB
	}
}

// findInputs expands files and directories into a list of streams
// that do not have an output file yet. Directories are searched for
// .h264 and .264 files.
func findInputs(paths []string) ([]string, error) {
	var inputs []string

	addFile := func(path string) error {
		_, err := os.Stat(outputPath(path))
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		inputs = append(inputs, path)
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", path, err)
		}
		if !info.IsDir() {
			if err := addFile(path); err != nil {
				return nil, err
			}
			continue
		}

		walkFunc := func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("%v: %w", path, err)
			}
			if entry.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".h264", ".264":
				return addFile(path)
			}
			return nil
		}
		if err := filepath.WalkDir(path, walkFunc); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}
