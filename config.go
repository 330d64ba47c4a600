package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"ratedemo/tasks"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var ErrNegativeDuration = errors.New("must not be negative")

type Config struct {
	Throttle   time.Duration
	Debounce   time.Duration
	BurstCount int
	BurstEvery time.Duration
	WatchDir   string
	LogPath    string
	Trace      string
}

func parseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("ratedemo", flag.ContinueOnError)
	fs.DurationVar(&cfg.Throttle, "throttle", time.Second, "throttle interval")
	fs.DurationVar(&cfg.Debounce, "debounce", time.Second, "debounce quiet period")
	fs.IntVar(&cfg.BurstCount, "burst", 25, "clicks fired by a burst")
	fs.DurationVar(&cfg.BurstEvery, "burst-every", 80*time.Millisecond, "pause between burst clicks")
	fs.StringVar(&cfg.WatchDir, "watch", "", "directory whose file writes count as clicks")
	fs.StringVar(&cfg.LogPath, "log", "", "write debug logs to this file")
	fs.StringVar(&cfg.Trace, "trace", "", "print the execution trace for comma separated call offsets (ms) and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Throttle < 0 {
		return Config{}, fmt.Errorf("throttle[%s] %w", cfg.Throttle, ErrNegativeDuration)
	}
	if cfg.Debounce < 0 {
		return Config{}, fmt.Errorf("debounce[%s] %w", cfg.Debounce, ErrNegativeDuration)
	}
	if cfg.BurstCount <= 0 || cfg.BurstEvery <= 0 {
		return Config{}, fmt.Errorf("burst[%d] and burst-every[%s] %w", cfg.BurstCount, cfg.BurstEvery, tasks.ErrMustBePositive)
	}
	return cfg, nil
}

// setupLogging points slog at path. The TUI owns the terminal, so with no
// path logs are dropped.
func setupLogging(path string) (io.Closer, error) {
	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	f, err := tea.LogToFile(path, "ratedemo")
	if err != nil {
		return nil, fmt.Errorf("can't open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f, nil
}
