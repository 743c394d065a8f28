package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vigil/internal/simulator"
	"github.com/okian/vigil/pkg/logger"
)

// Default configuration constants.
const (
	defaultURL      = "http://localhost:9080"
	defaultDuration = 10 * time.Second
	defaultFPS      = 30
	defaultBatch    = 30
	defaultWorkers  = 4
	defaultTimeout  = 30 * time.Second
	defaultSeed     = 42
	runTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", defaultURL, "Base URL of the service")
		scenarios = flag.String("scenarios", "", "Comma separated scenarios to run (default: all)")
		duration  = flag.Duration("duration", defaultDuration, "Length of every synthetic stream")
		fps       = flag.Int("fps", defaultFPS, "Frames per second")
		batch     = flag.Int("batch", defaultBatch, "Frames per request")
		workers   = flag.Int("workers", defaultWorkers, "Scenarios run concurrently")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", defaultSeed, "Noise seed")
		verbose   = flag.Bool("verbose", false, "Log every request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	names, err := simulator.ParseScenarios(*scenarios)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := simulator.Config{
		BaseURL:   *baseURL,
		Scenarios: names,
		Duration:  *duration,
		FPS:       *fps,
		Batch:     *batch,
		Workers:   *workers,
		Timeout:   *timeout,
		Seed:      *seed,
		Verbose:   *verbose,
	}

	if _, err := simulator.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1) //nolint:gocritic // deferred cancels already ran
	}
}
