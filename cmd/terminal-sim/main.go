package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksred/watchdog/internal/queue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// init configures the logger for the simulator with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// main plays the trading terminal against a Files directory, and with
// -load drives the dashboard API to feed it
func main() {
	var (
		filesDir = flag.String("files", envOr("FILES_DIR", "./files"), "terminal Files directory")
		interval = flag.Duration("interval", time.Second, "terminal cycle interval")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "price walk seed")
		load     = flag.Int("load", 0, "orders to submit through the API, 0 disables")
		workers  = flag.Int("workers", 5, "concurrent submitters")
		server   = flag.String("server", "http://localhost:8080", "dashboard API address")
		passP    = flag.String("pass-p", os.Getenv("PASS_P"), "password for approver P")
		passR    = flag.String("pass-r", os.Getenv("PASS_R"), "password for approver R")
	)
	flag.Parse()

	if err := os.MkdirAll(*filesDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("files_dir", *filesDir).Msg("Failed to create files directory")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	term := newTerminal(queue.NewFileStore(*filesDir, nil), *seed)

	if *load > 0 {
		if *workers < 1 {
			*workers = 1
		}
		go func() {
			runLoad(newLoadClient(*server, *passP, *passR), *load, *workers)
		}()
	}

	log.Info().
		Str("files_dir", *filesDir).
		Dur("interval", *interval).
		Msg("Terminal simulator started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if err := term.step(time.Now()); err != nil {
			log.Error().Err(err).Msg("Terminal cycle failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Terminal simulator stopped")
			return
		case <-ticker.C:
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
