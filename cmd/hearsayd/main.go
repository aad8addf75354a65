// Package main is the entry point for the hearsay daemon.
//
// It loads configuration from the environment, builds the priority message
// queue, starts the hook ingress HTTP server and the speaker delivery loop,
// and runs both until an OS signal (SIGINT, SIGTERM) triggers graceful
// shutdown: the ingress drains in-flight requests, the speaker finishes its
// current utterance, and the delivery journal is flushed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"hearsay/internal/config"
	"hearsay/internal/ingress"
	"hearsay/internal/queue"
	"hearsay/internal/speaker"
	"hearsay/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("hearsay starting",
		"environment", cfg.Environment,
		"addr", cfg.Server.Addr,
		"tts_enabled", cfg.Speaker.ProviderURL != "",
		"audio", cfg.Speaker.Audio,
	)

	q, err := queue.New(cfg.Queue.QueueConfig(), queue.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating queue: %w", err)
	}

	srv, err := ingress.NewServer(cfg.Server, q, logger)
	if err != nil {
		return fmt.Errorf("creating ingress server: %w", err)
	}

	var journal *telemetry.Journal
	if cfg.Telemetry.JournalPath != "" {
		journal, err = telemetry.OpenJournal(cfg.Telemetry.JournalPath)
		if err != nil {
			return fmt.Errorf("opening delivery journal: %w", err)
		}
		defer func() {
			if cerr := journal.Close(); cerr != nil {
				logger.Error("closing journal", "error", cerr)
			}
		}()
	}
	recorder := telemetry.NewLogRecorder(logger, journal)

	var synth speaker.Synthesizer
	if cfg.Speaker.ProviderURL != "" {
		synth = speaker.NewHTTPSynthesizer(cfg.Speaker.ProviderURL, cfg.Speaker.ProviderTimeout)
	}

	player, err := newPlayer(cfg.Speaker, logger)
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer func() {
		if cerr := player.Close(); cerr != nil {
			logger.Error("closing audio player", "error", cerr)
		}
	}()

	spk := speaker.New(cfg.Speaker, q, synth, player, recorder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return spk.Run(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("hearsay stopped")
	return nil
}

// newPlayer selects the audio backend. Headless hosts set HEARSAY_AUDIO=off
// and the daemon delivers to the log and journal only.
func newPlayer(cfg config.SpeakerConfig, logger *slog.Logger) (speaker.Player, error) {
	if cfg.Audio == "off" {
		logger.Info("audio playback disabled")
		return speaker.NopPlayer{}, nil
	}
	return speaker.NewOtoPlayer(cfg.SampleRate)
}
