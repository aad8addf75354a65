// Package speaker implements the single consumer of the notification queue.
// It polls the queue, converts each message to speech through a TTS provider,
// and renders it on the audio device. Synthesis failures degrade to log-only
// delivery; a notification is never lost between dequeue and the recorder.
package speaker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"hearsay/internal/config"
	"hearsay/internal/telemetry"
	"hearsay/internal/types"
)

// Source is the queue surface the speaker consumes. Satisfied by
// *queue.Queue; narrowed to an interface so tests can script dequeues.
type Source interface {
	Dequeue() *types.Message
}

// Speaker is the delivery loop. Construct with New and drive with Run.
type Speaker struct {
	cfg      config.SpeakerConfig
	src      Source
	synth    Synthesizer // nil means log-only delivery
	player   Player
	recorder telemetry.Recorder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New wires the delivery loop. synth may be nil when no TTS provider is
// configured; player and recorder must not be.
func New(
	cfg config.SpeakerConfig,
	src Source,
	synth Synthesizer,
	player Player,
	recorder telemetry.Recorder,
	logger *slog.Logger,
) *Speaker {
	return &Speaker{
		cfg:      cfg,
		src:      src,
		synth:    synth,
		player:   player,
		recorder: recorder,
		limiter:  rate.NewLimiter(rate.Every(cfg.UtteranceInterval), 1),
		logger:   logger,
	}
}

// Run polls the queue until ctx is cancelled. An empty queue backs off for
// the poll interval; the rate limiter spaces consecutive utterances so
// back-to-back notifications stay intelligible.
func (s *Speaker) Run(ctx context.Context) error {
	s.logger.Info("speaker started",
		"poll_interval", s.cfg.PollInterval,
		"tts_enabled", s.synth != nil,
	)

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		msg := s.src.Dequeue()
		if msg == nil {
			timer.Reset(s.cfg.PollInterval)
			select {
			case <-ctx.Done():
				s.logger.Info("speaker stopped")
				return nil
			case <-timer.C:
			}
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			// Shutdown mid-wait: deliver the dequeued message to the
			// recorder so it is accounted for, then exit.
			s.recorder.RecordDelivery(msg, 0, ctx.Err())
			s.logger.Info("speaker stopped")
			return nil
		}

		s.deliver(ctx, msg)
	}
}

// deliver speaks one message, degrading to a log line when synthesis or
// playback fails.
func (s *Speaker) deliver(ctx context.Context, msg *types.Message) {
	start := time.Now()

	if s.synth == nil {
		s.logger.Info("notification",
			"content", msg.Content,
			"priority", msg.Priority.String(),
		)
		s.recorder.RecordDelivery(msg, time.Since(start), nil)
		return
	}

	pcm, err := s.synth.Synthesize(ctx, msg.Content)
	if err == nil {
		err = s.player.Play(ctx, pcm)
	}
	if err != nil {
		s.logger.Warn("spoken delivery failed, falling back to log",
			"error", err,
			"content", msg.Content,
		)
	}
	s.recorder.RecordDelivery(msg, time.Since(start), err)
}
