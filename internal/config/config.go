// Package config defines the configuration for the hearsay daemon.
// Configuration is loaded once at process start and is immutable thereafter,
// resolved from the OS environment with .env file fallback. Any missing
// required value or invalid format fails startup (fail fast); thresholds are
// never silently clamped.
package config

import (
	"time"

	"hearsay/internal/queue"
)

// Config is the top-level configuration struct. Sub-components receive only
// the subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Queue     QueueConfig
	Speaker   SpeakerConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds the hook ingress HTTP server settings. The daemon binds
// loopback by default; hooks on the same machine are the only producers.
type ServerConfig struct {
	Addr            string        `envconfig:"HEARSAY_ADDR" default:"127.0.0.1:8487"`
	ReadTimeout     time.Duration `envconfig:"HEARSAY_READ_TIMEOUT" default:"5s" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"HEARSAY_WRITE_TIMEOUT" default:"5s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"HEARSAY_SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// QueueConfig holds the priority queue tuning knobs. Defaults mirror
// queue.DefaultConfig; validation here catches bad values before the queue's
// own fail-fast check so the operator sees the env var name in the error.
type QueueConfig struct {
	MaxLength         int           `envconfig:"HEARSAY_MAX_QUEUE" default:"500" validate:"gte=0"`
	StaleAfter        time.Duration `envconfig:"HEARSAY_STALE_AFTER" default:"3m" validate:"gt=0"`
	DedupRetention    time.Duration `envconfig:"HEARSAY_DEDUP_RETENTION" default:"5m" validate:"gt=0"`
	RoutineSimilarity float64       `envconfig:"HEARSAY_ROUTINE_SIMILARITY" default:"0.70" validate:"gt=0,lte=1"`
	AlertSimilarity   float64       `envconfig:"HEARSAY_ALERT_SIMILARITY" default:"0.85" validate:"gt=0,lte=1"`
	BatchCount        int           `envconfig:"HEARSAY_BATCH_COUNT" default:"3" validate:"gte=2"`
	BatchWindow       time.Duration `envconfig:"HEARSAY_BATCH_WINDOW" default:"1s" validate:"gt=0"`
	HistoryLimit      int           `envconfig:"HEARSAY_HISTORY_LIMIT" default:"256" validate:"gt=0"`
}

// QueueConfig converts the env-tagged struct into the queue package's config.
func (c QueueConfig) QueueConfig() queue.Config {
	return queue.Config{
		MaxLength:         c.MaxLength,
		StaleAfter:        c.StaleAfter,
		DedupRetention:    c.DedupRetention,
		RoutineSimilarity: c.RoutineSimilarity,
		AlertSimilarity:   c.AlertSimilarity,
		BatchCount:        c.BatchCount,
		BatchWindow:       c.BatchWindow,
		HistoryLimit:      c.HistoryLimit,
	}
}

// SpeakerConfig holds the consumer loop and TTS provider settings.
type SpeakerConfig struct {
	// ProviderURL is the HTTP TTS endpoint returning raw 16-bit mono PCM.
	// Empty disables synthesis; messages are logged instead of spoken.
	ProviderURL string `envconfig:"HEARSAY_TTS_URL" validate:"omitempty,url"`

	ProviderTimeout time.Duration `envconfig:"HEARSAY_TTS_TIMEOUT" default:"10s" validate:"gt=0"`

	// PollInterval is the consumer's idle backoff between empty dequeues.
	PollInterval time.Duration `envconfig:"HEARSAY_POLL_INTERVAL" default:"100ms" validate:"gt=0"`

	// UtteranceInterval rate-limits speech: minimum spacing between spoken
	// notifications so back-to-back messages stay intelligible.
	UtteranceInterval time.Duration `envconfig:"HEARSAY_UTTERANCE_INTERVAL" default:"500ms" validate:"gt=0"`

	// Audio selects the playback backend: "oto" for the system audio
	// device, "off" for headless operation (log-only delivery).
	Audio string `envconfig:"HEARSAY_AUDIO" default:"oto" validate:"oneof=oto off"`

	SampleRate int `envconfig:"HEARSAY_SAMPLE_RATE" default:"44100" validate:"oneof=44100 48000"`
}

// TelemetryConfig holds observability output settings.
type TelemetryConfig struct {
	// JournalPath is the gzip JSONL file recording delivered notifications.
	// Empty disables the journal.
	JournalPath string `envconfig:"HEARSAY_JOURNAL"`
}
