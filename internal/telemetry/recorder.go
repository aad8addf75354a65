// Package telemetry records delivery outcomes for the notification pipeline:
// structured logs for live observation and an optional compressed journal for
// offline analysis of what the session actually spoke.
package telemetry

import (
	"log/slog"
	"time"

	"hearsay/internal/types"
)

// Recorder receives one call per delivery attempt.
type Recorder interface {
	RecordDelivery(m *types.Message, elapsed time.Duration, err error)
}

// LogRecorder writes delivery outcomes to the structured logger, appending to
// a journal when one is configured.
type LogRecorder struct {
	logger  *slog.Logger
	journal *Journal
}

var _ Recorder = (*LogRecorder)(nil)

// NewLogRecorder builds a recorder. journal may be nil.
func NewLogRecorder(logger *slog.Logger, journal *Journal) *LogRecorder {
	return &LogRecorder{logger: logger, journal: journal}
}

// RecordDelivery logs the outcome and journals it. Journal write failures are
// logged and swallowed; observability must never block delivery.
func (r *LogRecorder) RecordDelivery(m *types.Message, elapsed time.Duration, err error) {
	args := []any{
		slog.String("id", m.ID),
		slog.String("priority", m.Priority.String()),
		slog.String("type", string(m.Type)),
		slog.String("context_group", m.ContextGroup()),
		slog.Int("batch_size", m.BatchSize()),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		r.logger.Warn("delivery degraded", append(args, slog.Any("error", err))...)
	} else {
		r.logger.Info("notification delivered", args...)
	}

	if r.journal == nil {
		return
	}
	entry := Entry{
		Time:         time.Now().UTC(),
		ID:           m.ID,
		Content:      m.Content,
		Priority:     m.Priority.String(),
		Type:         string(m.Type),
		ContextGroup: m.ContextGroup(),
		BatchSize:    m.BatchSize(),
		ElapsedMS:    elapsed.Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if jerr := r.journal.Append(entry); jerr != nil {
		r.logger.Warn("journal append failed", "error", jerr)
	}
}

// NopRecorder discards all records. Used in tests.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) RecordDelivery(*types.Message, time.Duration, error) {}
