package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/similarity"
	"hearsay/internal/types"
)

// failingScorer always errors, for fail-open coverage.
type failingScorer struct{}

func (failingScorer) Score(similarity.Signature, similarity.Signature) (float64, error) {
	return 0, errors.New("scorer backend unavailable")
}

// panickyScorer panics, proving the recovery seam.
type panickyScorer struct{}

func (panickyScorer) Score(similarity.Signature, similarity.Signature) (float64, error) {
	panic("index out of range")
}

func TestDedup_ExactDuplicateRejected(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "Build completed successfully", types.PriorityMedium, types.TypeSuccess)))
	assert.False(t, q.Enqueue(msg(t, "Build completed successfully", types.PriorityMedium, types.TypeSuccess)))

	// Normalization makes punctuation and case differences exact duplicates.
	assert.False(t, q.Enqueue(msg(t, "build completed, successfully!", types.PriorityMedium, types.TypeSuccess)))

	assert.Equal(t, uint64(2), q.Analytics().DuplicatesRemoved)
	assert.Equal(t, 1, q.Size())
}

func TestDedup_FuzzyRejectsRewordedRoutine(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "File processing completed", types.PriorityMedium, types.TypeSuccess)))

	// Same tokens, different order: not an exact hash match, but well over
	// the routine threshold.
	assert.False(t, q.Enqueue(msg(t, "Processing file completed", types.PriorityMedium, types.TypeSuccess)))
	assert.Equal(t, uint64(1), q.Analytics().DuplicatesRemoved)
}

func TestDedup_AlertsKeepDistinctErrors(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "Error reading file config.json", types.PriorityCritical, types.TypeError)))

	// Similar shape, different file: a distinct failure the user must hear.
	assert.True(t, q.Enqueue(msg(t, "Error reading file settings.json", types.PriorityCritical, types.TypeError)))
	assert.Equal(t, uint64(0), q.Analytics().DuplicatesRemoved)
	assert.Equal(t, 2, q.Size())
}

func TestDedup_ContextGroupsIsolate(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "Operation completed", types.PriorityMedium, types.TypeSuccess,
		types.WithProvenance("Read", "post_tool_use"))))

	// Identical content from a different tool is a different notification.
	assert.True(t, q.Enqueue(msg(t, "Operation completed", types.PriorityMedium, types.TypeSuccess,
		types.WithProvenance("Write", "post_tool_use"))))

	// Same tool again: duplicate.
	assert.False(t, q.Enqueue(msg(t, "Operation completed", types.PriorityMedium, types.TypeSuccess,
		types.WithProvenance("Read", "post_tool_use"))))

	assert.Equal(t, uint64(1), q.Analytics().DuplicatesRemoved)
}

func TestDedup_RetentionExpiry(t *testing.T) {
	q, clk := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "Recurring reminder message", types.PriorityMedium, types.TypeSuccess)))
	assert.False(t, q.Enqueue(msg(t, "Recurring reminder message", types.PriorityMedium, types.TypeSuccess)))

	clk.Advance(6 * time.Minute)

	// Past the retention window the content is fresh again. The new message
	// needs its own recent timestamp to pass the staleness filter.
	again := msg(t, "Recurring reminder message", types.PriorityMedium, types.TypeSuccess,
		types.WithCreatedAt(clk.Now()))
	assert.True(t, q.Enqueue(again))
}

func TestDedup_HistoryLimitBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	q, clk := newTestQueue(t, cfg)

	require.True(t, q.Enqueue(msg(t, "alpha finished compiling cleanly", types.PriorityMedium, types.TypeWarning, types.WithCreatedAt(clk.Now()))))
	require.True(t, q.Enqueue(msg(t, "beta deployment reached production", types.PriorityMedium, types.TypeWarning, types.WithCreatedAt(clk.Now()))))
	require.True(t, q.Enqueue(msg(t, "gamma tests were skipped entirely", types.PriorityMedium, types.TypeWarning, types.WithCreatedAt(clk.Now()))))

	// The oldest entry fell off the bounded history, so its content is no
	// longer a duplicate.
	assert.True(t, q.Enqueue(msg(t, "alpha finished compiling cleanly", types.PriorityMedium, types.TypeWarning, types.WithCreatedAt(clk.Now()))))
}

func TestDedup_ScorerErrorFailsOpen(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig(), WithScorer(failingScorer{}))

	require.True(t, q.Enqueue(msg(t, "First distinct message", types.PriorityMedium, types.TypeSuccess)))

	// Different hash, so only the fuzzy path could reject; a broken scorer
	// must admit rather than silently drop.
	assert.True(t, q.Enqueue(msg(t, "Second rather different message", types.PriorityMedium, types.TypeSuccess)))
	assert.Equal(t, uint64(1), q.Analytics().ScorerErrors)
	assert.Equal(t, uint64(0), q.Analytics().DuplicatesRemoved)
}

func TestDedup_ScorerPanicFailsOpen(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig(), WithScorer(panickyScorer{}))

	require.True(t, q.Enqueue(msg(t, "First distinct message", types.PriorityMedium, types.TypeSuccess)))
	assert.True(t, q.Enqueue(msg(t, "Second rather different message", types.PriorityMedium, types.TypeSuccess)))
	assert.Equal(t, uint64(1), q.Analytics().ScorerErrors)

	// Exact duplicates are still caught without the scorer.
	assert.False(t, q.Enqueue(msg(t, "First distinct message", types.PriorityMedium, types.TypeSuccess)))
}

func TestDedup_InterruptBypasses(t *testing.T) {
	q, _ := newTestQueue(t, DefaultConfig())

	require.True(t, q.Enqueue(msg(t, "Attention required immediately", types.PriorityInterrupt, types.TypeInterrupt)))
	assert.True(t, q.Enqueue(msg(t, "Attention required immediately", types.PriorityInterrupt, types.TypeInterrupt)))
	assert.Equal(t, uint64(0), q.Analytics().DuplicatesRemoved)
}
