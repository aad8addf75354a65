// Package queue implements the core of the hearsay notification pipeline: a
// thread-safe, priority-ordered, deduplicating, auto-batching in-process
// message queue connecting many concurrent hook producers to the speaker
// consumer.
//
// Every message admitted by Enqueue passes through three stages in order --
// staleness filter, deduplication engine, batch aggregator -- before physical
// insertion into one of six per-priority FIFO containers. INTERRUPT messages
// bypass all three stages, flush everything below HIGH priority, and are
// delivered next. All mutation happens under a single mutex per queue
// instance; no operation blocks waiting for content, and no I/O happens
// inside the critical section.
package queue

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hearsay/internal/similarity"
	"hearsay/internal/types"
)

// State is the queue-level delivery state.
type State string

const (
	// StateNormal is the initial state: enqueue and dequeue operate normally.
	StateNormal State = "normal"

	// StateDraining is the transient mid-interrupt state while messages
	// below HIGH priority are being discarded.
	StateDraining State = "draining"

	// StatePaused drops new non-interrupt enqueues; the consumer has
	// signalled that no delivery is desired.
	StatePaused State = "paused"
)

// Config holds the queue's tuning knobs. The similarity and batch thresholds
// are empirically tuned defaults, not derived constants; they are validated
// at construction and never silently clamped.
type Config struct {
	// MaxLength caps the total number of inserted messages. At capacity, a
	// higher-priority arrival evicts the newest lowest-priority occupant;
	// an arrival at the bottom is rejected. Zero means unbounded.
	MaxLength int

	// StaleAfter rejects messages older than this at enqueue time.
	StaleAfter time.Duration

	// DedupRetention is how long admitted messages stay comparable for
	// duplicate detection.
	DedupRetention time.Duration

	// RoutineSimilarity is the rejection threshold for SUCCESS/INFO
	// messages; near-duplicate routine notices are suppressed aggressively.
	RoutineSimilarity float64

	// AlertSimilarity is the rejection threshold for ERROR/WARNING
	// messages. Distinct errors often read alike, so this errs toward
	// delivering.
	AlertSimilarity float64

	// BatchCount flushes a pending batch once this many eligible messages
	// accumulate in one context group.
	BatchCount int

	// BatchWindow flushes a pending batch this long after its first
	// message, whichever trigger fires first.
	BatchWindow time.Duration

	// HistoryLimit bounds the dedup history independent of the retention
	// window.
	HistoryLimit int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxLength:         500,
		StaleAfter:        3 * time.Minute,
		DedupRetention:    5 * time.Minute,
		RoutineSimilarity: 0.70,
		AlertSimilarity:   0.85,
		BatchCount:        3,
		BatchWindow:       time.Second,
		HistoryLimit:      256,
	}
}

// Validate fails fast on out-of-range values.
func (c Config) Validate() error {
	fail := func(field string, v any) error {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("queue config: %s out of range: %v", field, v), nil)
	}
	if c.MaxLength < 0 {
		return fail("MaxLength", c.MaxLength)
	}
	if c.StaleAfter <= 0 {
		return fail("StaleAfter", c.StaleAfter)
	}
	if c.DedupRetention <= 0 {
		return fail("DedupRetention", c.DedupRetention)
	}
	if c.RoutineSimilarity <= 0 || c.RoutineSimilarity > 1 {
		return fail("RoutineSimilarity", c.RoutineSimilarity)
	}
	if c.AlertSimilarity <= 0 || c.AlertSimilarity > 1 {
		return fail("AlertSimilarity", c.AlertSimilarity)
	}
	if c.BatchCount < 2 {
		return fail("BatchCount", c.BatchCount)
	}
	if c.BatchWindow <= 0 {
		return fail("BatchWindow", c.BatchWindow)
	}
	if c.HistoryLimit <= 0 {
		return fail("HistoryLimit", c.HistoryLimit)
	}
	return nil
}

// Queue is the priority message queue. Construct with New; the zero value is
// not usable. Safe for concurrent use by any number of producers and
// consumers.
type Queue struct {
	cfg    Config
	logger *slog.Logger
	scorer similarity.Scorer
	now    func() time.Time

	mu        sync.Mutex
	state     State
	levels    [types.PriorityCount][]*types.Message
	size      int
	history   *history
	batches   map[string]*pendingBatch
	analytics Analytics
}

// Option customizes queue construction.
type Option func(*Queue)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithScorer swaps the similarity scoring strategy.
// Defaults to similarity.TokenOverlapScorer.
func WithScorer(s similarity.Scorer) Option {
	return func(q *Queue) { q.scorer = s }
}

// WithClock overrides the time source. Intended for tests that drive the
// staleness filter, batch windows, and dedup retention deterministically.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New constructs a queue, failing fast on invalid configuration.
func New(cfg Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := &Queue{
		cfg:     cfg,
		logger:  slog.Default(),
		scorer:  similarity.TokenOverlapScorer{},
		now:     time.Now,
		state:   StateNormal,
		batches: make(map[string]*pendingBatch),
		history: newHistory(cfg.DedupRetention, cfg.HistoryLimit),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue runs the admission pipeline and inserts the message. It returns
// false when any stage rejects: malformed input, paused state, staleness,
// duplicate content, or overflow at the bottom priority. A true return means
// the message will be delivered, either individually or inside a batch.
//
// INTERRUPT priority bypasses every check, discards all queued messages
// below HIGH priority, and is placed at the very front.
func (q *Queue) Enqueue(msg *types.Message) bool {
	if msg == nil || !msg.Priority.Valid() || !msg.Type.Valid() ||
		strings.TrimSpace(msg.Content) == "" {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.flushDueBatches(now)

	if msg.Priority == types.PriorityInterrupt {
		q.admitInterrupt(msg)
		return true
	}

	if q.state == StatePaused {
		q.analytics.PausedDrops++
		return false
	}

	if msg.Age(now) > q.cfg.StaleAfter {
		q.analytics.StaleRejected++
		return false
	}

	if q.isDuplicate(msg, now) {
		q.analytics.DuplicatesRemoved++
		return false
	}
	q.history.record(msg, now)

	if batchEligible(msg) {
		q.buffer(msg, now)
		return true
	}

	if !q.insert(msg) {
		return false
	}
	q.analytics.Enqueued++
	return true
}

// Dequeue removes and returns the highest-priority message, FIFO within a
// level. It returns nil immediately on an empty queue; callers poll with
// their own backoff. Due batch windows are flushed first, so an elapsed
// batch is visible to the very dequeue that follows it.
func (q *Queue) Dequeue() *types.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.flushDueBatches(q.now())

	for lvl := range q.levels {
		if len(q.levels[lvl]) == 0 {
			continue
		}
		m := q.levels[lvl][0]
		q.levels[lvl][0] = nil // release for GC before reslicing
		q.levels[lvl] = q.levels[lvl][1:]
		q.size--
		q.analytics.Dequeued++
		return m
	}
	return nil
}

// Peek returns the message Dequeue would return, without removing it.
func (q *Queue) Peek() *types.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.flushDueBatches(q.now())

	for lvl := range q.levels {
		if len(q.levels[lvl]) > 0 {
			return q.levels[lvl][0]
		}
	}
	return nil
}

// Size returns the number of inserted messages. Messages held in pending
// batch buffers are not counted until flushed; see Stats.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// SizeByPriority returns per-level counts.
func (q *Queue) SizeByPriority() map[types.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[types.Priority]int, types.PriorityCount)
	for lvl := range q.levels {
		counts[types.Priority(lvl)] = len(q.levels[lvl])
	}
	return counts
}

// Pause stops delivery intake: subsequent non-interrupt enqueues are dropped
// and counted until Resume. Interrupts are still admitted.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = StatePaused
}

// Resume returns the queue to normal operation.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StatePaused {
		q.state = StateNormal
	}
}

// State returns the current delivery state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// ClearAll empties every priority container, the dedup history, and all
// pending batch buffers, and zeroes analytics. The queue is left
// indistinguishable from a freshly constructed one.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for lvl := range q.levels {
		q.levels[lvl] = nil
	}
	q.size = 0
	q.state = StateNormal
	q.history.reset()
	q.dropPendingBatches()
	q.analytics = Analytics{}
}

// Analytics returns a snapshot of the queue's counters.
func (q *Queue) Analytics() Analytics {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.analytics
}

// Stats returns a consistent snapshot of state, sizes, and analytics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	byPriority := make(map[string]int, types.PriorityCount)
	for lvl := range q.levels {
		byPriority[types.Priority(lvl).String()] = len(q.levels[lvl])
	}
	return Stats{
		State:          q.state,
		Size:           q.size,
		SizeByPriority: byPriority,
		PendingBatch:   q.pendingBatchSize(),
		Analytics:      q.analytics,
	}
}

// admitInterrupt implements interrupt semantics: transition to DRAINING,
// discard every queued and buffered message below HIGH priority, place the
// interrupt at the very front, then return to the prior resting state (an
// interrupt does not un-pause a paused queue). Runs entirely inside the
// caller's critical section, so the DRAINING state is externally visible
// only to a concurrent Stats call racing the drain.
func (q *Queue) admitInterrupt(msg *types.Message) {
	resting := q.state
	if resting == StateDraining {
		resting = StateNormal
	}
	q.state = StateDraining

	dropped := q.dropPendingBatches()
	for lvl := int(types.PriorityMedium); lvl < types.PriorityCount; lvl++ {
		dropped += len(q.levels[lvl])
		q.size -= len(q.levels[lvl])
		q.levels[lvl] = nil
	}

	front := q.levels[types.PriorityInterrupt]
	q.levels[types.PriorityInterrupt] = append([]*types.Message{msg}, front...)
	q.size++

	q.analytics.Enqueued++
	q.analytics.InterruptFlushes++
	q.analytics.InterruptDropped += uint64(dropped)

	q.state = resting
}

// insert places a message at the back of its priority level, applying the
// overflow policy at capacity. Returns false when the arrival itself is the
// one discarded. Does not touch the Enqueued counter; callers decide whether
// the insert represents a producer message or a synthesized batch.
func (q *Queue) insert(m *types.Message) bool {
	if q.cfg.MaxLength > 0 && q.size >= q.cfg.MaxLength {
		if !q.evictBelow(m.Priority) {
			q.analytics.OverflowDropped++
			return false
		}
		q.analytics.OverflowDropped++
	}

	q.levels[m.Priority] = append(q.levels[m.Priority], m)
	q.size++
	return true
}

// evictBelow discards the newest occupant of the lowest non-empty priority
// level strictly below the incoming priority. Returns false when no such
// occupant exists, meaning the arrival loses the tie.
func (q *Queue) evictBelow(incoming types.Priority) bool {
	for lvl := types.PriorityCount - 1; lvl > int(incoming); lvl-- {
		n := len(q.levels[lvl])
		if n == 0 {
			continue
		}
		q.levels[lvl][n-1] = nil
		q.levels[lvl] = q.levels[lvl][:n-1]
		q.size--
		return true
	}
	return false
}
