package queue

import (
	"fmt"
	"time"

	"hearsay/internal/similarity"
	"hearsay/internal/types"
)

// historyEntry records one admitted message for duplicate comparison. Only
// the derived fields survive here; the message itself is handed off and
// discarded on delivery.
type historyEntry struct {
	group string
	hash  string
	sig   similarity.Signature
	seen  time.Time
}

// history is the bounded, time-evicted set of recently admitted messages.
// It is owned by the queue and mutated only under the queue lock.
type history struct {
	retention time.Duration
	limit     int

	// entries is kept in arrival order so pruning pops from the front.
	entries []historyEntry

	// index maps group+hash to the most recent sighting for O(1) exact checks.
	index map[string]time.Time
}

func newHistory(retention time.Duration, limit int) *history {
	return &history{
		retention: retention,
		limit:     limit,
		index:     make(map[string]time.Time),
	}
}

func historyKey(group, hash string) string {
	return group + "\x00" + hash
}

// prune evicts entries older than the retention window, and oldest-first
// beyond the size limit. Index entries are removed only when they still point
// at the pruned sighting, so a re-recorded hash keeps its fresher timestamp.
func (h *history) prune(now time.Time) {
	cut := 0
	for cut < len(h.entries) {
		e := h.entries[cut]
		expired := now.Sub(e.seen) > h.retention
		overLimit := len(h.entries)-cut > h.limit
		if !expired && !overLimit {
			break
		}
		key := historyKey(e.group, e.hash)
		if t, ok := h.index[key]; ok && t.Equal(e.seen) {
			delete(h.index, key)
		}
		cut++
	}
	if cut > 0 {
		h.entries = append(h.entries[:0], h.entries[cut:]...)
	}
}

// containsExact reports whether an identical (group, hash) pair was seen
// within the retention window.
func (h *history) containsExact(group, hash string, now time.Time) bool {
	t, ok := h.index[historyKey(group, hash)]
	return ok && now.Sub(t) <= h.retention
}

// record remembers an admitted message.
func (h *history) record(m *types.Message, now time.Time) {
	h.entries = append(h.entries, historyEntry{
		group: m.ContextGroup(),
		hash:  m.Hash,
		sig:   m.Signature,
		seen:  now,
	})
	h.index[historyKey(m.ContextGroup(), m.Hash)] = now
	h.prune(now)
}

// reset drops all history. Used by ClearAll.
func (h *history) reset() {
	h.entries = h.entries[:0]
	h.index = make(map[string]time.Time)
}

// isDuplicate runs the exact then fuzzy checks against the recent history.
// Must be called with the queue lock held. The interrupt path never reaches
// here; BATCH messages are synthesized internally and bypass it as well.
func (q *Queue) isDuplicate(m *types.Message, now time.Time) bool {
	q.history.prune(now)

	if q.history.containsExact(m.ContextGroup(), m.Hash, now) {
		return true
	}

	threshold := q.thresholdFor(m.Type)
	for i := len(q.history.entries) - 1; i >= 0; i-- {
		e := q.history.entries[i]
		if e.group != m.ContextGroup() {
			continue
		}
		score, err := q.safeScore(m.Signature, e.sig)
		if err != nil {
			// Fail open: a scoring bug must never silently drop a real
			// notification. Count it and keep checking older entries.
			q.analytics.ScorerErrors++
			q.logger.Warn("similarity scoring failed, admitting message",
				"error", err,
				"context_group", m.ContextGroup(),
			)
			continue
		}
		if score >= threshold {
			return true
		}
	}
	return false
}

// thresholdFor returns the similarity cutoff for a message type. Routine
// notices are suppressed aggressively; alerts conservatively, since two
// distinct errors often read alike (same verb, different file).
func (q *Queue) thresholdFor(t types.MessageType) float64 {
	if t.Routine() {
		return q.cfg.RoutineSimilarity
	}
	return q.cfg.AlertSimilarity
}

// safeScore invokes the configured scorer, converting panics into errors so
// a misbehaving strategy cannot corrupt queue state or leak the lock.
func (q *Queue) safeScore(a, b similarity.Signature) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	return q.scorer.Score(a, b)
}
