package queue

import (
	"fmt"
	"time"

	"hearsay/internal/types"
)

// pendingBatch accumulates batch-eligible messages for one context group
// between flushes. firstAt anchors the flush window.
type pendingBatch struct {
	group   string
	msgs    []*types.Message
	firstAt time.Time
}

// batchEligible reports whether a message qualifies for aggregation: a
// routine notice at LOW or BACKGROUND priority that is not itself a BATCH.
func batchEligible(m *types.Message) bool {
	if m.Type == types.TypeBatch || !m.Type.Routine() {
		return false
	}
	return m.Priority == types.PriorityLow || m.Priority == types.PriorityBackground
}

// buffer holds an eligible message in its group's pending batch instead of
// inserting it. Reaching the count threshold flushes immediately; otherwise
// the window timer (checked opportunistically on every queue operation)
// flushes later. Must be called with the queue lock held.
func (q *Queue) buffer(m *types.Message, now time.Time) {
	b := q.batches[m.ContextGroup()]
	if b == nil {
		b = &pendingBatch{group: m.ContextGroup(), firstAt: now}
		q.batches[m.ContextGroup()] = b
	}
	b.msgs = append(b.msgs, m)
	q.analytics.Enqueued++

	if len(b.msgs) >= q.cfg.BatchCount {
		q.flushBatch(b)
	}
}

// flushDueBatches materializes every pending batch whose window has elapsed.
// Called at the top of each Enqueue/Dequeue/Peek under the lock, so timer
// expiry and buffer mutation can never race.
func (q *Queue) flushDueBatches(now time.Time) {
	for _, b := range q.batches {
		if now.Sub(b.firstAt) >= q.cfg.BatchWindow {
			q.flushBatch(b)
		}
	}
}

// flushBatch converts a pending buffer into queued messages. A single
// buffered message is inserted as-is; two or more are merged into one
// synthesized BATCH message carrying the shared priority and a batch_size
// metadata entry. Must be called with the queue lock held.
func (q *Queue) flushBatch(b *pendingBatch) {
	delete(q.batches, b.group)

	if len(b.msgs) == 0 {
		return
	}
	if len(b.msgs) == 1 {
		q.insert(b.msgs[0])
		return
	}

	first := b.msgs[0]
	batched, err := types.NewMessage(
		summarizeBatch(b.msgs),
		first.Priority,
		types.TypeBatch,
		types.WithProvenance(first.ToolName, first.HookType),
		types.WithMetadata(map[string]any{types.MetadataBatchSize: len(b.msgs)}),
	)
	if err != nil {
		// Synthesis failure must not lose notifications; fall back to
		// delivering the originals individually.
		q.logger.Error("batch synthesis failed, inserting originals",
			"error", err,
			"context_group", b.group,
			"count", len(b.msgs),
		)
		for _, m := range b.msgs {
			q.insert(m)
		}
		return
	}

	if q.insert(batched) {
		q.analytics.BatchOperations++
	}
}

// summarizeBatch builds the spoken summary for an aggregated batch: the
// count, the source, and the first message as a representative sample.
func summarizeBatch(msgs []*types.Message) string {
	source := msgs[0].ToolName
	if source == "" {
		source = msgs[0].ContextGroup()
	}
	return fmt.Sprintf("%d notifications from %s. First: %s", len(msgs), source, msgs[0].Content)
}

// dropPendingBatches discards all buffered messages, returning how many were
// dropped. Used by the interrupt drain (buffered messages are always below
// HIGH priority) and by ClearAll.
func (q *Queue) dropPendingBatches() int {
	dropped := 0
	for g, b := range q.batches {
		dropped += len(b.msgs)
		delete(q.batches, g)
	}
	return dropped
}

// pendingBatchSize returns the number of buffered messages across groups.
// Must be called with the queue lock held.
func (q *Queue) pendingBatchSize() int {
	n := 0
	for _, b := range q.batches {
		n += len(b.msgs)
	}
	return n
}
