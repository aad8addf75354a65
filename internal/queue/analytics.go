package queue

// Analytics is a point-in-time snapshot of the queue's counters. Counters
// only ever increase (ClearAll excepted); external consumers poll snapshots
// for observability dashboards.
type Analytics struct {
	// Enqueued counts producer messages admitted, whether inserted directly
	// or held in a pending batch buffer.
	Enqueued uint64 `json:"enqueued"`

	// Dequeued counts messages handed to consumers.
	Dequeued uint64 `json:"dequeued"`

	// DuplicatesRemoved counts messages rejected by the exact or fuzzy
	// deduplication checks.
	DuplicatesRemoved uint64 `json:"duplicates_removed"`

	// StaleRejected counts messages rejected for exceeding the max age.
	StaleRejected uint64 `json:"stale_rejected"`

	// BatchOperations counts synthesized BATCH messages.
	BatchOperations uint64 `json:"batch_operations"`

	// InterruptFlushes counts interrupt arrivals that drained the queue.
	InterruptFlushes uint64 `json:"interrupt_flushes"`

	// InterruptDropped counts queued messages discarded by interrupt drains.
	InterruptDropped uint64 `json:"interrupt_dropped"`

	// PausedDrops counts non-interrupt messages dropped while paused.
	PausedDrops uint64 `json:"paused_drops"`

	// OverflowDropped counts messages discarded because the queue was full:
	// either an evicted low-priority occupant or the rejected arrival itself.
	OverflowDropped uint64 `json:"overflow_dropped"`

	// ScorerErrors counts similarity scoring failures. Each one means a
	// message was admitted without a complete fuzzy check (fail open).
	ScorerErrors uint64 `json:"scorer_errors"`
}

// Stats is a consistent snapshot of queue state, sizes, pending batch volume,
// and analytics, taken under the queue lock.
type Stats struct {
	State          State          `json:"state"`
	Size           int            `json:"size"`
	SizeByPriority map[string]int `json:"size_by_priority"`
	PendingBatch   int            `json:"pending_batch"`
	Analytics      Analytics      `json:"analytics"`
}
