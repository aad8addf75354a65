// Package types defines the shared domain model for the hearsay notification
// pipeline: the message value object, priority and type enumerations, hook
// event DTOs, and the application error taxonomy.
package types

import "fmt"

// Priority orders messages for delivery. Lower numeric value means more
// urgent; the queue stores one FIFO container per level, scanned in order.
type Priority int

const (
	PriorityInterrupt Priority = iota // always delivered next, flushes lower work
	PriorityCritical
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityBackground

	// PriorityCount is the number of priority levels; used to size
	// per-level containers.
	PriorityCount = int(PriorityBackground) + 1
)

// priorityNames maps Priority values to their wire/display names.
var priorityNames = [PriorityCount]string{
	"interrupt", "critical", "high", "medium", "low", "background",
}

// String returns the lowercase wire name of the priority.
func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is a defined priority level.
func (p Priority) Valid() bool {
	return p >= PriorityInterrupt && int(p) < PriorityCount
}

// ParsePriority converts a wire name ("critical", "low", ...) to a Priority.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if s == name {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// MessageType categorizes a notification. The type influences deduplication
// aggressiveness (routine types are suppressed harder than alerts) and batch
// eligibility.
type MessageType string

const (
	TypeError     MessageType = "error"
	TypeWarning   MessageType = "warning"
	TypeSuccess   MessageType = "success"
	TypeInfo      MessageType = "info"
	TypeInterrupt MessageType = "interrupt"
	TypeBatch     MessageType = "batch"
)

// Valid reports whether t is a defined message type.
func (t MessageType) Valid() bool {
	switch t {
	case TypeError, TypeWarning, TypeSuccess, TypeInfo, TypeInterrupt, TypeBatch:
		return true
	}
	return false
}

// Routine reports whether t is a routine notice (success/info) rather than an
// alert. Routine types are deduplicated aggressively and may be batched.
func (t MessageType) Routine() bool {
	return t == TypeSuccess || t == TypeInfo
}

// ParseMessageType converts a wire name to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown message type %q", s)
	}
	return t, nil
}
