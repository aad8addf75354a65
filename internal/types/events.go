package types

import (
	"time"
)

// HookEvent is the wire payload posted by hook scripts to the ingress. Field
// names match the JSON the agent runtime hands to hooks, with the addition of
// optional priority/type overrides.
type HookEvent struct {
	SessionID string         `json:"session_id" validate:"omitempty,max=128"`
	HookType  string         `json:"hook_type" validate:"required,max=64"`
	ToolName  string         `json:"tool_name" validate:"omitempty,max=64"`
	Message   string         `json:"message" validate:"required"`
	Priority  string         `json:"priority" validate:"omitempty,oneof=interrupt critical high medium low background"`
	Type      string         `json:"type" validate:"omitempty,oneof=error warning success info interrupt batch"`
	CreatedAt *time.Time     `json:"created_at" validate:"omitempty"`
	Metadata  map[string]any `json:"metadata" validate:"omitempty"`
}

// hookTypePriorities holds the default priority per hook type, used when the
// event does not carry an explicit priority.
var hookTypePriorities = map[string]Priority{
	"notification":   PriorityHigh, // the agent is waiting on the user
	"stop":           PriorityMedium,
	"subagent_stop":  PriorityLow,
	"subagent_start": PriorityLow,
	"pre_tool_use":   PriorityBackground,
	"post_tool_use":  PriorityLow,
	"session_start":  PriorityMedium,
	"session_end":    PriorityMedium,
}

// Resolve converts the wire event into construction parameters for a
// Message, inferring priority and type when the event omits them.
//
// Inference order for priority: explicit value, then message type (errors are
// critical, warnings high), then hook type default, then low.
func (e *HookEvent) Resolve() (Priority, MessageType, error) {
	msgType := TypeInfo
	if e.Type != "" {
		t, err := ParseMessageType(e.Type)
		if err != nil {
			return 0, "", NewAppError(ErrCodeEventInvalidValue, "invalid message type", err)
		}
		msgType = t
	}

	if e.Priority != "" {
		p, err := ParsePriority(e.Priority)
		if err != nil {
			return 0, "", NewAppError(ErrCodeEventInvalidValue, "invalid priority", err)
		}
		return p, msgType, nil
	}

	switch msgType {
	case TypeInterrupt:
		return PriorityInterrupt, msgType, nil
	case TypeError:
		return PriorityCritical, msgType, nil
	case TypeWarning:
		return PriorityHigh, msgType, nil
	}

	if p, ok := hookTypePriorities[e.HookType]; ok {
		return p, msgType, nil
	}
	return PriorityLow, msgType, nil
}
