package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hearsay/internal/similarity"
)

// MaxContentLength is the maximum content length in runes. Longer content is
// truncated at construction rather than rejected: a shortened spoken notice
// is still useful, an absent one is not.
const MaxContentLength = 512

// truncationMarker is appended to content that was cut at MaxContentLength.
const truncationMarker = "…"

// Message is the immutable notification value object flowing through the
// queue. All derived fields (hash, signature, context group) are computed
// once at construction; nothing mutates a Message after NewMessage returns.
type Message struct {
	ID        string
	Content   string
	Priority  Priority
	Type      MessageType
	ToolName  string
	HookType  string
	CreatedAt time.Time
	Metadata  map[string]any

	// Derived at construction.
	Hash         string
	Signature    similarity.Signature
	contextGroup string
}

// MessageOption customizes construction of a Message.
type MessageOption func(*Message)

// WithProvenance sets the originating tool and hook names used to derive the
// message's context group.
func WithProvenance(toolName, hookType string) MessageOption {
	return func(m *Message) {
		m.ToolName = toolName
		m.HookType = hookType
	}
}

// WithMetadata attaches auxiliary data. The map is copied so callers cannot
// mutate the message after construction.
func WithMetadata(md map[string]any) MessageOption {
	return func(m *Message) {
		if len(md) == 0 {
			return
		}
		m.Metadata = make(map[string]any, len(md))
		for k, v := range md {
			m.Metadata[k] = v
		}
	}
}

// WithCreatedAt overrides the creation timestamp. Used when the producing
// hook reports the original event time rather than the enqueue time.
func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
	}
}

// NewMessage validates and constructs a Message. It returns an AppError with
// code ErrCodeMessageEmptyContent when content is empty after trimming, and
// ErrCodeMessageInvalidField for an undefined priority or type. Oversized
// content is truncated, not rejected.
func NewMessage(content string, priority Priority, msgType MessageType, opts ...MessageOption) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewAppError(ErrCodeMessageEmptyContent, "message content must not be empty", nil)
	}
	if !priority.Valid() {
		return nil, NewAppError(ErrCodeMessageInvalidField, fmt.Sprintf("invalid priority %d", int(priority)), nil)
	}
	if !msgType.Valid() {
		return nil, NewAppError(ErrCodeMessageInvalidField, fmt.Sprintf("invalid message type %q", string(msgType)), nil)
	}

	if runes := []rune(content); len(runes) > MaxContentLength {
		content = string(runes[:MaxContentLength]) + truncationMarker
	}

	m := &Message{
		ID:        uuid.New().String(),
		Content:   content,
		Priority:  priority,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Signature = similarity.Normalize(m.Content)
	m.Hash = hashContent(m.Signature.Text)
	m.contextGroup = deriveContextGroup(m.ToolName, m.HookType)

	return m, nil
}

// ContextGroup returns the coarse provenance bucket scoping which messages
// may be compared for deduplication or merged into a batch.
func (m *Message) ContextGroup() string {
	return m.contextGroup
}

// Age returns the elapsed time since the message was created.
func (m *Message) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// BatchSize returns the number of original messages aggregated into a BATCH
// message, or 1 for ordinary messages.
func (m *Message) BatchSize() int {
	if n, ok := m.Metadata[MetadataBatchSize].(int); ok && n > 0 {
		return n
	}
	return 1
}

// MetadataBatchSize is the metadata key carrying the aggregated message count
// on synthesized BATCH messages.
const MetadataBatchSize = "batch_size"

// hashContent computes the exact-duplicate key from normalized content, so
// whitespace and punctuation differences hash identically.
func hashContent(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// deriveContextGroup buckets provenance into a dedup/batch scope. Messages
// from different tools must never suppress or merge with each other, so the
// group keys on the tool name; the hook type subdivides further. Messages
// with no provenance at all share the coarse "general" bucket.
func deriveContextGroup(toolName, hookType string) string {
	tool := strings.ToLower(strings.TrimSpace(toolName))
	hook := strings.ToLower(strings.TrimSpace(hookType))

	switch {
	case tool != "" && hook != "":
		return tool + "/" + hook
	case tool != "":
		return tool
	case hook != "":
		return "general/" + hook
	default:
		return "general"
	}
}
