package memory

import (
	"encoding/json"
	"time"

	"github.com/chayo-ai/memoryd/errors"
)

type (
	// MemorySegment is one stored unit of business knowledge: a
	// conversation excerpt, an FAQ answer, or a business fact, together
	// with its embedding. Segments are immutable after the write except
	// for the active -> superseded transition.
	MemorySegment struct {
		ID             string        `json:"id"`
		OrganizationID string        `json:"organizationId"`
		Text           string        `json:"text"`
		Embedding      []float32     `json:"-"`
		Metadata       Metadata      `json:"metadata"`
		Status         SegmentStatus `json:"status"`
		SupersededBy   string        `json:"supersededBy,omitempty"`
		CreatedAt      time.Time     `json:"createdAt"`
	}

	// ScoredSegment holds a segment with its similarity score to a query
	ScoredSegment struct {
		Segment *MemorySegment `json:"segment"`
		Score   float64        `json:"score"`
	}

	SegmentKind   string
	SegmentStatus string

	// Metadata is the typed, kind-tagged metadata of a segment. Kind
	// decides which of the optional fields are meaningful; Extra carries
	// anything callers attach beyond the schema.
	Metadata struct {
		Kind SegmentKind `json:"kind"`

		// conversation
		Role           string `json:"role,omitempty"`
		Channel        string `json:"channel,omitempty"`
		ConversationID string `json:"conversationId,omitempty"`

		// faq
		Question string `json:"question,omitempty"`

		// business_fact
		FieldName  string  `json:"fieldName,omitempty"`
		Confidence float64 `json:"confidence,omitempty"`

		Extra map[string]any `json:"extra,omitempty"`
	}

	// ConflictStrategy selects how UpdateMemory treats an incoming text
	// that semantically overlaps an existing segment.
	ConflictStrategy string

	// MemoryUpdate is the payload of UpdateMemory.
	MemoryUpdate struct {
		Text     string    `json:"text"`
		Metadata *Metadata `json:"metadata,omitempty"`
	}

	// UpdateResult reports what UpdateMemory did.
	UpdateResult struct {
		Success      bool   `json:"success"`
		Created      bool   `json:"created"`
		SegmentID    string `json:"segmentId"`
		SupersededID string `json:"supersededId,omitempty"`
	}

	// KnowledgeSummary is a lightweight per-tenant aggregate for
	// dashboard display.
	KnowledgeSummary struct {
		OrganizationID     string                `json:"organizationId"`
		TotalSegments      int64                 `json:"totalSegments"`
		ActiveSegments     int64                 `json:"activeSegments"`
		SupersededSegments int64                 `json:"supersededSegments"`
		SegmentsByKind     map[SegmentKind]int64 `json:"segmentsByKind,omitempty"`
		NewestSegmentAt    *time.Time            `json:"newestSegmentAt,omitempty"`
	}

	// Message is one turn of a conversation transcript.
	Message struct {
		Role string `json:"role"`
		Text string `json:"text"`
	}

	// Conversation is one transcript submitted for ingestion. Raw is
	// consulted only with FormatRawJSON.
	Conversation struct {
		ID       string          `json:"id,omitempty"`
		Messages []Message       `json:"messages,omitempty"`
		Raw      json.RawMessage `json:"raw,omitempty"`
	}

	TranscriptFormat string
)

const (
	SegmentKindConversation SegmentKind = "conversation"
	SegmentKindFAQ          SegmentKind = "faq"
	SegmentKindBusinessFact SegmentKind = "business_fact"

	SegmentStatusActive     SegmentStatus = "active"
	SegmentStatusSuperseded SegmentStatus = "superseded"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	ConflictStrategyAuto   ConflictStrategy = "auto"
	ConflictStrategyManual ConflictStrategy = "manual"
	ConflictStrategyMerge  ConflictStrategy = "merge"

	FormatMessages TranscriptFormat = "messages"
	FormatRawJSON  TranscriptFormat = "raw_json"
)

// Validate checks the kind tag and the fields that kind requires.
func (m *Metadata) Validate() error {
	switch m.Kind {
	case SegmentKindConversation:
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return errors.Wrapf(errors.ErrInvalidParams, "conversation metadata requires role %q or %q, got %q", RoleUser, RoleAssistant, m.Role)
		}
	case SegmentKindFAQ:
		if m.Question == "" {
			return errors.Wrapf(errors.ErrInvalidParams, "faq metadata requires a question")
		}
	case SegmentKindBusinessFact:
		if m.FieldName == "" {
			return errors.Wrapf(errors.ErrInvalidParams, "business_fact metadata requires a field name")
		}
	default:
		return errors.Wrapf(errors.ErrInvalidParams, "unknown segment kind %q", m.Kind)
	}
	return nil
}

// Active reports whether the segment participates in retrieval.
func (s *MemorySegment) Active() bool {
	return s.Status == SegmentStatusActive
}
