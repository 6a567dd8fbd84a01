package memory

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/internal/stringutils"
	"github.com/mokiat/gog"
	"github.com/samber/lo"
)

// StoreSingleMessage persists one conversation message as a memory
// segment. Messages below the configured minimum length are rejected so
// trivial acknowledgements never pollute retrieval.
func (s *service) StoreSingleMessage(ctx context.Context, organizationID, text, role string, extra map[string]any) (*MemorySegment, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	text = normalizeText(text)
	if utf8.RuneCountInString(text) < s.config.MinMessageLength {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "message is too short to store: minimum %d characters", s.config.MinMessageLength)
	}

	metadata := Metadata{
		Kind:  SegmentKindConversation,
		Role:  role,
		Extra: extra,
	}
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	embeddings, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed message")
	}

	segment := &MemorySegment{
		OrganizationID: organizationID,
		Text:           text,
		Embedding:      embeddings[0],
		Metadata:       metadata,
	}

	if err := s.store.Insert(ctx, []*MemorySegment{segment}); err != nil {
		return nil, errors.Wrapf(err, "failed to store message segment")
	}

	s.logger.Debug("stored single message",
		"organizationId", organizationID,
		"segmentId", segment.ID,
		"role", role)

	return segment, nil
}

// ProcessBusinessConversations ingests a batch of conversations. Each
// transcript is segmented into semantically coherent chunks, all chunks
// are embedded, and everything is written in one atomic batch: if any
// embedding call fails, zero segments are persisted.
func (s *service) ProcessBusinessConversations(ctx context.Context, organizationID string, conversations []Conversation, format TranscriptFormat) ([]*MemorySegment, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	chunks, err := s.segmentConversations(conversations, format)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []*MemorySegment{}, nil
	}

	texts := lo.Map(chunks, func(c conversationChunk, _ int) string {
		return c.text
	})

	// All embeddings must succeed before a single row is written
	embeddings, err := s.embedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	segments := make([]*MemorySegment, len(chunks))
	for i, chunk := range chunks {
		segments[i] = &MemorySegment{
			OrganizationID: organizationID,
			Text:           chunk.text,
			Embedding:      embeddings[i],
			Metadata: Metadata{
				Kind:           SegmentKindConversation,
				Role:           chunk.role,
				ConversationID: chunk.conversationID,
			},
		}
	}

	if err := s.store.Insert(ctx, segments); err != nil {
		return nil, errors.Wrapf(err, "failed to store conversation segments")
	}

	s.logger.Info("ingested business conversations",
		"organizationId", organizationID,
		"conversations", len(conversations),
		"segments", len(segments))

	return segments, nil
}

// embedTexts batches embedding calls to amortize the upstream round trip
func (s *service) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := s.config.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := s.embedder.Embed(ctx, texts[start:end]...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to embed batch %d-%d", start, end)
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

type conversationChunk struct {
	text           string
	role           string
	conversationID string
}

// segmentConversations turns transcripts into chunks: consecutive
// messages from the same speaker merge into one turn, turns are capped
// at the configured chunk budget, and sub-minimum chunks are dropped.
func (s *service) segmentConversations(conversations []Conversation, format TranscriptFormat) ([]conversationChunk, error) {
	var chunks []conversationChunk

	for i, conversation := range conversations {
		messages, err := conversationMessages(conversation, format)
		if err != nil {
			return nil, errors.Wrapf(err, "conversation %d", i)
		}

		conversationID := conversation.ID
		for _, turn := range mergeTurns(messages) {
			for _, text := range splitChunk(turn.Text, s.config.MaxChunkChars) {
				if utf8.RuneCountInString(text) < s.config.MinMessageLength {
					continue
				}
				chunks = append(chunks, conversationChunk{
					text:           text,
					role:           turn.Role,
					conversationID: conversationID,
				})
			}
		}
	}

	return chunks, nil
}

func conversationMessages(conversation Conversation, format TranscriptFormat) ([]Message, error) {
	switch format {
	case FormatMessages, "":
		return conversation.Messages, nil
	case FormatRawJSON:
		if len(conversation.Raw) == 0 {
			return nil, errors.Wrapf(errors.ErrInvalidParams, "raw transcript is empty")
		}
		var messages []Message
		if err := json.Unmarshal(conversation.Raw, &messages); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidParams, "malformed raw transcript: %v", err)
		}
		return messages, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown transcript format %q", format)
	}
}

// mergeTurns folds consecutive same-speaker messages into single turns,
// the natural semantic unit of a chat transcript.
func mergeTurns(messages []Message) []Message {
	var turns []Message
	for _, message := range messages {
		text := normalizeText(message.Text)
		if text == "" {
			continue
		}

		role := message.Role
		if role != RoleAssistant {
			role = RoleUser
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Text = turns[n-1].Text + " " + text
			continue
		}
		turns = append(turns, Message{Role: role, Text: text})
	}
	return turns
}

// splitChunk caps a turn at maxChars, preferring sentence boundaries so
// each embedding covers a coherent span of text.
func splitChunk(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		count   int
	)
	for _, sentence := range splitSentences(text) {
		sentenceLen := utf8.RuneCountInString(sentence)
		if count > 0 && count+sentenceLen+1 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			count = 0
		}
		if count > 0 {
			current.WriteByte(' ')
			count++
		}
		current.WriteString(sentence)
		count += sentenceLen
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences is deliberately simple: terminal punctuation followed
// by whitespace. A sentence longer than any budget still becomes its own
// chunk rather than being truncated.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || runes[i+1] == ' ') {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func normalizeText(text string) string {
	return stringutils.CollapseWhitespace(stringutils.SanitizeUnicodeString(text))
}

// mergeExtra combines caller-provided metadata with service-owned keys;
// service keys win on collision.
func mergeExtra(base map[string]any, overrides map[string]any) map[string]any {
	if base == nil && overrides == nil {
		return nil
	}
	return gog.Merge(base, overrides)
}
