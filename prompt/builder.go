package prompt

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/internal/sliceutils"
	"github.com/chayo-ai/memoryd/memory"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/samber/lo"
)

var (
	//go:embed data/system_prompt.md.tmpl
	systemPromptInst string
	systemPromptTmpl = template.Must(template.New("system_prompt").Funcs(sprig.TxtFuncMap()).Parse(systemPromptInst))
)

const (
	defaultMaxSegments = 8
	defaultMaxFAQ      = 10

	defaultAssistantName = "Chayo"
)

type (
	// Builder assembles the final LLM system prompt for one tenant from
	// its organization row, an optional assistant profile, and the
	// memory segments relevant to the customer's message.
	Builder struct {
		memory      memory.Service
		logger      *slog.Logger
		maxSegments int
		maxFAQ      int
	}

	MemoryEntry struct {
		Text string
		Kind memory.SegmentKind
	}

	promptValues struct {
		BusinessName   string
		AssistantName  string
		Tone           string
		Language       string
		Greeting       string
		BusinessFacts  []string
		FAQ            []config.FAQEntry
		MemorySegments []MemoryEntry
	}
)

func NewBuilder(memoryService memory.Service, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		memory:      memoryService,
		logger:      logger,
		maxSegments: defaultMaxSegments,
		maxFAQ:      defaultMaxFAQ,
	}
}

// BuildSystemPrompt renders the system prompt. Memory retrieval is
// best-effort: when it fails the prompt is still produced from the
// profile alone, because a degraded answer beats no answer at the
// messaging channel.
func (b *Builder) BuildSystemPrompt(ctx context.Context, org *organization.Organization, profile *config.AssistantProfile, userMessage string) (string, error) {
	if org == nil {
		return "", errors.Wrapf(errors.ErrInvalidParams, "organization is required")
	}

	values := promptValues{
		BusinessName:  org.Name,
		AssistantName: org.AssistantName,
	}
	if values.AssistantName == "" {
		values.AssistantName = defaultAssistantName
	}

	if profile != nil {
		if profile.AssistantName != "" {
			values.AssistantName = profile.AssistantName
		}
		values.Tone = profile.Tone
		values.Language = profile.Language
		values.Greeting = profile.Greeting
		values.BusinessFacts = profile.BusinessFacts
		values.FAQ = sliceutils.RandomSampleN(profile.FAQ, b.maxFAQ)
	}

	if userMessage != "" {
		segments, err := b.memory.RetrieveRelevantMemory(ctx, org.ID, userMessage, b.maxSegments)
		if err != nil {
			b.logger.Warn("memory retrieval failed, building prompt without memory",
				"organizationId", org.ID,
				"error", err.Error())
		} else {
			entries := lo.Map(segments, func(s memory.ScoredSegment, _ int) MemoryEntry {
				return MemoryEntry{
					Text: s.Segment.Text,
					Kind: s.Segment.Metadata.Kind,
				}
			})
			values.MemorySegments = sliceutils.Cut(entries, 0, b.maxSegments)
		}
	}

	var buf strings.Builder
	if err := systemPromptTmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to render system prompt")
	}

	return buf.String(), nil
}
