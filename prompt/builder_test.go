package prompt_test

import (
	"context"
	"testing"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/memory"
	memorytest "github.com/chayo-ai/memoryd/memory/test"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/chayo-ai/memoryd/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

func newPromptFixture(t *testing.T) (*prompt.Builder, memory.Service, *memorytest.StaticEmbedder) {
	t.Helper()

	conf := config.NewMemoryConfig()
	conf.SqliteEnabled = false
	conf.EmbeddingDimension = testDim

	embedder := memorytest.NewStaticEmbedder(testDim)
	svc, err := memory.NewServiceWithStore(context.Background(), conf, nil, embedder, memory.NewInMemoryStore(testDim))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return prompt.NewBuilder(svc, nil), svc, embedder
}

func TestBuildSystemPrompt_ProfileOnly(t *testing.T) {
	ctx := context.Background()
	builder, _, _ := newPromptFixture(t)

	org := &organization.Organization{
		ID:   "org-1",
		Name: "Sunrise Dental",
	}
	profile := &config.AssistantProfile{
		OrganizationID: "org-1",
		AssistantName:  "Dani",
		Tone:           "warm",
		Language:       "Spanish",
		Greeting:       "Hola! Welcome to Sunrise Dental.",
		BusinessFacts:  []string{"Located on 5th Avenue", "Open Monday to Saturday"},
		FAQ: []config.FAQEntry{
			{Question: "Do you take insurance?", Answer: "Yes, most major plans."},
		},
	}

	rendered, err := builder.BuildSystemPrompt(ctx, org, profile, "")
	require.NoError(t, err)

	assert.Contains(t, rendered, "You are Dani, the AI assistant of Sunrise Dental.")
	assert.Contains(t, rendered, "warm tone")
	assert.Contains(t, rendered, "reply in Spanish")
	assert.Contains(t, rendered, "Hola! Welcome to Sunrise Dental.")
	assert.Contains(t, rendered, "- Located on 5th Avenue")
	assert.Contains(t, rendered, "Q: Do you take insurance?")
	assert.Contains(t, rendered, "A: Yes, most major plans.")
	// No user message, no memory section
	assert.NotContains(t, rendered, "What you remember")
}

func TestBuildSystemPrompt_DefaultAssistantName(t *testing.T) {
	ctx := context.Background()
	builder, _, _ := newPromptFixture(t)

	rendered, err := builder.BuildSystemPrompt(ctx, &organization.Organization{ID: "org-1", Name: "Sunrise Dental"}, nil, "")
	require.NoError(t, err)
	assert.Contains(t, rendered, "You are Chayo, the AI assistant of Sunrise Dental.")

	_, err = builder.BuildSystemPrompt(ctx, nil, nil, "")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestBuildSystemPrompt_InlinesRelevantMemory(t *testing.T) {
	ctx := context.Background()
	builder, svc, embedder := newPromptFixture(t)

	hoursText := "We open at 9am and close at 6pm on weekdays."
	query := "what time do you open?"
	embedder.Set(hoursText, []float32{1, 0, 0, 0, 0, 0, 0, 0})
	embedder.Set(query, []float32{0.9, 0.436, 0, 0, 0, 0, 0, 0})

	_, err := svc.StoreSingleMessage(ctx, "org-1", hoursText, memory.RoleAssistant, nil)
	require.NoError(t, err)

	rendered, err := builder.BuildSystemPrompt(ctx, &organization.Organization{ID: "org-1", Name: "Sunrise Dental"}, nil, query)
	require.NoError(t, err)
	assert.Contains(t, rendered, "What you remember about this business")
	assert.Contains(t, rendered, "- We open at 9am and close at 6pm on weekdays.")

	// Memory of one tenant never leaks into another tenant's prompt
	rendered, err = builder.BuildSystemPrompt(ctx, &organization.Organization{ID: "org-2", Name: "Moonlight Tacos"}, nil, query)
	require.NoError(t, err)
	assert.NotContains(t, rendered, "We open at 9am")
}

func TestBuildSystemPrompt_SurvivesRetrievalFailure(t *testing.T) {
	ctx := context.Background()
	builder, _, embedder := newPromptFixture(t)

	embedder.Err = errors.Wrapf(errors.ErrUpstream, "rate limited")

	rendered, err := builder.BuildSystemPrompt(ctx, &organization.Organization{ID: "org-1", Name: "Sunrise Dental"}, nil, "what time do you open?")
	require.NoError(t, err)
	assert.Contains(t, rendered, "Sunrise Dental")
	assert.NotContains(t, rendered, "What you remember")
}
