package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithlabs/pith/internal/llm"
	"github.com/pithlabs/pith/internal/manifest"
)

// fakeClient returns a canned response or error.
type fakeClient struct {
	text  string
	err   error
	calls int
}

func (f *fakeClient) Generate(_ context.Context, _ llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, TokensUsed: 100}, nil
}

func validEnrichmentJSON(t *testing.T) string {
	t.Helper()
	e := Enrichment{
		Identity: &manifest.Identity{
			Archetype:          "sage",
			CommunicationStyle: "plain, direct, evidence-first",
			EmotionalRegister:  "calm confidence",
			VocabularyAllow:    []string{"install", "throughput"},
			VocabularyDeny:     []string{"synergy"},
			FirstPerson:        "we",
		},
		PromptKit: &manifest.PromptKit{
			SystemPrompt: "You write for Acme Robotics.",
			Instructions: map[string]string{"email": "Short subject, one ask."},
			FewShot:      map[string][]string{"email": {"Subject: one day to first part"}},
		},
		GuardrailsV2: &manifest.GuardrailsV2{
			Positive: []string{"concrete numbers"},
			Negative: []string{"ROI promises"},
			Tone:     manifest.ToneCalibration{Formality: 0.5, Directness: 0.9},
		},
	}
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return string(b)
}

func rawContext() []byte {
	return []byte(`{"company": {"name": "Acme Robotics", "industry": "automation"}, "messaging": {"one_liner": "Arms in a day."}}`)
}

func TestSynthesize_Success(t *testing.T) {
	client := &fakeClient{text: validEnrichmentJSON(t)}

	m := Synthesize(context.Background(), client, rawContext(), "acme", 1, manifest.SourceOnboarding, 2000)

	assert.True(t, m.Enriched())
	assert.True(t, m.Meta.Synthesized)
	assert.Equal(t, "sage", m.Identity.Archetype)
	assert.True(t, manifest.VerifyChecksum(&m), "checksum must cover merged content")
	assert.Equal(t, 1, client.calls)
}

func TestSynthesize_FallbackOnEndpointError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}

	m := Synthesize(context.Background(), client, rawContext(), "acme", 1, manifest.SourceOnboarding, 2000)

	assert.False(t, m.Enriched())
	assert.False(t, m.Meta.Synthesized)
	assert.Nil(t, m.Identity)
	assert.Nil(t, m.PromptKit)
	assert.Nil(t, m.GuardrailsV2)
	// The reduced baseline is still a complete, checksummed manifest.
	assert.Equal(t, "Acme Robotics", m.Foundation.Company)
	assert.True(t, manifest.VerifyChecksum(&m))
}

func TestSynthesize_FallbackOnMalformedOutput(t *testing.T) {
	client := &fakeClient{text: "I'd be happy to help with that!"}

	m := Synthesize(context.Background(), client, rawContext(), "acme", 1, manifest.SourceOnboarding, 2000)

	assert.False(t, m.Meta.Synthesized)
	assert.False(t, m.Enriched())
}

func TestSynthesize_FallbackOnMissingKey(t *testing.T) {
	// identity and prompt_kit present, guardrails_v2 missing
	partial := `{"identity": {"archetype": "sage", "communication_style": "x", "emotional_register": "y"},
		"prompt_kit": {"system_prompt": "z"}, "guardrails_v2": null}`
	client := &fakeClient{text: partial}

	m := Synthesize(context.Background(), client, rawContext(), "acme", 1, manifest.SourceOnboarding, 2000)

	assert.False(t, m.Meta.Synthesized)
	assert.Nil(t, m.Identity, "partial enrichment must be discarded whole")
}

func TestSynthesize_NilClient(t *testing.T) {
	m := Synthesize(context.Background(), nil, rawContext(), "acme", 3, manifest.SourceSeed, 2000)

	assert.False(t, m.Meta.Synthesized)
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, manifest.SourceSeed, m.Source)
}

func TestEnrich_FenceWrappedResponse(t *testing.T) {
	client := &fakeClient{text: "```json\n" + validEnrichmentJSON(t) + "\n```"}

	e := Enrich(context.Background(), client, rawContext(), 2000)

	require.NotNil(t, e)
	assert.Equal(t, "sage", e.Identity.Archetype)
}
