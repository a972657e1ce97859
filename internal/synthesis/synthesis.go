// Package synthesis runs the reduce-then-enrich pipeline that produces
// manifest versions. Reduction always succeeds; enrichment is best-effort
// AI work that degrades to absent sections, never to a failed pipeline.
package synthesis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pithlabs/pith/internal/llm"
	"github.com/pithlabs/pith/internal/manifest"
)

// Enrichment bundles the three synthesized sections. All three are present
// or the enrichment as a whole is discarded.
type Enrichment struct {
	Identity     *manifest.Identity     `json:"identity"`
	PromptKit    *manifest.PromptKit    `json:"prompt_kit"`
	GuardrailsV2 *manifest.GuardrailsV2 `json:"guardrails_v2"`
}

var enrichmentSchema = llm.GenerateSchema[Enrichment]()

// Enrich asks the text-generation endpoint for the voice specification.
// Every failure mode (endpoint error, unparseable output, missing keys)
// is a soft failure: logged here, reported as (nil, reason). It never
// panics and callers never see an error value.
func Enrich(ctx context.Context, client llm.Client, rawContext []byte, maxTokens int) *Enrichment {
	if client == nil {
		log.Printf("synthesis: no endpoint client configured, skipping enrichment")
		return nil
	}

	resp, err := client.Generate(ctx, llm.Request{
		Instructions:    enrichmentPrompt,
		Input:           string(rawContext),
		SchemaName:      "VoiceSpecification",
		Schema:          enrichmentSchema,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		log.Printf("synthesis: endpoint call failed: %v", err)
		return nil
	}

	var e Enrichment
	if err := llm.DecodeModelJSON(resp.Text, &e); err != nil {
		log.Printf("synthesis: unparseable response: %v", err)
		return nil
	}

	if err := validate(&e); err != nil {
		log.Printf("synthesis: invalid response: %v", err)
		return nil
	}

	return &e
}

// validate requires all three top-level sections.
func validate(e *Enrichment) error {
	switch {
	case e.Identity == nil:
		return fmt.Errorf("missing identity section")
	case e.PromptKit == nil:
		return fmt.Errorf("missing prompt_kit section")
	case e.GuardrailsV2 == nil:
		return fmt.Errorf("missing guardrails_v2 section")
	}
	return nil
}

// Synthesize runs the full pipeline: reduce the raw context, then attempt
// enrichment and merge it in. A manifest always comes back; enrichment
// failure only flips meta.synthesized to false and leaves the three
// sections absent.
func Synthesize(ctx context.Context, client llm.Client, rawContext []byte, workspaceID string, version int, source manifest.Source, maxTokens int) manifest.Manifest {
	doc := manifest.ParseDocument(rawContext)
	m := manifest.Reduce(doc, workspaceID, version, source, time.Now().Unix())

	e := Enrich(ctx, client, rawContext, maxTokens)
	if e == nil {
		m.Identity = nil
		m.PromptKit = nil
		m.GuardrailsV2 = nil
		m.Meta.Synthesized = false
		manifest.Finalize(&m)
		return m
	}

	m.Identity = e.Identity
	m.PromptKit = e.PromptKit
	m.GuardrailsV2 = e.GuardrailsV2
	m.Meta.Synthesized = true
	manifest.Finalize(&m)
	return m
}
