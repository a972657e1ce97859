// Package reflection implements the learning cycle: rated generations are
// mined for insights, the insights become memories, and the manifest is
// recompiled so the next prompt benefits from them. Every step is
// best-effort; a failed recompilation never rolls back the memories
// already learned.
package reflection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/genlog"
	"github.com/pithlabs/pith/internal/llm"
	"github.com/pithlabs/pith/internal/manifest"
	"github.com/pithlabs/pith/internal/memory"
	"github.com/pithlabs/pith/internal/synthesis"
)

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusError     = "error"
)

const maxRatedSample = 20

// Result reports what a reflection run did.
type Result struct {
	Status              string `json:"status"`
	InsightsFound       int    `json:"insights_found"`
	MemoriesCreated     int    `json:"memories_created"`
	GenerationsAnalyzed int    `json:"generations_analyzed"`
}

// Reflector runs reflection cycles for workspaces.
type Reflector struct {
	db          *sql.DB
	client      llm.Client
	cache       *cache.Cache
	memories    *memory.Store
	generations *genlog.Store

	threshold       int
	genMaxAgeDays   int
	synthesisTokens int
}

// New creates a reflector. The client may be nil; analysis then reports an
// error status but garbage collection still runs.
func New(database *sql.DB, client llm.Client, c *cache.Cache, memories *memory.Store, generations *genlog.Store, threshold, genMaxAgeDays, synthesisTokens int) *Reflector {
	return &Reflector{
		db:              database,
		client:          client,
		cache:           c,
		memories:        memories,
		generations:     generations,
		threshold:       threshold,
		genMaxAgeDays:   genMaxAgeDays,
		synthesisTokens: synthesisTokens,
	}
}

// ShouldAutoReflect reports whether enough feedback has accumulated to
// justify an automatic reflection. A workspace that has reflected before
// triggers on generation volume since that reflection; one that never has
// also needs at least one rated generation, because reflection without any
// ratings has nothing to learn from.
func (r *Reflector) ShouldAutoReflect(workspaceID string) (bool, error) {
	m, err := db.LatestManifest(r.db, workspaceID)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if m.Meta.LastReflectionAt > 0 {
		since, err := r.generations.CountSince(workspaceID, m.Meta.LastReflectionAt)
		if err != nil {
			return false, err
		}
		return since >= r.threshold, nil
	}

	total, err := r.generations.CountSince(workspaceID, 0)
	if err != nil {
		return false, err
	}
	if total < r.threshold {
		return false, nil
	}
	rated, err := r.generations.CountRated(workspaceID)
	if err != nil {
		return false, err
	}
	return rated >= 1, nil
}

// analysis is the structured response the model returns when asked to mine
// rated generations for patterns.
type analysis struct {
	Insights          []insight        `json:"insights"`
	UpdatedGuardrails guardrailUpdates `json:"updated_guardrails"`
	FewShotUpdates    []fewShotUpdate  `json:"few_shot_updates"`
	VoiceRefinements  voiceRefinements `json:"voice_refinements"`
}

type insight struct {
	Type       string  `json:"type"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

type guardrailUpdates struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type fewShotUpdate struct {
	ContentType string `json:"content_type"`
	Example     string `json:"example"`
}

type voiceRefinements struct {
	VocabularyAllowAdd []string `json:"vocabulary_allow_add"`
	VocabularyDenyAdd  []string `json:"vocabulary_deny_add"`
}

var analysisSchema = llm.GenerateSchema[analysis]()

// Reflect runs one full reflection cycle for a workspace.
func (r *Reflector) Reflect(ctx context.Context, workspaceID string) (*Result, error) {
	result := &Result{Status: StatusCompleted}

	// Garbage collection first, so the analysis sees only live data.
	if _, err := r.memories.Cleanup(workspaceID); err != nil {
		log.Printf("reflection: memory cleanup failed for %s: %v", workspaceID, err)
	}
	if _, err := r.generations.Cleanup(workspaceID, r.genMaxAgeDays); err != nil {
		log.Printf("reflection: generation cleanup failed for %s: %v", workspaceID, err)
	}

	rated, err := r.generations.Rated(workspaceID, 0, maxRatedSample)
	if err != nil {
		return nil, err
	}
	if len(rated) == 0 {
		result.Status = StatusSkipped
		return result, nil
	}
	result.GenerationsAnalyzed = len(rated)

	current, err := db.LatestManifest(r.db, workspaceID)
	if err != nil {
		return nil, err
	}

	a := r.analyze(ctx, current, rated)
	if a == nil {
		result.Status = StatusError
		return result, nil
	}
	result.InsightsFound = len(a.Insights)

	result.MemoriesCreated = r.persistFindings(workspaceID, a)

	if err := r.recompile(ctx, workspaceID, current); err != nil {
		// The memories above are already durable; a failed recompile
		// just means the next reflection picks them up instead.
		log.Printf("reflection: recompile failed for %s: %v", workspaceID, err)
	}

	return result, nil
}

// analyze asks the model to mine the rated sample. Returns nil on any
// failure; the caller reports an error status.
func (r *Reflector) analyze(ctx context.Context, current *manifest.Manifest, rated []genlog.Entry) *analysis {
	if r.client == nil {
		log.Printf("reflection: no model client configured")
		return nil
	}

	resp, err := r.client.Generate(ctx, llm.Request{
		Instructions:    analysisInstructions,
		Input:           buildAnalysisInput(current, rated),
		SchemaName:      "generation_analysis",
		Schema:          analysisSchema,
		MaxOutputTokens: r.synthesisTokens,
	})
	if err != nil {
		log.Printf("reflection: analysis call failed: %v", err)
		return nil
	}

	var a analysis
	if err := llm.DecodeModelJSON(resp.Text, &a); err != nil {
		log.Printf("reflection: analysis response unparseable: %v", err)
		return nil
	}
	return &a
}

func buildAnalysisInput(current *manifest.Manifest, rated []genlog.Entry) string {
	var b strings.Builder

	b.WriteString("## Current voice identity\n")
	if current.Identity != nil {
		identityJSON, err := json.Marshal(current.Identity)
		if err == nil {
			b.Write(identityJSON)
			b.WriteByte('\n')
		}
	} else {
		b.WriteString("(not yet synthesized)\n")
	}

	b.WriteString("\n## Rated generations\n")
	for _, e := range rated {
		score := 0
		if e.FeedbackScore != nil {
			score = *e.FeedbackScore
		}
		fmt.Fprintf(&b, "---\ntype: %s\nscore: %d/5\n", e.ContentType, score)
		if e.UserEdits != nil {
			fmt.Fprintf(&b, "user edits: %s\n", *e.UserEdits)
		}
		fmt.Fprintf(&b, "output:\n%s\n", e.Output)
	}
	return b.String()
}

// persistFindings turns the analysis into memories. Each insight becomes a
// memory of its stated type; guardrail and voice updates become pattern and
// preference memories. Individual failures are logged and skipped.
func (r *Reflector) persistFindings(workspaceID string, a *analysis) int {
	created := 0

	for _, ins := range a.Insights {
		memoryType := ins.Type
		if !memory.ValidType(memoryType) {
			memoryType = memory.TypeInsight
		}
		confidence := ins.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = 0.5
		}
		content := map[string]any{"summary": ins.Summary}
		if ins.Evidence != "" {
			content["evidence"] = ins.Evidence
		}
		_, err := r.memories.Add(memory.AddInput{
			WorkspaceID: workspaceID,
			Type:        memoryType,
			Content:     content,
			Source:      memory.SourceGenerationAnalysis,
			Confidence:  confidence,
		})
		if err != nil {
			log.Printf("reflection: insight persist failed: %v", err)
			continue
		}
		created++
	}

	if len(a.UpdatedGuardrails.Add) > 0 || len(a.UpdatedGuardrails.Remove) > 0 {
		content := map[string]any{
			"summary": guardrailSummary(a.UpdatedGuardrails),
		}
		if len(a.UpdatedGuardrails.Add) > 0 {
			content["add"] = a.UpdatedGuardrails.Add
		}
		if len(a.UpdatedGuardrails.Remove) > 0 {
			content["remove"] = a.UpdatedGuardrails.Remove
		}
		_, err := r.memories.Add(memory.AddInput{
			WorkspaceID: workspaceID,
			Type:        memory.TypePattern,
			Content:     content,
			Source:      memory.SourceGenerationAnalysis,
			Confidence:  0.7,
		})
		if err != nil {
			log.Printf("reflection: guardrail persist failed: %v", err)
		} else {
			created++
		}
	}

	v := a.VoiceRefinements
	if len(v.VocabularyAllowAdd) > 0 || len(v.VocabularyDenyAdd) > 0 {
		content := map[string]any{
			"summary": voiceSummary(v),
		}
		if len(v.VocabularyAllowAdd) > 0 {
			content["vocabulary_allow_add"] = v.VocabularyAllowAdd
		}
		if len(v.VocabularyDenyAdd) > 0 {
			content["vocabulary_deny_add"] = v.VocabularyDenyAdd
		}
		_, err := r.memories.Add(memory.AddInput{
			WorkspaceID: workspaceID,
			Type:        memory.TypePreference,
			Content:     content,
			Source:      memory.SourceGenerationAnalysis,
			Confidence:  0.7,
		})
		if err != nil {
			log.Printf("reflection: voice refinement persist failed: %v", err)
		} else {
			created++
		}
	}

	return created
}

func guardrailSummary(g guardrailUpdates) string {
	parts := []string{}
	if len(g.Add) > 0 {
		parts = append(parts, "add guardrails: "+strings.Join(g.Add, "; "))
	}
	if len(g.Remove) > 0 {
		parts = append(parts, "retire guardrails: "+strings.Join(g.Remove, "; "))
	}
	return strings.Join(parts, " / ")
}

func voiceSummary(v voiceRefinements) string {
	parts := []string{}
	if len(v.VocabularyAllowAdd) > 0 {
		parts = append(parts, "lean on: "+strings.Join(v.VocabularyAllowAdd, ", "))
	}
	if len(v.VocabularyDenyAdd) > 0 {
		parts = append(parts, "avoid: "+strings.Join(v.VocabularyDenyAdd, ", "))
	}
	return strings.Join(parts, " / ")
}

// recompile reruns the full reducer+synthesizer pipeline over the stored
// original context at the next version, stamps the reflection metadata, and
// persists the new manifest.
func (r *Reflector) recompile(ctx context.Context, workspaceID string, current *manifest.Manifest) error {
	rawContext, err := db.LatestRawContext(r.db, workspaceID)
	if err != nil {
		return err
	}

	next := synthesis.Synthesize(ctx, r.client, rawContext, workspaceID, current.Version+1, manifest.SourceReflection, r.synthesisTokens)

	memoryCount, err := r.memories.Count(workspaceID)
	if err != nil {
		return err
	}
	next.Meta.LastReflectionAt = time.Now().Unix()
	next.Meta.MemoryCount = memoryCount
	manifest.Finalize(&next)

	if err := db.InsertManifest(r.db, &next, rawContext); err != nil {
		return err
	}

	r.cache.Invalidate(workspaceID)
	return nil
}

const analysisInstructions = `You analyze rated marketing generations for a single business and extract durable lessons.

You receive the business's current voice identity and a sample of generations with 1-5 scores and optional user edits. Find what high-scoring outputs share, what low-scoring outputs share, and what the edits consistently fix.

Respond with JSON containing:
- "insights": observations worth remembering, each with "type" (one of "correction", "preference", "pattern", "insight"), "summary" (one sentence, imperative where possible), "confidence" (0 to 1), and "evidence" (which generations support it)
- "updated_guardrails": {"add": [...], "remove": [...]} rules to add or retire
- "few_shot_updates": high-scoring outputs worth promoting to examples, each with "content_type" and "example"
- "voice_refinements": {"vocabulary_allow_add": [...], "vocabulary_deny_add": [...]}

Only propose changes the sample actually supports. Empty lists are fine.`
