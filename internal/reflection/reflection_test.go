package reflection

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/genlog"
	"github.com/pithlabs/pith/internal/llm"
	"github.com/pithlabs/pith/internal/manifest"
	"github.com/pithlabs/pith/internal/memory"
)

type fakeClient struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	text := f.responses[len(f.responses)-1]
	if f.calls <= len(f.responses) {
		text = f.responses[f.calls-1]
	}
	return &llm.Response{Text: text, TokensUsed: 100}, nil
}

const analysisJSON = `{
	"insights": [
		{"type": "preference", "summary": "Short subject lines score higher", "confidence": 0.8, "evidence": "both 5/5 emails"},
		{"type": "correction", "summary": "Stop opening with rhetorical questions", "confidence": 0.7, "evidence": "edited in two drafts"}
	],
	"updated_guardrails": {"add": ["lead with a concrete number"], "remove": []},
	"few_shot_updates": [],
	"voice_refinements": {"vocabulary_allow_add": ["payback period"], "vocabulary_deny_add": []}
}`

const rawContext = `{
	"company": {"name": "Acme Robotics", "industry": "robotics", "stage": "seed", "mission": "cobots everywhere", "value_prop": "cheap cobots"},
	"icps": [{"role": "Plant Manager", "pains": ["labor shortage"]}]
}`

type env struct {
	reflector   *Reflector
	memories    *memory.Store
	generations *genlog.Store
	cache       *cache.Cache
	db          *sql.DB
}

func setup(t *testing.T, client llm.Client, threshold int) *env {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	c := cache.New()
	generations := genlog.NewStore(database)
	memories := memory.NewStore(database, c, generations, time.Minute, 30, 90)
	reflector := New(database, client, c, memories, generations, threshold, 60, 2500)
	return &env{reflector: reflector, memories: memories, generations: generations, cache: c, db: database}
}

func seedManifest(t *testing.T, e *env, lastReflectionAt int64) *manifest.Manifest {
	t.Helper()
	doc := manifest.ParseDocument([]byte(rawContext))
	m := manifest.Reduce(doc, "ws1", 1, manifest.SourceOnboarding, time.Now().Unix())
	m.Meta.LastReflectionAt = lastReflectionAt
	manifest.Finalize(&m)
	if err := db.InsertManifest(e.db, &m, []byte(rawContext)); err != nil {
		t.Fatalf("InsertManifest: %v", err)
	}
	return &m
}

func logRated(t *testing.T, e *env, n int, score int) {
	t.Helper()
	for i := 0; i < n; i++ {
		entry := e.generations.Log(genlog.LogInput{WorkspaceID: "ws1", ContentType: "email", Output: "draft"})
		if entry == nil {
			t.Fatal("Log returned nil")
		}
		if score > 0 {
			if _, err := e.generations.AttachFeedback("ws1", entry.ID, score, nil); err != nil {
				t.Fatalf("AttachFeedback: %v", err)
			}
		}
	}
}

func TestShouldAutoReflectNoManifest(t *testing.T) {
	e := setup(t, nil, 3)

	ok, err := e.reflector.ShouldAutoReflect("ws1")
	if err != nil {
		t.Fatalf("ShouldAutoReflect: %v", err)
	}
	if ok {
		t.Error("workspace without a manifest must not auto-reflect")
	}
}

func TestShouldAutoReflectNeverReflected(t *testing.T) {
	e := setup(t, nil, 3)
	seedManifest(t, e, 0)

	// Enough generations, but none rated: nothing to learn from.
	logRated(t, e, 3, 0)
	ok, err := e.reflector.ShouldAutoReflect("ws1")
	if err != nil {
		t.Fatalf("ShouldAutoReflect: %v", err)
	}
	if ok {
		t.Error("should not reflect with zero rated generations")
	}

	logRated(t, e, 1, 5)
	ok, err = e.reflector.ShouldAutoReflect("ws1")
	if err != nil {
		t.Fatalf("ShouldAutoReflect: %v", err)
	}
	if !ok {
		t.Error("should reflect once volume and one rating exist")
	}
}

func TestShouldAutoReflectSinceLastReflection(t *testing.T) {
	e := setup(t, nil, 3)
	seedManifest(t, e, time.Now().Add(-time.Hour).Unix())

	logRated(t, e, 2, 0)
	ok, err := e.reflector.ShouldAutoReflect("ws1")
	if err != nil {
		t.Fatalf("ShouldAutoReflect: %v", err)
	}
	if ok {
		t.Error("below threshold since last reflection")
	}

	logRated(t, e, 1, 0)
	ok, err = e.reflector.ShouldAutoReflect("ws1")
	if err != nil {
		t.Fatalf("ShouldAutoReflect: %v", err)
	}
	if !ok {
		t.Error("threshold reached since last reflection")
	}
}

func TestReflectSkippedWithoutRatedGenerations(t *testing.T) {
	client := &fakeClient{responses: []string{analysisJSON}}
	e := setup(t, client, 3)
	seedManifest(t, e, 0)
	logRated(t, e, 5, 0)

	result, err := e.reflector.Reflect(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("expected skipped, got %s", result.Status)
	}
	if client.calls != 0 {
		t.Errorf("no model call expected, got %d", client.calls)
	}
}

func TestReflectAnalysisFailure(t *testing.T) {
	client := &fakeClient{responses: []string{"not json at all"}}
	e := setup(t, client, 3)
	seedManifest(t, e, 0)
	logRated(t, e, 2, 4)

	result, err := e.reflector.Reflect(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if result.Status != StatusError {
		t.Errorf("expected error status, got %s", result.Status)
	}
	if result.MemoriesCreated != 0 {
		t.Errorf("no memories expected on parse failure, got %d", result.MemoriesCreated)
	}
}

func TestReflectCompleted(t *testing.T) {
	// First call answers the analysis; the second is the re-synthesis
	// enrichment, which fails to parse and falls back to the reducer.
	client := &fakeClient{responses: []string{analysisJSON, "{}"}}
	e := setup(t, client, 3)
	seedManifest(t, e, 0)
	logRated(t, e, 4, 5)

	result, err := e.reflector.Reflect(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if result.GenerationsAnalyzed != 4 {
		t.Errorf("expected 4 generations analyzed, got %d", result.GenerationsAnalyzed)
	}
	if result.InsightsFound != 2 {
		t.Errorf("expected 2 insights, got %d", result.InsightsFound)
	}
	// Two insights plus one guardrail pattern plus one voice preference.
	if result.MemoriesCreated != 4 {
		t.Errorf("expected 4 memories, got %d", result.MemoriesCreated)
	}

	memories, err := e.memories.Relevant("ws1", "", 10)
	if err != nil {
		t.Fatalf("Relevant: %v", err)
	}
	if len(memories) != 4 {
		t.Fatalf("expected 4 stored memories, got %d", len(memories))
	}
	for _, m := range memories {
		if m.Source != memory.SourceGenerationAnalysis {
			t.Errorf("unexpected source %s", m.Source)
		}
	}

	next, err := db.LatestManifest(e.db, "ws1")
	if err != nil {
		t.Fatalf("LatestManifest: %v", err)
	}
	if next.Version != 2 {
		t.Errorf("expected version 2, got %d", next.Version)
	}
	if next.Source != manifest.SourceReflection {
		t.Errorf("expected reflection source, got %s", next.Source)
	}
	if next.Meta.LastReflectionAt == 0 {
		t.Error("last_reflection_at not stamped")
	}
	if next.Meta.MemoryCount != 4 {
		t.Errorf("expected memory_count 4, got %d", next.Meta.MemoryCount)
	}
	if !manifest.VerifyChecksum(next) {
		t.Error("recompiled manifest checksum invalid")
	}
}

func TestReflectRecompileFailureKeepsMemories(t *testing.T) {
	// The analysis succeeds; the enrichment call errors, which the
	// synthesizer absorbs. Break recompilation harder by rejecting the
	// recompiled manifest insert, as a full disk or locked file would.
	client := &fakeClient{responses: []string{analysisJSON}}
	e := setup(t, client, 3)
	seedManifest(t, e, 0)
	logRated(t, e, 2, 5)

	if _, err := e.db.Exec(`
		CREATE TRIGGER reject_recompile BEFORE INSERT ON manifests
		WHEN NEW.source = 'reflection'
		BEGIN SELECT RAISE(ABORT, 'write rejected'); END`); err != nil {
		t.Fatalf("break recompile: %v", err)
	}

	result, err := e.reflector.Reflect(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("expected completed despite recompile failure, got %s", result.Status)
	}
	if result.MemoriesCreated != 4 {
		t.Errorf("expected memories to survive, got %d", result.MemoriesCreated)
	}

	// No new manifest version was written.
	current, err := db.LatestManifest(e.db, "ws1")
	if err != nil {
		t.Fatalf("LatestManifest: %v", err)
	}
	if current.Version != 1 {
		t.Errorf("expected version 1, got %d", current.Version)
	}
}
