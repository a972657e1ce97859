package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pithlabs/pith/internal/config"
	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/ops"
)

// testHandlers creates handlers backed by a temporary database.
func testHandlers(t *testing.T) *Handlers {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	env := ops.NewEnv(database, config.DefaultConfig(), nil)
	return NewHandlers(env)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

const rawContext = `{
	"company": {"name": "Acme Robotics", "industry": "robotics", "stage": "seed", "mission": "cobots everywhere", "value_prop": "cheap cobots"},
	"icps": [{"role": "Plant Manager", "pains": ["labor shortage"]}]
}`

func TestRegistryCoversAllGroups(t *testing.T) {
	groups := make(map[string]bool)
	for _, name := range AllToolNames() {
		groups[GroupForTool(name)] = true
	}
	for _, g := range KnownGroups {
		if !groups[g] {
			t.Errorf("no tool registered for group %s", g)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"manifest_get", "context_export", "reflect_run"})
	if len(unknown) != 1 || unknown[0] != "context_export" {
		t.Errorf("expected one unknown tool, got %v", unknown)
	}
}

func TestHandleSynthesizeAndGet(t *testing.T) {
	h := testHandlers(t)

	result, err := h.HandleSynthesize(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
		"raw_context":  rawContext,
	}))
	if err != nil {
		t.Fatalf("HandleSynthesize: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	var synthOut struct {
		Manifest struct {
			Version  int    `json:"version"`
			Checksum string `json:"checksum"`
		} `json:"manifest"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &synthOut); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if synthOut.Manifest.Version != 1 || synthOut.Manifest.Checksum == "" {
		t.Errorf("unexpected manifest %+v", synthOut.Manifest)
	}

	result, err = h.HandleGetManifest(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
	}))
	if err != nil {
		t.Fatalf("HandleGetManifest: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "Acme Robotics") {
		t.Error("manifest content missing from result")
	}
}

func TestHandleGetManifestNotFound(t *testing.T) {
	h := testHandlers(t)

	result, err := h.HandleGetManifest(context.Background(), makeRequest(map[string]any{
		"workspace_id": "missing",
	}))
	if err != nil {
		t.Fatalf("HandleGetManifest: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}

	var payload struct {
		Error struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if payload.Error.Code != string(errors.ErrNotFound) || payload.Error.Status != 404 {
		t.Errorf("unexpected error payload %+v", payload.Error)
	}
}

func TestHandleFeedbackWorkflow(t *testing.T) {
	h := testHandlers(t)

	if _, err := h.HandleSynthesize(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
		"raw_context":  rawContext,
	})); err != nil {
		t.Fatalf("HandleSynthesize: %v", err)
	}

	result, err := h.HandleLogGeneration(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
		"content_type": "email",
		"output":       "Subject: hello",
		"bcm_version":  1,
	}))
	if err != nil {
		t.Fatalf("HandleLogGeneration: %v", err)
	}
	var logOut struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
		Logged bool `json:"logged"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &logOut); err != nil {
		t.Fatalf("unmarshal log output: %v", err)
	}
	if !logOut.Logged {
		t.Fatal("expected logged entry")
	}

	result, err = h.HandleRecordFeedback(context.Background(), makeRequest(map[string]any{
		"workspace_id":  "ws1",
		"generation_id": logOut.Entry.ID,
		"score":         5,
	}))
	if err != nil {
		t.Fatalf("HandleRecordFeedback: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "preference") {
		t.Error("expected preference memory in result")
	}

	result, err = h.HandleMemorySummary(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
	}))
	if err != nil {
		t.Fatalf("HandleMemorySummary: %v", err)
	}
	var summaryOut struct {
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &summaryOut); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summaryOut.Summary.Total != 1 {
		t.Errorf("expected 1 memory, got %d", summaryOut.Summary.Total)
	}
}

func TestHandleAddMemoryValidation(t *testing.T) {
	h := testHandlers(t)

	result, err := h.HandleAddMemory(context.Background(), makeRequest(map[string]any{
		"workspace_id": "ws1",
		"type":         "hunch",
		"content":      map[string]any{"summary": "x"},
		"confidence":   0.5,
	}))
	if err != nil {
		t.Fatalf("HandleAddMemory: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for invalid type")
	}
	if !strings.Contains(resultText(t, result), string(errors.ErrInvalidRequest)) {
		t.Errorf("expected INVALID_REQUEST, got %s", resultText(t, result))
	}
}

func TestDisabledToolsExcludedFromServer(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"memory_delete"}
	env := ops.NewEnv(database, cfg, nil)

	s := NewServer(env, "test")
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
}
