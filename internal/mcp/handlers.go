package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// ReduceRequest represents the arguments for manifest_reduce.
type ReduceRequest struct {
	WorkspaceID string `json:"workspace_id"`
	RawContext  string `json:"raw_context"`
	Version     int    `json:"version,omitempty"`
	Source      string `json:"source,omitempty"`
}

// SynthesizeRequest represents the arguments for manifest_synthesize.
type SynthesizeRequest struct {
	WorkspaceID string `json:"workspace_id"`
	RawContext  string `json:"raw_context"`
	Version     int    `json:"version,omitempty"`
	Source      string `json:"source,omitempty"`
}

// GetManifestRequest represents the arguments for manifest_get.
type GetManifestRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Version     int    `json:"version,omitempty"`
}

// ListVersionsRequest represents the arguments for manifest_versions.
type ListVersionsRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Limit       int    `json:"limit,omitempty"`
}

// CompilePromptRequest represents the arguments for prompt_compile.
type CompilePromptRequest struct {
	WorkspaceID     string `json:"workspace_id"`
	ContentType     string `json:"content_type"`
	TargetICP       string `json:"target_icp,omitempty"`
	IncludeMemories bool   `json:"include_memories,omitempty"`
	MemoryLimit     int    `json:"memory_limit,omitempty"`
}

// LogGenerationRequest represents the arguments for generation_log.
type LogGenerationRequest struct {
	WorkspaceID string  `json:"workspace_id"`
	ContentType string  `json:"content_type"`
	Prompt      string  `json:"prompt,omitempty"`
	Output      string  `json:"output,omitempty"`
	BCMVersion  int     `json:"bcm_version,omitempty"`
	TokensUsed  int     `json:"tokens_used,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

// ListGenerationsRequest represents the arguments for generation_list.
type ListGenerationsRequest struct {
	WorkspaceID string `json:"workspace_id"`
	ContentType string `json:"content_type,omitempty"`
	RatedOnly   bool   `json:"rated_only,omitempty"`
	MinScore    int    `json:"min_score,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// RecordFeedbackRequest represents the arguments for feedback_record.
type RecordFeedbackRequest struct {
	WorkspaceID  string  `json:"workspace_id"`
	GenerationID string  `json:"generation_id"`
	Score        int     `json:"score"`
	Edits        *string `json:"edits,omitempty"`
}

// AddMemoryRequest represents the arguments for memory_add.
type AddMemoryRequest struct {
	WorkspaceID string         `json:"workspace_id"`
	Type        string         `json:"type"`
	Content     map[string]any `json:"content"`
	Source      string         `json:"source,omitempty"`
	Confidence  float64        `json:"confidence"`
	ExpiresAt   *int64         `json:"expires_at,omitempty"`
}

// ListMemoriesRequest represents the arguments for memory_list.
type ListMemoriesRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Type        string `json:"type,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// MemorySummaryRequest represents the arguments for memory_summary.
type MemorySummaryRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// DeleteMemoryRequest represents the arguments for memory_delete.
type DeleteMemoryRequest struct {
	WorkspaceID string `json:"workspace_id"`
	MemoryID    string `json:"memory_id"`
}

// ReflectRequest represents the arguments for reflect_run.
type ReflectRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Force       bool   `json:"force,omitempty"`
}

// ReflectCheckRequest represents the arguments for reflect_check.
type ReflectCheckRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// ExportRequest represents the arguments for manifest_export.
type ExportRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	Path        string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for manifest_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleReduce handles the manifest_reduce tool call.
func (h *Handlers) HandleReduce(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ReduceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.Reduce(ops.ReduceInput{
		WorkspaceID: input.WorkspaceID,
		RawContext:  input.RawContext,
		Version:     input.Version,
		Source:      input.Source,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSynthesize handles the manifest_synthesize tool call.
func (h *Handlers) HandleSynthesize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[SynthesizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.Synthesize(ctx, ops.SynthesizeInput{
		WorkspaceID: input.WorkspaceID,
		RawContext:  input.RawContext,
		Version:     input.Version,
		Source:      input.Source,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGetManifest handles the manifest_get tool call.
func (h *Handlers) HandleGetManifest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[GetManifestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.GetManifest(ops.GetManifestInput{
		WorkspaceID: input.WorkspaceID,
		Version:     input.Version,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListVersions handles the manifest_versions tool call.
func (h *Handlers) HandleListVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ListVersionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.ListVersions(ops.ListVersionsInput{
		WorkspaceID: input.WorkspaceID,
		Limit:       input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCompilePrompt handles the prompt_compile tool call.
func (h *Handlers) HandleCompilePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[CompilePromptRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.CompilePrompt(ops.CompilePromptInput{
		WorkspaceID:     input.WorkspaceID,
		ContentType:     input.ContentType,
		TargetICP:       input.TargetICP,
		IncludeMemories: input.IncludeMemories,
		MemoryLimit:     input.MemoryLimit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLogGeneration handles the generation_log tool call.
func (h *Handlers) HandleLogGeneration(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[LogGenerationRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.LogGeneration(ops.LogGenerationInput{
		WorkspaceID: input.WorkspaceID,
		ContentType: input.ContentType,
		Prompt:      input.Prompt,
		Output:      input.Output,
		BCMVersion:  input.BCMVersion,
		TokensUsed:  input.TokensUsed,
		Cost:        input.Cost,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListGenerations handles the generation_list tool call.
func (h *Handlers) HandleListGenerations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ListGenerationsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.ListGenerations(ops.ListGenerationsInput{
		WorkspaceID: input.WorkspaceID,
		ContentType: input.ContentType,
		RatedOnly:   input.RatedOnly,
		MinScore:    input.MinScore,
		Limit:       input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRecordFeedback handles the feedback_record tool call.
func (h *Handlers) HandleRecordFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[RecordFeedbackRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.RecordFeedback(ops.RecordFeedbackInput{
		WorkspaceID:  input.WorkspaceID,
		GenerationID: input.GenerationID,
		Score:        input.Score,
		Edits:        input.Edits,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAddMemory handles the memory_add tool call.
func (h *Handlers) HandleAddMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[AddMemoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.AddMemory(ops.AddMemoryInput{
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Content:     input.Content,
		Source:      input.Source,
		Confidence:  input.Confidence,
		ExpiresAt:   input.ExpiresAt,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListMemories handles the memory_list tool call.
func (h *Handlers) HandleListMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ListMemoriesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.ListMemories(ops.ListMemoriesInput{
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Limit:       input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMemorySummary handles the memory_summary tool call.
func (h *Handlers) HandleMemorySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[MemorySummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.MemorySummary(ops.MemorySummaryInput{
		WorkspaceID: input.WorkspaceID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDeleteMemory handles the memory_delete tool call.
func (h *Handlers) HandleDeleteMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[DeleteMemoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.DeleteMemory(ops.DeleteMemoryInput{
		WorkspaceID: input.WorkspaceID,
		MemoryID:    input.MemoryID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReflect handles the reflect_run tool call.
func (h *Handlers) HandleReflect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ReflectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.Reflect(ctx, ops.ReflectInput{
		WorkspaceID: input.WorkspaceID,
		Force:       input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReflectCheck handles the reflect_check tool call.
func (h *Handlers) HandleReflectCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ReflectCheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.ReflectCheck(ops.ReflectCheckInput{
		WorkspaceID: input.WorkspaceID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the manifest_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.Export(ctx, ops.ExportInput{
		Path:        input.Path,
		WorkspaceID: input.WorkspaceID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the manifest_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.env.Import(ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult builds a structured error payload for the MCP client.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pithErr, ok := err.(*errors.PithError); ok {
		errorObj := map[string]any{
			"code":    pithErr.Code,
			"message": pithErr.Message,
			"status":  pithErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if pithErr.Code != errors.ErrInternal && pithErr.Details != nil {
			errorObj["details"] = pithErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return mcp.NewToolResultError(string(content))
}

// successResult serializes data as a JSON tool result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
