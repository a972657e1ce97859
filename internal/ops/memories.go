package ops

import (
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/memory"
)

// AddMemoryInput contains parameters for the AddMemory operation.
type AddMemoryInput struct {
	WorkspaceID string
	Type        string
	Content     map[string]any
	Source      string // optional; defaults to user_feedback
	Confidence  float64
	ExpiresAt   *int64 // optional unix timestamp
}

// AddMemoryOutput contains the result of the AddMemory operation.
type AddMemoryOutput struct {
	Memory *memory.Memory `json:"memory"`
}

// AddMemory persists a learned observation directly, outside the feedback
// path. Used for manually seeded preferences.
func (e *Env) AddMemory(input AddMemoryInput) (*AddMemoryOutput, error) {
	source := input.Source
	if source == "" {
		source = memory.SourceUserFeedback
	}

	m, err := e.Memories.Add(memory.AddInput{
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Content:     input.Content,
		Source:      source,
		Confidence:  input.Confidence,
		ExpiresAt:   input.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &AddMemoryOutput{Memory: m}, nil
}

// ListMemoriesInput contains parameters for the ListMemories operation.
type ListMemoriesInput struct {
	WorkspaceID string
	Type        string // optional filter
	Limit       int
}

// ListMemoriesOutput contains the result of the ListMemories operation.
type ListMemoriesOutput struct {
	Memories []memory.Memory `json:"memories"`
	Count    int             `json:"count"`
}

// ListMemories lists memories most-recent-first.
func (e *Env) ListMemories(input ListMemoriesInput) (*ListMemoriesOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	memories, err := e.Memories.Relevant(input.WorkspaceID, input.Type, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListMemoriesOutput{Memories: memories, Count: len(memories)}, nil
}

// MemorySummaryInput contains parameters for the MemorySummary operation.
type MemorySummaryInput struct {
	WorkspaceID string
}

// MemorySummaryOutput contains the result of the MemorySummary operation.
type MemorySummaryOutput struct {
	Summary *memory.Summary `json:"summary"`
}

// MemorySummary returns the cached aggregate memory view.
func (e *Env) MemorySummary(input MemorySummaryInput) (*MemorySummaryOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	summary, err := e.Memories.GetSummary(input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return &MemorySummaryOutput{Summary: summary}, nil
}

// DeleteMemoryInput contains parameters for the DeleteMemory operation.
type DeleteMemoryInput struct {
	WorkspaceID string
	MemoryID    string
}

// DeleteMemoryOutput contains the result of the DeleteMemory operation.
type DeleteMemoryOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteMemory removes one memory after an ownership check.
func (e *Env) DeleteMemory(input DeleteMemoryInput) (*DeleteMemoryOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if input.MemoryID == "" {
		return nil, errors.NewInvalidRequest("memory_id is required")
	}

	if err := e.Memories.Delete(input.WorkspaceID, input.MemoryID); err != nil {
		return nil, err
	}
	return &DeleteMemoryOutput{Deleted: true, ID: input.MemoryID}, nil
}
