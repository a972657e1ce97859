package ops

import (
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/genlog"
	"github.com/pithlabs/pith/internal/memory"
)

// RecordFeedbackInput contains parameters for the RecordFeedback operation.
type RecordFeedbackInput struct {
	WorkspaceID  string
	GenerationID string
	Score        int
	Edits        *string // optional
}

// RecordFeedbackOutput contains the result of the RecordFeedback operation.
type RecordFeedbackOutput struct {
	Memory *memory.Memory `json:"memory"`
}

// RecordFeedback attaches a 1-5 score and optional edits to a generation
// and synthesizes a memory from them.
func (e *Env) RecordFeedback(input RecordFeedbackInput) (*RecordFeedbackOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if input.GenerationID == "" {
		return nil, errors.NewInvalidRequest("generation_id is required")
	}

	m, err := e.Memories.RecordFeedback(input.WorkspaceID, input.GenerationID, input.Score, input.Edits)
	if err != nil {
		return nil, err
	}
	return &RecordFeedbackOutput{Memory: m}, nil
}

// LogGenerationInput contains parameters for the LogGeneration operation.
type LogGenerationInput struct {
	WorkspaceID string
	ContentType string
	Prompt      string
	Output      string
	BCMVersion  int
	TokensUsed  int
	Cost        float64
}

// LogGenerationOutput contains the result of the LogGeneration operation.
type LogGenerationOutput struct {
	Entry  *genlog.Entry `json:"entry,omitempty"`
	Logged bool          `json:"logged"`
}

// LogGeneration records a prompt/output pair. Best-effort by contract; a
// failed insert reports logged=false rather than an error.
func (e *Env) LogGeneration(input LogGenerationInput) (*LogGenerationOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if input.ContentType == "" {
		return nil, errors.NewInvalidRequest("content_type is required")
	}

	entry := e.Generations.Log(genlog.LogInput{
		WorkspaceID: input.WorkspaceID,
		ContentType: input.ContentType,
		Prompt:      input.Prompt,
		Output:      input.Output,
		BCMVersion:  input.BCMVersion,
		TokensUsed:  input.TokensUsed,
		Cost:        input.Cost,
	})
	return &LogGenerationOutput{Entry: entry, Logged: entry != nil}, nil
}
