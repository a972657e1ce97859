package ops

import (
	"github.com/pithlabs/pith/internal/compiler"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/memory"
)

// CompilePromptInput contains parameters for the CompilePrompt operation.
type CompilePromptInput struct {
	WorkspaceID     string
	ContentType     string
	TargetICP       string // optional
	IncludeMemories bool   // augment with recent memories; disables caching
	MemoryLimit     int    // optional, defaults to 5
}

// CompilePromptOutput contains the result of the CompilePrompt operation.
type CompilePromptOutput struct {
	Prompt          string `json:"prompt"`
	ManifestVersion int    `json:"manifest_version"`
	Enriched        bool   `json:"enriched"`
	MemoriesUsed    int    `json:"memories_used"`
}

// CompilePrompt assembles the system prompt for a generation call from the
// latest manifest, optionally augmented with recent memories.
func (e *Env) CompilePrompt(input CompilePromptInput) (*CompilePromptOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if input.ContentType == "" {
		return nil, errors.NewInvalidRequest("content_type is required")
	}

	got, err := e.GetManifest(GetManifestInput{WorkspaceID: input.WorkspaceID})
	if err != nil {
		return nil, err
	}
	m := got.Manifest

	var memories []memory.Memory
	if input.IncludeMemories {
		limit := input.MemoryLimit
		if limit <= 0 {
			limit = 5
		}
		memories, err = e.Memories.Relevant(input.WorkspaceID, "", limit)
		if err != nil {
			return nil, err
		}
	}

	prompt := compiler.GetOrCompile(e.Cache, input.WorkspaceID, m, input.ContentType, input.TargetICP, memories, e.promptTTL())

	return &CompilePromptOutput{
		Prompt:          prompt,
		ManifestVersion: m.Version,
		Enriched:        m.Enriched(),
		MemoriesUsed:    len(memories),
	}, nil
}
