package ops

import (
	"time"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
)

// ReduceInput contains parameters for the Reduce operation.
type ReduceInput struct {
	WorkspaceID string
	RawContext  string
	Version     int    // optional; defaults to latest+1 without reserving it
	Source      string // optional; defaults to initial-onboarding
}

// ReduceOutput contains the result of the Reduce operation.
type ReduceOutput struct {
	Manifest *manifest.Manifest `json:"manifest"`
}

// Reduce runs the deterministic reducer alone, without persisting. Used to
// preview what a raw context document compresses to before committing to a
// synthesis run.
func (e *Env) Reduce(input ReduceInput) (*ReduceOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if input.RawContext == "" {
		return nil, errors.NewInvalidRequest("raw_context is required")
	}
	if err := e.checkRawContextSize(input.RawContext); err != nil {
		return nil, err
	}

	version, source, err := e.resolveVersionSource(input.WorkspaceID, input.Version, input.Source)
	if err != nil {
		return nil, err
	}

	doc := manifest.ParseDocument([]byte(input.RawContext))
	m := manifest.Reduce(doc, input.WorkspaceID, version, source, time.Now().Unix())
	return &ReduceOutput{Manifest: &m}, nil
}

// checkRawContextSize rejects documents beyond the configured input bound.
// Truncating silently would drop facts the reducer was meant to weigh.
func (e *Env) checkRawContextSize(raw string) error {
	max := e.Cfg.RawContextMaxBytes
	if max > 0 && len(raw) > max {
		return errors.NewManifestTooLarge(max, len(raw))
	}
	return nil
}
