package ops

import (
	"context"
	"fmt"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
	"github.com/pithlabs/pith/internal/synthesis"
)

// SynthesizeInput contains parameters for the Synthesize operation.
type SynthesizeInput struct {
	WorkspaceID string
	RawContext  string
	Version     int    // optional; defaults to latest+1
	Source      string // optional; defaults to initial-onboarding
}

// SynthesizeOutput contains the result of the Synthesize operation.
type SynthesizeOutput struct {
	Manifest *manifest.Manifest `json:"manifest"`
}

// Synthesize runs the full reducer+synthesizer pipeline and persists the
// resulting manifest as a new version. Enrichment is best-effort; a failed
// model call still yields a valid reduced manifest. The hot cache is
// invalidated and re-primed with the new version.
func (e *Env) Synthesize(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error) {
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

	m := synthesis.Synthesize(ctx, e.Client, []byte(input.RawContext), input.WorkspaceID, version, source, e.Cfg.MaxOutputTokens)

	if err := db.InsertManifest(e.DB, &m, []byte(input.RawContext)); err != nil {
		return nil, err
	}

	e.Cache.Invalidate(input.WorkspaceID)
	e.Cache.Set(input.WorkspaceID, cache.KindManifest, "", &m, e.manifestTTL())

	return &SynthesizeOutput{Manifest: &m}, nil
}

// resolveVersionSource fills in version and source defaults. An explicit
// version at or below the latest stored one is rejected up front; version
// numbers only move forward.
func (e *Env) resolveVersionSource(workspaceID string, version int, source string) (int, manifest.Source, error) {
	latest, err := db.LatestVersion(e.DB, workspaceID)
	if err != nil {
		return 0, "", err
	}

	if version == 0 {
		version = latest + 1
	} else if version <= latest {
		return 0, "", errors.NewConflict(fmt.Sprintf("version %d already superseded (latest is %d)", version, latest))
	}

	src := manifest.SourceOnboarding
	if source != "" {
		src = manifest.Source(source)
		if !manifest.ValidSource(src) {
			return 0, "", errors.NewInvalidRequest(fmt.Sprintf("invalid source: %s", source))
		}
	}

	return version, src, nil
}
