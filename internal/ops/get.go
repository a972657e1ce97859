package ops

import (
	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
)

// GetManifestInput contains parameters for the GetManifest operation.
type GetManifestInput struct {
	WorkspaceID string
	Version     int // optional; 0 means latest
}

// GetManifestOutput contains the result of the GetManifest operation.
type GetManifestOutput struct {
	Manifest *manifest.Manifest `json:"manifest"`
	Cached   bool               `json:"cached"`
}

// GetManifest returns a manifest version, the latest by default. Only the
// latest version goes through the hot cache; historical versions are audit
// reads and always hit the store.
func (e *Env) GetManifest(input GetManifestInput) (*GetManifestOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	if input.Version > 0 {
		m, err := db.ManifestByVersion(e.DB, input.WorkspaceID, input.Version)
		if err != nil {
			return nil, err
		}
		return &GetManifestOutput{Manifest: m}, nil
	}

	if cached, ok := e.Cache.Get(input.WorkspaceID, cache.KindManifest, ""); ok {
		if m, ok := cached.(*manifest.Manifest); ok {
			return &GetManifestOutput{Manifest: m, Cached: true}, nil
		}
	}

	m, err := db.LatestManifest(e.DB, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	e.Cache.Set(input.WorkspaceID, cache.KindManifest, "", m, e.manifestTTL())
	return &GetManifestOutput{Manifest: m}, nil
}

// ListVersionsInput contains parameters for the ListVersions operation.
type ListVersionsInput struct {
	WorkspaceID string
	Limit       int
}

// ListVersionsOutput contains the result of the ListVersions operation.
type ListVersionsOutput struct {
	Versions []db.ManifestVersionInfo `json:"versions"`
	Count    int                      `json:"count"`
}

// ListVersions lists retained manifest versions, newest first.
func (e *Env) ListVersions(input ListVersionsInput) (*ListVersionsOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	versions, err := db.ListManifestVersions(e.DB, input.WorkspaceID, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListVersionsOutput{Versions: versions, Count: len(versions)}, nil
}
