package ops

import (
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/genlog"
)

// ListGenerationsInput contains parameters for the ListGenerations operation.
type ListGenerationsInput struct {
	WorkspaceID string
	ContentType string // optional filter, recency ordering only
	RatedOnly   bool   // order by score descending instead of recency
	MinScore    int    // optional, with RatedOnly
	Limit       int
}

// ListGenerationsOutput contains the result of the ListGenerations operation.
type ListGenerationsOutput struct {
	Entries []genlog.Entry `json:"entries"`
	Count   int            `json:"count"`
}

// ListGenerations lists generation log entries, either most-recent-first or
// best-rated-first.
func (e *Env) ListGenerations(input ListGenerationsInput) (*ListGenerationsOutput, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}

	var (
		entries []genlog.Entry
		err     error
	)
	if input.RatedOnly {
		entries, err = e.Generations.Rated(input.WorkspaceID, input.MinScore, input.Limit)
	} else {
		entries, err = e.Generations.Recent(input.WorkspaceID, input.ContentType, input.Limit)
	}
	if err != nil {
		return nil, err
	}
	return &ListGenerationsOutput{Entries: entries, Count: len(entries)}, nil
}
