// Package memory implements the durable store of learned observations.
// Memories are workspace-scoped and immutable once written; they are
// created by feedback recording or reflection, and removed only by
// explicit deletion or garbage collection.
package memory

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Memory types.
const (
	TypeCorrection = "correction"
	TypePreference = "preference"
	TypePattern    = "pattern"
	TypeInsight    = "insight"
)

// Memory sources.
const (
	SourceUserFeedback       = "user_feedback"
	SourceGenerationAnalysis = "generation_analysis"
	SourceReflection         = "reflection"
)

// ValidType reports whether t is a known memory type.
func ValidType(t string) bool {
	switch t {
	case TypeCorrection, TypePreference, TypePattern, TypeInsight:
		return true
	}
	return false
}

// ValidSource reports whether s is a known memory source.
func ValidSource(s string) bool {
	switch s {
	case SourceUserFeedback, SourceGenerationAnalysis, SourceReflection:
		return true
	}
	return false
}

// Memory is one learned observation about how generations should behave.
// Content is free-form but always carries a "summary" key.
type Memory struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	Type        string         `json:"memory_type"`
	Content     map[string]any `json:"content"`
	Source      string         `json:"source"`
	Confidence  float64        `json:"confidence"`
	CreatedAt   int64          `json:"created_at"`
	ExpiresAt   *int64         `json:"expires_at,omitempty"`
}

// SummaryText returns the content's summary line, or "" if absent.
func (m *Memory) SummaryText() string {
	if s, ok := m.Content["summary"].(string); ok {
		return s
	}
	return ""
}

// Summary is the cached aggregate view of a workspace's memories.
type Summary struct {
	Total           int            `json:"total"`
	CountsByType    map[string]int `json:"counts_by_type"`
	TopByConfidence []Memory       `json:"top_by_confidence"`
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
