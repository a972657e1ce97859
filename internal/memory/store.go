package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/genlog"
)

// Garbage collection thresholds. Low-confidence entries age out fast;
// everything ages out eventually.
const (
	lowConfidenceCutoff = 0.3
)

// Store provides access to the memories table. All mutations invalidate
// the workspace's cached summary.
type Store struct {
	db          *sql.DB
	cache       *cache.Cache
	generations *genlog.Store
	summaryTTL  time.Duration

	lowConfidenceDays int
	maxAgeDays        int
}

// NewStore creates a memory store. The cache may be nil.
func NewStore(db *sql.DB, c *cache.Cache, generations *genlog.Store, summaryTTL time.Duration, lowConfidenceDays, maxAgeDays int) *Store {
	return &Store{
		db:                db,
		cache:             c,
		generations:       generations,
		summaryTTL:        summaryTTL,
		lowConfidenceDays: lowConfidenceDays,
		maxAgeDays:        maxAgeDays,
	}
}

// AddInput contains parameters for the Add operation.
type AddInput struct {
	WorkspaceID string
	Type        string
	Content     map[string]any
	Source      string
	Confidence  float64
	ExpiresAt   *int64
}

// Add persists a new memory and invalidates the workspace's summary cache.
func (s *Store) Add(input AddInput) (*Memory, error) {
	if input.WorkspaceID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	if !ValidType(input.Type) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid memory type: %s", input.Type))
	}
	if !ValidSource(input.Source) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid memory source: %s", input.Source))
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		return nil, errors.NewInvalidRequest("confidence must be between 0 and 1")
	}
	if input.Content == nil {
		input.Content = map[string]any{}
	}
	if _, ok := input.Content["summary"].(string); !ok {
		return nil, errors.NewInvalidRequest("content must include a summary")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	m := &Memory{
		ID:          id,
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Content:     input.Content,
		Source:      input.Source,
		Confidence:  input.Confidence,
		CreatedAt:   time.Now().Unix(),
		ExpiresAt:   input.ExpiresAt,
	}

	contentJSON, err := json.Marshal(m.Content)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	query := `
		INSERT INTO memories (
			id, workspace, memory_type, content_json, source,
			confidence, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		m.ID, m.WorkspaceID, m.Type, string(contentJSON), m.Source,
		m.Confidence, m.CreatedAt, toNullInt(m.ExpiresAt),
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	s.cache.Invalidate(m.WorkspaceID)
	return m, nil
}

// Relevant lists memories most-recent-first, optionally filtered by type.
func (s *Store) Relevant(workspaceID, memoryType string, limit int) ([]Memory, error) {
	if memoryType != "" && !ValidType(memoryType) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid memory type: %s", memoryType))
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, workspace, memory_type, content_json, source,
			confidence, created_at, expires_at
		FROM memories
		WHERE workspace = ?
	`
	args := []any{workspaceID}
	if memoryType != "" {
		query += " AND memory_type = ?"
		args = append(args, memoryType)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	return s.queryMemories(query, args...)
}

// GetSummary returns the workspace's aggregate memory view: counts by type
// plus the ten highest-confidence entries. The result is cached with a
// short TTL; feedback arrives in real time, so staleness is measured in
// minutes.
func (s *Store) GetSummary(workspaceID string) (*Summary, error) {
	if cached, ok := s.cache.Get(workspaceID, cache.KindSummary, ""); ok {
		if summary, ok := cached.(*Summary); ok {
			return summary, nil
		}
	}

	summary := &Summary{CountsByType: map[string]int{}}

	rows, err := s.db.Query(
		`SELECT memory_type, COUNT(*) FROM memories WHERE workspace = ? GROUP BY memory_type`,
		workspaceID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, errors.NewInternal(err)
		}
		summary.CountsByType[t] = n
		summary.Total += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.NewInternal(err)
	}
	rows.Close()

	top, err := s.queryMemories(`
		SELECT id, workspace, memory_type, content_json, source,
			confidence, created_at, expires_at
		FROM memories
		WHERE workspace = ?
		ORDER BY confidence DESC, created_at DESC, rowid DESC
		LIMIT 10
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	summary.TopByConfidence = top

	s.cache.Set(workspaceID, cache.KindSummary, "", summary, s.summaryTTL)
	return summary, nil
}

// Count returns the number of memories for a workspace.
func (s *Store) Count(workspaceID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE workspace = ?`, workspaceID).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// Delete removes one memory after verifying ownership, and invalidates the
// summary cache.
func (s *Store) Delete(workspaceID, id string) error {
	var owner string
	err := s.db.QueryRow(`SELECT workspace FROM memories WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("memory", id)
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	if owner != workspaceID {
		return errors.NewWorkspaceMismatch(workspaceID, id)
	}

	if _, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	s.cache.Invalidate(workspaceID)
	return nil
}

// Cleanup runs garbage collection for a workspace. Three independent,
// cumulative passes: expired entries, stale low-confidence entries, and
// everything past the hard age limit. Returns the total rows deleted.
func (s *Store) Cleanup(workspaceID string) (int, error) {
	now := time.Now()
	total := 0

	passes := []struct {
		query string
		args  []any
	}{
		{
			`DELETE FROM memories WHERE workspace = ? AND expires_at IS NOT NULL AND expires_at < ?`,
			[]any{workspaceID, now.Unix()},
		},
		{
			`DELETE FROM memories WHERE workspace = ? AND confidence < ? AND created_at < ?`,
			[]any{workspaceID, lowConfidenceCutoff, now.AddDate(0, 0, -s.lowConfidenceDays).Unix()},
		},
		{
			`DELETE FROM memories WHERE workspace = ? AND created_at < ?`,
			[]any{workspaceID, now.AddDate(0, 0, -s.maxAgeDays).Unix()},
		},
	}

	for _, p := range passes {
		result, err := s.db.Exec(p.query, p.args...)
		if err != nil {
			return total, errors.NewInternal(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, errors.NewInternal(err)
		}
		total += int(n)
	}

	if total > 0 {
		s.cache.Invalidate(workspaceID)
	}
	return total, nil
}

// RecordFeedback attaches a score and optional edits to a generation log
// entry, then synthesizes a memory from the feedback. The generation must
// belong to the claimed workspace; a mismatch rejects before anything is
// written. Edits signal a correction regardless of score; a high score
// without edits is a preference worth repeating.
func (s *Store) RecordFeedback(workspaceID, generationID string, score int, edits *string) (*Memory, error) {
	entry, err := s.generations.AttachFeedback(workspaceID, generationID, score, edits)
	if err != nil {
		return nil, err
	}

	memoryType := TypeCorrection
	if edits == nil && score >= 4 {
		memoryType = TypePreference
	}

	content := map[string]any{
		"summary":       feedbackSummary(entry.ContentType, score, edits),
		"generation_id": generationID,
		"content_type":  entry.ContentType,
		"score":         score,
	}
	if edits != nil {
		content["edits"] = *edits
	}

	return s.Add(AddInput{
		WorkspaceID: workspaceID,
		Type:        memoryType,
		Content:     content,
		Source:      SourceUserFeedback,
		Confidence:  float64(score) / 5,
	})
}

func feedbackSummary(contentType string, score int, edits *string) string {
	if edits != nil {
		return fmt.Sprintf("User edited a %s generation (scored %d/5): %s", contentType, score, truncateRunes(*edits, 200))
	}
	if score >= 4 {
		return fmt.Sprintf("User rated a %s generation %d/5; keep this style", contentType, score)
	}
	return fmt.Sprintf("User rated a %s generation %d/5; avoid this approach", contentType, score)
}

func (s *Store) queryMemories(query string, args ...any) ([]Memory, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var (
			m           Memory
			contentJSON string
			expires     sql.NullInt64
		)
		if err := rows.Scan(
			&m.ID, &m.WorkspaceID, &m.Type, &contentJSON, &m.Source,
			&m.Confidence, &m.CreatedAt, &expires,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(contentJSON), &m.Content); err != nil {
			return nil, errors.NewInternal(err)
		}
		if expires.Valid {
			v := expires.Int64
			m.ExpiresAt = &v
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func toNullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
