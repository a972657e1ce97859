// Package genlog records every prompt/output pair a generation call issues.
// Entries are written best-effort: a lost log row must never block a
// generation from returning. Rated entries carry learning value and are
// kept indefinitely; unrated ones are garbage-collected.
package genlog

import (
	"crypto/rand"
	"database/sql"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pithlabs/pith/internal/errors"
)

// Truncation caps for stored prompt and output text.
const (
	MaxStoredPromptChars = 2000
	MaxStoredOutputChars = 4000
)

// Entry is one logged generation.
type Entry struct {
	ID            string  `json:"id"`
	WorkspaceID   string  `json:"workspace_id"`
	ContentType   string  `json:"content_type"`
	PromptUsed    string  `json:"prompt_used"`
	Output        string  `json:"output"`
	BCMVersion    int     `json:"bcm_version"`
	TokensUsed    int     `json:"tokens_used"`
	Cost          float64 `json:"cost"`
	FeedbackScore *int    `json:"feedback_score,omitempty"`
	UserEdits     *string `json:"user_edits,omitempty"`
	CreatedAt     int64   `json:"created_at"`
}

// Rated reports whether feedback has been attached.
func (e *Entry) Rated() bool {
	return e.FeedbackScore != nil
}

// Store provides access to the generations table.
type Store struct {
	db *sql.DB
}

// NewStore creates a generation log store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LogInput contains parameters for the Log operation.
type LogInput struct {
	WorkspaceID string
	ContentType string
	Prompt      string
	Output      string
	BCMVersion  int
	TokensUsed  int
	Cost        float64
}

// Log inserts a new entry, truncating prompt and output to their storage
// caps. Insert failure is logged and swallowed; the caller's generation
// already happened and must still be returned to the user. The returned
// entry is nil when the insert failed.
func (s *Store) Log(input LogInput) *Entry {
	id, err := generateULID()
	if err != nil {
		log.Printf("genlog: id generation failed: %v", err)
		return nil
	}

	e := &Entry{
		ID:          id,
		WorkspaceID: input.WorkspaceID,
		ContentType: input.ContentType,
		PromptUsed:  truncateRunes(input.Prompt, MaxStoredPromptChars),
		Output:      truncateRunes(input.Output, MaxStoredOutputChars),
		BCMVersion:  input.BCMVersion,
		TokensUsed:  input.TokensUsed,
		Cost:        input.Cost,
		CreatedAt:   time.Now().Unix(),
	}

	query := `
		INSERT INTO generations (
			id, workspace, content_type, prompt_used, output,
			bcm_version, tokens_used, cost, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		e.ID, e.WorkspaceID, e.ContentType, e.PromptUsed, e.Output,
		e.BCMVersion, e.TokensUsed, e.Cost, e.CreatedAt,
	)
	if err != nil {
		log.Printf("genlog: insert failed for workspace %s: %v", input.WorkspaceID, err)
		return nil
	}

	return e
}

// Get fetches one entry and verifies it belongs to the claimed workspace.
// An entry owned by another workspace is a WORKSPACE_MISMATCH, not a
// NOT_FOUND: the distinction matters to feedback recording.
func (s *Store) Get(workspaceID, id string) (*Entry, error) {
	query := `
		SELECT id, workspace, content_type, prompt_used, output,
			bcm_version, tokens_used, cost, feedback_score, user_edits, created_at
		FROM generations
		WHERE id = ?
	`
	e, err := scanEntry(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("generation", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if e.WorkspaceID != workspaceID {
		return nil, errors.NewWorkspaceMismatch(workspaceID, id)
	}
	return e, nil
}

// AttachFeedback records the score and optional edits on an entry, after
// verifying ownership. Feedback is attached exactly once; a second attempt
// is a conflict.
func (s *Store) AttachFeedback(workspaceID, id string, score int, edits *string) (*Entry, error) {
	if score < 1 || score > 5 {
		return nil, errors.NewInvalidRequest("score must be between 1 and 5")
	}

	e, err := s.Get(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if e.Rated() {
		return nil, errors.NewConflict("feedback already recorded for this generation")
	}

	query := `
		UPDATE generations
		SET feedback_score = ?, user_edits = ?
		WHERE id = ? AND feedback_score IS NULL
	`
	result, err := s.db.Exec(query, score, toNullString(edits), id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if affected == 0 {
		// Lost the race with a concurrent feedback write.
		return nil, errors.NewConflict("feedback already recorded for this generation")
	}

	e.FeedbackScore = &score
	e.UserEdits = edits
	return e, nil
}

// Recent lists entries most-recent-first, optionally filtered by content type.
func (s *Store) Recent(workspaceID, contentType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, workspace, content_type, prompt_used, output,
			bcm_version, tokens_used, cost, feedback_score, user_edits, created_at
		FROM generations
		WHERE workspace = ?
	`
	args := []any{workspaceID}
	if contentType != "" {
		query += " AND content_type = ?"
		args = append(args, contentType)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	return s.queryEntries(query, args...)
}

// Rated lists rated entries ordered by feedback score descending. A
// minScore of 0 returns all rated entries.
func (s *Store) Rated(workspaceID string, minScore, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, workspace, content_type, prompt_used, output,
			bcm_version, tokens_used, cost, feedback_score, user_edits, created_at
		FROM generations
		WHERE workspace = ? AND feedback_score IS NOT NULL
	`
	args := []any{workspaceID}
	if minScore > 0 {
		query += " AND feedback_score >= ?"
		args = append(args, minScore)
	}
	query += " ORDER BY feedback_score DESC, created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	return s.queryEntries(query, args...)
}

// CountSince counts entries created at or after the given unix timestamp.
func (s *Store) CountSince(workspaceID string, since int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM generations WHERE workspace = ? AND created_at >= ?`,
		workspaceID, since,
	).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// CountRated counts rated entries for a workspace.
func (s *Store) CountRated(workspaceID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM generations WHERE workspace = ? AND feedback_score IS NOT NULL`,
		workspaceID,
	).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// Cleanup deletes unrated entries older than maxAgeDays. Rated entries are
// retained indefinitely. Returns the number of rows deleted.
func (s *Store) Cleanup(workspaceID string, maxAgeDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).Unix()

	result, err := s.db.Exec(
		`DELETE FROM generations WHERE workspace = ? AND feedback_score IS NULL AND created_at < ?`,
		workspaceID, cutoff,
	)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func (s *Store) queryEntries(query string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			score sql.NullInt64
			edits sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.WorkspaceID, &e.ContentType, &e.PromptUsed, &e.Output,
			&e.BCMVersion, &e.TokensUsed, &e.Cost, &score, &edits, &e.CreatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		if score.Valid {
			v := int(score.Int64)
			e.FeedbackScore = &v
		}
		if edits.Valid {
			e.UserEdits = &edits.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var (
		e     Entry
		score sql.NullInt64
		edits sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.ContentType, &e.PromptUsed, &e.Output,
		&e.BCMVersion, &e.TokensUsed, &e.Cost, &score, &edits, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		e.FeedbackScore = &v
	}
	if edits.Valid {
		e.UserEdits = &edits.String
	}
	return &e, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
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
