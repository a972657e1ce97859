package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
)

// ErrVersionExists is returned when inserting a manifest version that is
// already stored for the workspace.
var ErrVersionExists = &errors.PithError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "manifest version already exists for workspace",
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// InsertManifest appends a new manifest version. Versions are append-only;
// storing an existing (workspace, version) pair fails with ErrVersionExists.
// The raw context document is retained alongside the manifest so reflection
// can re-run the full pipeline later.
func InsertManifest(db *sql.DB, m *manifest.Manifest, rawContext []byte) error {
	return insertManifest(db, m, rawContext)
}

// InsertManifestTx is InsertManifest inside an existing transaction, for
// atomic multi-version import.
func InsertManifestTx(tx *sql.Tx, m *manifest.Manifest, rawContext []byte) error {
	return insertManifest(tx, m, rawContext)
}

func insertManifest(e execer, m *manifest.Manifest, rawContext []byte) error {
	payload := manifest.CanonicalJSON(m)

	query := `
		INSERT INTO manifests (
			workspace, version, checksum, source, generated_at,
			synthesized, payload_json, raw_context
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	synthesized := 0
	if m.Meta.Synthesized {
		synthesized = 1
	}

	_, err := e.Exec(query,
		m.WorkspaceID, m.Version, m.Checksum, string(m.Source), m.GeneratedAt,
		synthesized, string(payload), string(rawContext),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrVersionExists
		}
		return errors.NewInternal(err)
	}

	return nil
}

// ManifestVersionExists reports whether a (workspace, version) pair is stored.
func ManifestVersionExists(db *sql.DB, workspace string, version int) (bool, error) {
	var one int
	err := db.QueryRow(
		`SELECT 1 FROM manifests WHERE workspace = ? AND version = ?`,
		workspace, version,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports "UNIQUE constraint failed: ..." for unique violations;
	// the manifests primary key surfaces the same way.
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "PRIMARY KEY constraint failed")
}

// LatestManifest returns the highest stored version for a workspace in a
// single fetch, so concurrent recompilation never yields a torn read.
func LatestManifest(db *sql.DB, workspace string) (*manifest.Manifest, error) {
	query := `
		SELECT payload_json FROM manifests
		WHERE workspace = ?
		ORDER BY version DESC
		LIMIT 1
	`
	return scanManifestPayload(db.QueryRow(query, workspace), workspace)
}

// ManifestByVersion returns one retained version for audit.
func ManifestByVersion(db *sql.DB, workspace string, version int) (*manifest.Manifest, error) {
	query := `
		SELECT payload_json FROM manifests
		WHERE workspace = ? AND version = ?
	`
	return scanManifestPayload(db.QueryRow(query, workspace, version), workspace+"@"+strconv.Itoa(version))
}

// LatestVersion returns the highest stored version number for a workspace,
// or 0 if none exist.
func LatestVersion(db *sql.DB, workspace string) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow(`SELECT MAX(version) FROM manifests WHERE workspace = ?`, workspace).Scan(&version)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(version.Int64), nil
}

// LatestRawContext returns the original source document stored with the
// latest manifest version.
func LatestRawContext(db *sql.DB, workspace string) ([]byte, error) {
	query := `
		SELECT raw_context FROM manifests
		WHERE workspace = ?
		ORDER BY version DESC
		LIMIT 1
	`
	var raw string
	err := db.QueryRow(query, workspace).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("manifest", workspace)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return []byte(raw), nil
}

// ManifestVersionInfo describes one retained manifest version.
type ManifestVersionInfo struct {
	Version     int             `json:"version"`
	Checksum    string          `json:"checksum"`
	Source      manifest.Source `json:"source"`
	GeneratedAt int64           `json:"generated_at"`
	Synthesized bool            `json:"synthesized"`
}

// ListManifestVersions lists retained versions, newest first.
func ListManifestVersions(db *sql.DB, workspace string, limit int) ([]ManifestVersionInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT version, checksum, source, generated_at, synthesized
		FROM manifests
		WHERE workspace = ?
		ORDER BY version DESC
		LIMIT ?
	`
	rows, err := db.Query(query, workspace, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []ManifestVersionInfo
	for rows.Next() {
		var info ManifestVersionInfo
		var source string
		var synthesized int
		if err := rows.Scan(&info.Version, &info.Checksum, &source, &info.GeneratedAt, &synthesized); err != nil {
			return nil, errors.NewInternal(err)
		}
		info.Source = manifest.Source(source)
		info.Synthesized = synthesized != 0
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// WorkspaceInfo summarizes a workspace's latest manifest version.
type WorkspaceInfo struct {
	WorkspaceID   string          `json:"workspace_id"`
	LatestVersion int             `json:"latest_version"`
	Source        manifest.Source `json:"source"`
	GeneratedAt   int64           `json:"generated_at"`
	Synthesized   bool            `json:"synthesized"`
}

// ListWorkspaces lists every workspace with a stored manifest, most
// recently updated first.
func ListWorkspaces(db *sql.DB) ([]WorkspaceInfo, error) {
	query := `
		SELECT m.workspace, m.version, m.source, m.generated_at, m.synthesized
		FROM manifests m
		INNER JOIN (
			SELECT workspace, MAX(version) AS version
			FROM manifests
			GROUP BY workspace
		) latest ON m.workspace = latest.workspace AND m.version = latest.version
		ORDER BY m.generated_at DESC
	`
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []WorkspaceInfo
	for rows.Next() {
		var info WorkspaceInfo
		var source string
		var synthesized int
		if err := rows.Scan(&info.WorkspaceID, &info.LatestVersion, &source, &info.GeneratedAt, &synthesized); err != nil {
			return nil, errors.NewInternal(err)
		}
		info.Source = manifest.Source(source)
		info.Synthesized = synthesized != 0
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// ManifestRow is a full stored manifest row, used for export.
type ManifestRow struct {
	WorkspaceID string
	Version     int
	Checksum    string
	Source      string
	GeneratedAt int64
	Synthesized bool
	Payload     string
	RawContext  string
}

// StreamManifests returns all stored manifest rows ordered by workspace and
// version, optionally filtered to one workspace. Caller must close the rows.
func StreamManifests(ctx context.Context, db *sql.DB, workspace string) (*sql.Rows, error) {
	query := `
		SELECT workspace, version, checksum, source, generated_at,
		       synthesized, payload_json, raw_context
		FROM manifests
	`
	args := []any{}
	if workspace != "" {
		query += ` WHERE workspace = ?`
		args = append(args, workspace)
	}
	query += ` ORDER BY workspace ASC, version ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanManifestRow scans one row from a StreamManifests result set.
func ScanManifestRow(rows *sql.Rows) (*ManifestRow, error) {
	var row ManifestRow
	var synthesized int
	err := rows.Scan(
		&row.WorkspaceID, &row.Version, &row.Checksum, &row.Source,
		&row.GeneratedAt, &synthesized, &row.Payload, &row.RawContext,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	row.Synthesized = synthesized != 0
	return &row, nil
}

func scanManifestPayload(row *sql.Row, identifier string) (*manifest.Manifest, error) {
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("manifest", identifier)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var m manifest.Manifest
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &m, nil
}
