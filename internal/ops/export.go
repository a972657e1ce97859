package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path        string // optional, default: ~/.pith/exports/<workspace>-<timestamp>.jsonl
	WorkspaceID string // optional filter by workspace
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	PithExport    bool   `json:"_pith_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord represents one manifest version in JSONL export format.
// Checksum is re-verified against the manifest payload on import.
type ExportRecord struct {
	// Header detection field - true only for header line
	PithExport bool `json:"_pith_export,omitempty"`

	WorkspaceID string          `json:"workspace_id"`
	Version     int             `json:"version"`
	Checksum    string          `json:"checksum"`
	Source      string          `json:"source"`
	GeneratedAt int64           `json:"generated_at"`
	Synthesized bool            `json:"synthesized"`
	Manifest    json.RawMessage `json:"manifest"`
	RawContext  string          `json:"raw_context,omitempty"`
}

// Export writes manifest versions to a JSONL file, one version per line
// after a header line. Used for backup and for moving workspaces between
// installations.
func (e *Env) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.WorkspaceID, now)
		if err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file
	// on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	header := ExportHeader{
		PithExport:    true,
		SchemaVersion: "1.0",
		ExportedAt:    exportedAt,
	}
	if err := writeJSONLine(file, header); err != nil {
		return nil, err
	}

	rows, err := db.StreamManifests(ctx, e.DB, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.NewInternal(fmt.Errorf("export cancelled: %w", ctx.Err()))
		default:
		}

		row, err := db.ScanManifestRow(rows)
		if err != nil {
			return nil, err
		}

		record := ExportRecord{
			WorkspaceID: row.WorkspaceID,
			Version:     row.Version,
			Checksum:    row.Checksum,
			Source:      row.Source,
			GeneratedAt: row.GeneratedAt,
			Synthesized: row.Synthesized,
			Manifest:    json.RawMessage(row.Payload),
			RawContext:  row.RawContext,
		}
		if err := writeJSONLine(file, record); err != nil {
			return nil, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

func writeJSONLine(file *os.File, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write(line); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// defaultExportPath generates the default export path.
// Format: ~/.pith/exports/<workspace>-<timestamp>.jsonl or all-<timestamp>.jsonl
func defaultExportPath(workspaceID string, now time.Time) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}

	timestamp := now.Format("2006-01-02T150405")
	name := "all"
	if workspaceID != "" {
		name = sanitizeForFilename(workspaceID)
	}

	filename := fmt.Sprintf("%s-%s.jsonl", name, timestamp)
	return filepath.Join(homeDir, ".pith", "exports", filename), nil
}

// sanitizeForFilename strips characters that would break or traverse paths.
func sanitizeForFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "workspace"
	}
	return out
}
