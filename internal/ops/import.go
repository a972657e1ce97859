package ops

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // fail on collision (atomic)
	ImportModeSkip  ImportMode = "skip"  // skip stored (workspace, version) pairs
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line        int    `json:"line"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Version     int    `json:"version,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// Import loads manifest versions from a JSONL export file. Every record's
// checksum is re-verified against its payload before it is stored.
func (e *Env) Import(input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}

	file, err := os.Open(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("import file", input.Path)
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	entries, parseErrors := parseExportFile(file)

	// Mode error is atomic: any bad line aborts before anything is stored
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	switch input.Mode {
	case ImportModeError:
		return e.importModeError(entries)
	default:
		return e.importModeSkip(entries, parseErrors)
	}
}

type importEntry struct {
	line     int
	manifest *manifest.Manifest
	raw      string
}

// parseExportFile parses a JSONL export file, verifying each record's
// checksum against its manifest payload.
func parseExportFile(file *os.File) ([]importEntry, []ImportError) {
	var entries []importEntry
	var parseErrors []ImportError

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		var record ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		// Skip header line
		if record.PithExport {
			continue
		}

		if record.WorkspaceID == "" || record.Version < 1 {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing workspace_id or version",
			})
			continue
		}

		var m manifest.Manifest
		if err := json.Unmarshal(record.Manifest, &m); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:        lineNum,
				WorkspaceID: record.WorkspaceID,
				Version:     record.Version,
				Code:        "INVALID_RECORD",
				Message:     fmt.Sprintf("invalid manifest payload: %v", err),
			})
			continue
		}
		if m.WorkspaceID != record.WorkspaceID || m.Version != record.Version {
			parseErrors = append(parseErrors, ImportError{
				Line:        lineNum,
				WorkspaceID: record.WorkspaceID,
				Version:     record.Version,
				Code:        "INVALID_RECORD",
				Message:     "record and manifest payload disagree on workspace or version",
			})
			continue
		}
		if !manifest.VerifyChecksum(&m) || m.Checksum != record.Checksum {
			parseErrors = append(parseErrors, ImportError{
				Line:        lineNum,
				WorkspaceID: record.WorkspaceID,
				Version:     record.Version,
				Code:        "CHECKSUM_MISMATCH",
				Message:     "manifest payload does not match its checksum",
			})
			continue
		}

		entries = append(entries, importEntry{line: lineNum, manifest: &m, raw: record.RawContext})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return entries, parseErrors
}

// importModeError imports all records atomically, rolling back on any
// collision.
func (e *Env) importModeError(entries []importEntry) (*ImportOutput, error) {
	tx, err := e.DB.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	imported := 0
	for _, entry := range entries {
		if err := db.InsertManifestTx(tx, entry.manifest, []byte(entry.raw)); err != nil {
			if errors.Is(err, errors.ErrConflict) {
				return &ImportOutput{
					Errors: []ImportError{{
						Line:        entry.line,
						WorkspaceID: entry.manifest.WorkspaceID,
						Version:     entry.manifest.Version,
						Code:        "COLLISION",
						Message:     "manifest version already exists; nothing was imported",
					}},
				}, nil
			}
			return nil, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	e.invalidateImported(entries)
	return &ImportOutput{Imported: imported}, nil
}

// importModeSkip imports what it can, skipping versions already stored.
func (e *Env) importModeSkip(entries []importEntry, parseErrors []ImportError) (*ImportOutput, error) {
	imported := 0
	skipped := 0
	var inserted []importEntry

	for _, entry := range entries {
		exists, err := db.ManifestVersionExists(e.DB, entry.manifest.WorkspaceID, entry.manifest.Version)
		if err != nil {
			return nil, err
		}
		if exists {
			skipped++
			continue
		}
		if err := db.InsertManifest(e.DB, entry.manifest, []byte(entry.raw)); err != nil {
			if errors.Is(err, errors.ErrConflict) {
				skipped++
				continue
			}
			return nil, err
		}
		imported++
		inserted = append(inserted, entry)
	}

	e.invalidateImported(inserted)
	return &ImportOutput{
		Imported: imported,
		Skipped:  skipped,
		Errors:   parseErrors,
	}, nil
}

// invalidateImported drops cached state for every workspace that gained a
// version, so the next read sees the imported latest.
func (e *Env) invalidateImported(entries []importEntry) {
	seen := map[string]bool{}
	for _, entry := range entries {
		ws := entry.manifest.WorkspaceID
		if seen[ws] {
			continue
		}
		seen[ws] = true
		e.Cache.Invalidate(ws)
	}
}
