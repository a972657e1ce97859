package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pithlabs/pith/internal/errors"
)

func seedVersions(t *testing.T, env *Env, workspace string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := env.Synthesize(context.Background(), SynthesizeInput{
			WorkspaceID: workspace,
			RawContext:  rawContext,
		}); err != nil {
			t.Fatalf("Synthesize %d: %v", i+1, err)
		}
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	source := setupEnv(t, nil)
	seedVersions(t, source, "acme", 2)
	seedVersions(t, source, "globex", 1)

	exportPath := filepath.Join(t.TempDir(), "backup.jsonl")
	exported, err := source.Export(context.Background(), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.Count != 3 {
		t.Errorf("expected 3 exported records, got %d", exported.Count)
	}
	if exported.Path != exportPath {
		t.Errorf("unexpected export path %q", exported.Path)
	}

	dest := setupEnv(t, nil)
	imported, err := dest.Import(ImportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.Imported != 3 || imported.Skipped != 0 || len(imported.Errors) != 0 {
		t.Fatalf("unexpected import result %+v", imported)
	}

	got, err := dest.GetManifest(GetManifestInput{WorkspaceID: "acme"})
	if err != nil {
		t.Fatalf("GetManifest after import: %v", err)
	}
	if got.Manifest.Version != 2 {
		t.Errorf("expected imported latest version 2, got %d", got.Manifest.Version)
	}
	if got.Manifest.Foundation.Company != "Acme Robotics" {
		t.Errorf("unexpected company %q", got.Manifest.Foundation.Company)
	}
}

func TestExportWorkspaceFilter(t *testing.T) {
	env := setupEnv(t, nil)
	seedVersions(t, env, "acme", 2)
	seedVersions(t, env, "globex", 1)

	exportPath := filepath.Join(t.TempDir(), "acme.jsonl")
	exported, err := env.Export(context.Background(), ExportInput{Path: exportPath, WorkspaceID: "acme"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.Count != 2 {
		t.Errorf("expected 2 records for acme, got %d", exported.Count)
	}
}

func TestImportCollisionModes(t *testing.T) {
	env := setupEnv(t, nil)
	seedVersions(t, env, "acme", 2)

	exportPath := filepath.Join(t.TempDir(), "backup.jsonl")
	if _, err := env.Export(context.Background(), ExportInput{Path: exportPath}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	t.Run("mode error aborts on collision", func(t *testing.T) {
		out, err := env.Import(ImportInput{Path: exportPath})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if out.Imported != 0 {
			t.Errorf("expected nothing imported, got %d", out.Imported)
		}
		if len(out.Errors) != 1 || out.Errors[0].Code != "COLLISION" {
			t.Errorf("expected one COLLISION error, got %+v", out.Errors)
		}
	})

	t.Run("mode skip passes over stored versions", func(t *testing.T) {
		seedVersions(t, env, "acme", 1) // version 3, not in the export

		out, err := env.Import(ImportInput{Path: exportPath, Mode: ImportModeSkip})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if out.Imported != 0 || out.Skipped != 2 {
			t.Errorf("expected 0 imported / 2 skipped, got %+v", out)
		}
	})

	t.Run("invalid mode rejected", func(t *testing.T) {
		_, err := env.Import(ImportInput{Path: exportPath, Mode: "merge"})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("expected INVALID_REQUEST, got %v", err)
		}
	})
}

func TestImportRejectsTamperedPayload(t *testing.T) {
	env := setupEnv(t, nil)
	seedVersions(t, env, "acme", 1)

	exportPath := filepath.Join(t.TempDir(), "backup.jsonl")
	if _, err := env.Export(context.Background(), ExportInput{Path: exportPath}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	tampered := strings.Replace(string(data), "Acme Robotics", "Evil Robotics", 1)
	if tampered == string(data) {
		t.Fatal("expected company name in export payload")
	}
	if err := os.WriteFile(exportPath, []byte(tampered), 0600); err != nil {
		t.Fatalf("write tampered export: %v", err)
	}

	dest := setupEnv(t, nil)
	out, err := dest.Import(ImportInput{Path: exportPath, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Imported != 0 {
		t.Errorf("expected tampered record rejected, got %d imported", out.Imported)
	}
	if len(out.Errors) != 1 || out.Errors[0].Code != "CHECKSUM_MISMATCH" {
		t.Errorf("expected one CHECKSUM_MISMATCH error, got %+v", out.Errors)
	}
}

func TestImportMissingFile(t *testing.T) {
	env := setupEnv(t, nil)

	_, err := env.Import(ImportInput{Path: filepath.Join(t.TempDir(), "missing.jsonl")})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
