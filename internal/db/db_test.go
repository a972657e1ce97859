package db

import (
	"testing"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
)

func TestInit_CreatesSchema(t *testing.T) {
	tmpDir := t.TempDir()

	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	version, err := GetUserVersion(database)
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestInit_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	database.Close()

	database, err = Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	database.Close()
}

func TestManifests_InsertAndLatest(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	raw := []byte(`{"company":"Acme Robotics"}`)
	doc := manifest.ParseDocument(raw)

	v1 := manifest.Reduce(doc, "acme", 1, manifest.SourceOnboarding, 1700000000)
	if err := InsertManifest(database, &v1, raw); err != nil {
		t.Fatalf("InsertManifest v1 failed: %v", err)
	}

	v2 := manifest.Reduce(doc, "acme", 2, manifest.SourceReflection, 1700000100)
	if err := InsertManifest(database, &v2, raw); err != nil {
		t.Fatalf("InsertManifest v2 failed: %v", err)
	}

	latest, err := LatestManifest(database, "acme")
	if err != nil {
		t.Fatalf("LatestManifest failed: %v", err)
	}
	if latest.Version != 2 {
		t.Errorf("latest version = %d, want 2", latest.Version)
	}
	if latest.Source != manifest.SourceReflection {
		t.Errorf("latest source = %q, want reflection", latest.Source)
	}
	if !manifest.VerifyChecksum(latest) {
		t.Error("round-tripped manifest fails checksum verification")
	}

	n, err := LatestVersion(database, "acme")
	if err != nil {
		t.Fatalf("LatestVersion failed: %v", err)
	}
	if n != 2 {
		t.Errorf("LatestVersion = %d, want 2", n)
	}
}

func TestManifests_VersionConflict(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	doc := manifest.Document{Company: manifest.DocumentCompany{Name: "Acme"}}
	m := manifest.Reduce(doc, "acme", 1, manifest.SourceOnboarding, 1700000000)

	if err := InsertManifest(database, &m, nil); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := InsertManifest(database, &m, nil); err != ErrVersionExists {
		t.Errorf("duplicate insert err = %v, want ErrVersionExists", err)
	}
}

func TestManifests_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	_, err = LatestManifest(database, "nobody")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestManifests_RawContextRetained(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	raw := []byte(`{"company":"Acme","mission":"robots everywhere"}`)
	m := manifest.Reduce(manifest.ParseDocument(raw), "acme", 1, manifest.SourceOnboarding, 1700000000)
	if err := InsertManifest(database, &m, raw); err != nil {
		t.Fatalf("InsertManifest failed: %v", err)
	}

	got, err := LatestRawContext(database, "acme")
	if err != nil {
		t.Fatalf("LatestRawContext failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("raw context = %q, want %q", got, raw)
	}
}

func TestManifests_ListVersions(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer database.Close()

	doc := manifest.Document{Company: manifest.DocumentCompany{Name: "Acme"}}
	for v := 1; v <= 3; v++ {
		m := manifest.Reduce(doc, "acme", v, manifest.SourceOnboarding, int64(1700000000+v))
		if err := InsertManifest(database, &m, nil); err != nil {
			t.Fatalf("insert v%d failed: %v", v, err)
		}
	}

	infos, err := ListManifestVersions(database, "acme", 10)
	if err != nil {
		t.Fatalf("ListManifestVersions failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d versions, want 3", len(infos))
	}
	if infos[0].Version != 3 || infos[2].Version != 1 {
		t.Errorf("versions not newest-first: %+v", infos)
	}
}
