package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ReflectThreshold != 20 {
		t.Errorf("ReflectThreshold = %d, want 20", cfg.ReflectThreshold)
	}
	if cfg.ManifestTTLSeconds != 3600 {
		t.Errorf("ManifestTTLSeconds = %d, want 3600", cfg.ManifestTTLSeconds)
	}
	if cfg.SummaryTTLSeconds != 300 {
		t.Errorf("SummaryTTLSeconds = %d, want 300", cfg.SummaryTTLSeconds)
	}
}

func TestLoad_OverlayWins(t *testing.T) {
	tmpDir := t.TempDir()

	content := `{"reflect_threshold": 5, "model": "gpt-4o", "summary_ttl_seconds": 60}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ReflectThreshold != 5 {
		t.Errorf("ReflectThreshold = %d, want 5", cfg.ReflectThreshold)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.SummaryTTLSeconds != 60 {
		t.Errorf("SummaryTTLSeconds = %d, want 60", cfg.SummaryTTLSeconds)
	}
	// Untouched values keep defaults
	if cfg.PromptTTLSeconds != 1800 {
		t.Errorf("PromptTTLSeconds = %d, want 1800", cfg.PromptTTLSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should fail on invalid JSON")
	}
}

func TestMerge_DisabledTools(t *testing.T) {
	base := &Config{DisabledTools: []string{"reflect_run", " memory_add "}}
	overlay := &Config{DisabledTools: []string{"reflect_run", "prompt_compile"}}

	merged := Merge(base, overlay)

	want := []string{"reflect_run", "memory_add", "prompt_compile"}
	if len(merged.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", merged.DisabledTools, want)
	}
	for i, s := range want {
		if merged.DisabledTools[i] != s {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, merged.DisabledTools[i], s)
		}
	}
}
