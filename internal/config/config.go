package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
//
// The cache TTLs and the reflection trigger threshold are deliberately
// tunable: they have no single correct value, so deployments adjust them
// here rather than in code.
type Config struct {
	// Model is the text-generation model used for synthesis and reflection.
	Model string `json:"model,omitempty"`

	// MaxOutputTokens bounds each text-generation call.
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// ReflectThreshold is the number of generations that must accumulate
	// since the last reflection before auto-reflection triggers.
	ReflectThreshold int `json:"reflect_threshold,omitempty"`

	// ManifestTTLSeconds is the hot-cache TTL for compiled manifests.
	ManifestTTLSeconds int `json:"manifest_ttl_seconds,omitempty"`

	// PromptTTLSeconds is the hot-cache TTL for compiled prompts.
	PromptTTLSeconds int `json:"prompt_ttl_seconds,omitempty"`

	// SummaryTTLSeconds is the hot-cache TTL for memory summaries.
	// Short (minutes) because feedback arrives in real time.
	SummaryTTLSeconds int `json:"summary_ttl_seconds,omitempty"`

	// MemoryLowConfidenceDays is the age after which low-confidence
	// memories (< 0.3) are garbage-collected.
	MemoryLowConfidenceDays int `json:"memory_low_confidence_days,omitempty"`

	// MemoryMaxAgeDays is the age after which all memories are
	// garbage-collected regardless of confidence.
	MemoryMaxAgeDays int `json:"memory_max_age_days,omitempty"`

	// GenerationMaxAgeDays is the age after which unrated generation log
	// entries are garbage-collected. Rated entries are kept indefinitely.
	GenerationMaxAgeDays int `json:"generation_max_age_days,omitempty"`

	// RawContextMaxBytes bounds the raw context document accepted by reduce
	// and synthesize. Documents beyond it are rejected, not truncated.
	RawContextMaxBytes int `json:"raw_context_max_bytes,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:                   "gpt-4o-mini",
		MaxOutputTokens:         2500,
		ReflectThreshold:        20,
		ManifestTTLSeconds:      3600,
		PromptTTLSeconds:        1800,
		SummaryTTLSeconds:       300,
		MemoryLowConfidenceDays: 30,
		MemoryMaxAgeDays:        90,
		GenerationMaxAgeDays:    60,
		RawContextMaxBytes:      262144,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.pith.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Model = overlay.Model
	if result.Model == "" {
		result.Model = base.Model
	}

	mergeInt := func(b, o int) int {
		if o != 0 {
			return o
		}
		return b
	}
	result.MaxOutputTokens = mergeInt(base.MaxOutputTokens, overlay.MaxOutputTokens)
	result.ReflectThreshold = mergeInt(base.ReflectThreshold, overlay.ReflectThreshold)
	result.ManifestTTLSeconds = mergeInt(base.ManifestTTLSeconds, overlay.ManifestTTLSeconds)
	result.PromptTTLSeconds = mergeInt(base.PromptTTLSeconds, overlay.PromptTTLSeconds)
	result.SummaryTTLSeconds = mergeInt(base.SummaryTTLSeconds, overlay.SummaryTTLSeconds)
	result.MemoryLowConfidenceDays = mergeInt(base.MemoryLowConfidenceDays, overlay.MemoryLowConfidenceDays)
	result.MemoryMaxAgeDays = mergeInt(base.MemoryMaxAgeDays, overlay.MemoryMaxAgeDays)
	result.GenerationMaxAgeDays = mergeInt(base.GenerationMaxAgeDays, overlay.GenerationMaxAgeDays)
	result.RawContextMaxBytes = mergeInt(base.RawContextMaxBytes, overlay.RawContextMaxBytes)
	result.DBMaxOpenConns = mergeInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = mergeInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
