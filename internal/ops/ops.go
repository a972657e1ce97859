// Package ops implements the operations exposed to callers (MCP tools,
// CLI commands). Each operation lives in its own file with typed Input
// and Output structs; handlers stay thin mappings onto these.
package ops

import (
	"database/sql"
	"time"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/config"
	"github.com/pithlabs/pith/internal/genlog"
	"github.com/pithlabs/pith/internal/llm"
	"github.com/pithlabs/pith/internal/memory"
	"github.com/pithlabs/pith/internal/reflection"
)

// Env bundles the shared dependencies every operation draws from.
type Env struct {
	DB          *sql.DB
	Cfg         *config.Config
	Cache       *cache.Cache
	Client      llm.Client
	Memories    *memory.Store
	Generations *genlog.Store
	Reflector   *reflection.Reflector
}

// NewEnv wires the stores and the reflector from their base dependencies.
// The client may be nil; synthesis and reflection then run in fallback
// mode.
func NewEnv(database *sql.DB, cfg *config.Config, client llm.Client) *Env {
	c := cache.New()
	generations := genlog.NewStore(database)
	memories := memory.NewStore(
		database, c, generations,
		time.Duration(cfg.SummaryTTLSeconds)*time.Second,
		cfg.MemoryLowConfidenceDays, cfg.MemoryMaxAgeDays,
	)
	reflector := reflection.New(
		database, client, c, memories, generations,
		cfg.ReflectThreshold, cfg.GenerationMaxAgeDays, cfg.MaxOutputTokens,
	)

	return &Env{
		DB:          database,
		Cfg:         cfg,
		Cache:       c,
		Client:      client,
		Memories:    memories,
		Generations: generations,
		Reflector:   reflector,
	}
}

func (e *Env) manifestTTL() time.Duration {
	return time.Duration(e.Cfg.ManifestTTLSeconds) * time.Second
}

func (e *Env) promptTTL() time.Duration {
	return time.Duration(e.Cfg.PromptTTLSeconds) * time.Second
}
