package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var reduceToolDef = mcp.NewTool("manifest_reduce",
	mcp.WithDescription("Preview the deterministic reduction of a raw business-context document into a compact manifest. Nothing is persisted."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace the manifest belongs to")),
	mcp.WithString("raw_context", mcp.Required(), mcp.Description("Raw business-context document as a JSON string")),
	mcp.WithNumber("version", mcp.Description("Explicit version number; defaults to latest+1")),
	mcp.WithString("source", mcp.Description("Source tag: initial-onboarding, reflection, or seed"), mcp.Enum("initial-onboarding", "reflection", "seed")),
)

var synthesizeToolDef = mcp.NewTool("manifest_synthesize",
	mcp.WithDescription("Reduce a raw business-context document and enrich it with a synthesized voice identity, then persist the result as a new manifest version. Enrichment is best-effort; the reduced manifest is stored either way."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace the manifest belongs to")),
	mcp.WithString("raw_context", mcp.Required(), mcp.Description("Raw business-context document as a JSON string")),
	mcp.WithNumber("version", mcp.Description("Explicit version number; defaults to latest+1")),
	mcp.WithString("source", mcp.Description("Source tag: initial-onboarding, reflection, or seed"), mcp.Enum("initial-onboarding", "reflection", "seed")),
)

var getManifestToolDef = mcp.NewTool("manifest_get",
	mcp.WithDescription("Fetch a manifest, the latest version by default."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to read")),
	mcp.WithNumber("version", mcp.Description("Specific retained version; omit for latest")),
)

var listVersionsToolDef = mcp.NewTool("manifest_versions",
	mcp.WithDescription("List retained manifest versions for a workspace, newest first."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to read")),
	mcp.WithNumber("limit", mcp.Description("Maximum versions to return (default 20)")),
)

var compileToolDef = mcp.NewTool("prompt_compile",
	mcp.WithDescription("Compile the system prompt a generation call should use, from the latest manifest and optionally recent learned memories."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to compile for")),
	mcp.WithString("content_type", mcp.Required(), mcp.Description("Content type, e.g. email, blog, social, landing_page")),
	mcp.WithString("target_icp", mcp.Description("ICP role to target; defaults to the manifest's first ICP")),
	mcp.WithBoolean("include_memories", mcp.Description("Augment the prompt with recent memories (result is not cached)")),
	mcp.WithNumber("memory_limit", mcp.Description("Maximum memories to include (default 5)")),
)

var logGenerationToolDef = mcp.NewTool("generation_log",
	mcp.WithDescription("Record a prompt/output pair in the generation log. Best-effort: a failed insert reports logged=false, never an error."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace the generation belongs to")),
	mcp.WithString("content_type", mcp.Required(), mcp.Description("Content type of the generation")),
	mcp.WithString("prompt", mcp.Description("Prompt used (stored truncated)")),
	mcp.WithString("output", mcp.Description("Generated output (stored truncated)")),
	mcp.WithNumber("bcm_version", mcp.Description("Manifest version the prompt was compiled from")),
	mcp.WithNumber("tokens_used", mcp.Description("Tokens consumed by the call")),
	mcp.WithNumber("cost", mcp.Description("Cost of the call")),
)

var listGenerationsToolDef = mcp.NewTool("generation_list",
	mcp.WithDescription("List generation log entries, most recent first, or best-rated first with rated_only."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to read")),
	mcp.WithString("content_type", mcp.Description("Filter by content type (recency ordering only)")),
	mcp.WithBoolean("rated_only", mcp.Description("Return only rated entries, ordered by score descending")),
	mcp.WithNumber("min_score", mcp.Description("Minimum feedback score, with rated_only")),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
)

var recordFeedbackToolDef = mcp.NewTool("feedback_record",
	mcp.WithDescription("Attach a 1-5 score and optional user edits to a generation, and learn a memory from them. The generation must belong to the given workspace."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace that owns the generation")),
	mcp.WithString("generation_id", mcp.Required(), mcp.Description("Generation log entry to rate")),
	mcp.WithNumber("score", mcp.Required(), mcp.Description("Score from 1 (bad) to 5 (excellent)")),
	mcp.WithString("edits", mcp.Description("What the user changed in the output, if anything")),
)

var addMemoryToolDef = mcp.NewTool("memory_add",
	mcp.WithDescription("Persist a learned observation directly, outside the feedback path."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace the memory belongs to")),
	mcp.WithString("type", mcp.Required(), mcp.Description("Memory type"), mcp.Enum("correction", "preference", "pattern", "insight")),
	mcp.WithObject("content", mcp.Required(), mcp.Description("Structured payload; must include a \"summary\" string")),
	mcp.WithString("source", mcp.Description("Memory source; defaults to user_feedback"), mcp.Enum("user_feedback", "generation_analysis", "reflection")),
	mcp.WithNumber("confidence", mcp.Required(), mcp.Description("Confidence in [0,1]")),
	mcp.WithNumber("expires_at", mcp.Description("Optional unix expiry timestamp")),
)

var listMemoriesToolDef = mcp.NewTool("memory_list",
	mcp.WithDescription("List memories, most recent first, optionally filtered by type."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to read")),
	mcp.WithString("type", mcp.Description("Filter by memory type"), mcp.Enum("correction", "preference", "pattern", "insight")),
	mcp.WithNumber("limit", mcp.Description("Maximum memories to return (default 20)")),
)

var memorySummaryToolDef = mcp.NewTool("memory_summary",
	mcp.WithDescription("Aggregate view of a workspace's memories: counts by type plus the highest-confidence entries. Served from a short-lived cache."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to read")),
)

var deleteMemoryToolDef = mcp.NewTool("memory_delete",
	mcp.WithDescription("Delete one memory. The memory must belong to the given workspace."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace that owns the memory")),
	mcp.WithString("memory_id", mcp.Required(), mcp.Description("Memory to delete")),
)

var reflectToolDef = mcp.NewTool("reflect_run",
	mcp.WithDescription("Run a reflection cycle: garbage-collect, mine rated generations for insights, store them as memories, and recompile the manifest. Without force, runs only when the auto-reflect threshold is met."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to reflect on")),
	mcp.WithBoolean("force", mcp.Description("Run even when the threshold is not met")),
)

var reflectCheckToolDef = mcp.NewTool("reflect_check",
	mcp.WithDescription("Report whether enough feedback has accumulated for an automatic reflection."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to check")),
)

var exportToolDef = mcp.NewTool("manifest_export",
	mcp.WithDescription("Export manifest versions to a JSONL file for backup or transfer."),
	mcp.WithString("workspace_id", mcp.Description("Only this workspace (default: all)")),
	mcp.WithString("path", mcp.Description("Output path (default: ~/.pith/exports/)")),
)

var importToolDef = mcp.NewTool("manifest_import",
	mcp.WithDescription("Import manifest versions from a JSONL export file. Checksums are re-verified before anything is stored."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file to read")),
	mcp.WithString("mode", mcp.Description("Collision handling (default: error)"), mcp.Enum("error", "skip")),
)
