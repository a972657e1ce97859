package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pithlabs/pith/internal/ops"
)

// KnownGroups lists the tool name prefixes.
var KnownGroups = []string{"manifest", "prompt", "generation", "feedback", "memory", "reflect"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"manifest_reduce": {
		def:     reduceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReduce },
	},
	"manifest_synthesize": {
		def:     synthesizeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSynthesize },
	},
	"manifest_get": {
		def:     getManifestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetManifest },
	},
	"manifest_versions": {
		def:     listVersionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListVersions },
	},
	"prompt_compile": {
		def:     compileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompilePrompt },
	},
	"generation_log": {
		def:     logGenerationToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogGeneration },
	},
	"generation_list": {
		def:     listGenerationsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListGenerations },
	},
	"feedback_record": {
		def:     recordFeedbackToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordFeedback },
	},
	"memory_add": {
		def:     addMemoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddMemory },
	},
	"memory_list": {
		def:     listMemoriesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListMemories },
	},
	"memory_summary": {
		def:     memorySummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMemorySummary },
	},
	"memory_delete": {
		def:     deleteMemoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleteMemory },
	},
	"reflect_run": {
		def:     reflectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflect },
	},
	"reflect_check": {
		def:     reflectCheckToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReflectCheck },
	},
	"manifest_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"manifest_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GroupForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "manifest_get" → "manifest").
func GroupForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// NewServer creates a new MCP server with the manifest-engine tools
// registered. Tools listed in cfg.DisabledTools are excluded.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pith",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	for _, name := range env.Cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
