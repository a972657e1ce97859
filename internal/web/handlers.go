package web

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pithlabs/pith/internal/db"
	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/manifest"
	"github.com/pithlabs/pith/internal/ops"
)

// Handlers holds dependencies for web handlers.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleWorkspaces renders the workspace list page.
func (h *Handlers) HandleWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := db.ListWorkspaces(h.env.DB)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, http.StatusOK, "workspaces", WorkspacesPageData{
		PageData:   PageData{Title: "Workspaces", Version: h.renderer.version},
		Workspaces: workspaces,
	})
}

// HandleWorkspace renders the latest manifest for a workspace, with the
// memory summary and recent generations alongside.
func (h *Handlers) HandleWorkspace(w http.ResponseWriter, r *http.Request) {
	h.renderWorkspace(w, r, r.PathValue("id"), 0)
}

// HandleVersion renders a specific retained manifest version.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid version"))
		return
	}
	h.renderWorkspace(w, r, r.PathValue("id"), version)
}

func (h *Handlers) renderWorkspace(w http.ResponseWriter, r *http.Request, workspaceID string, version int) {
	got, err := h.env.GetManifest(ops.GetManifestInput{WorkspaceID: workspaceID, Version: version})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	m := got.Manifest

	versions, err := db.ListManifestVersions(h.env.DB, workspaceID, 10)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// Summary and generations are side panels; their failure should not
	// take down the manifest view.
	summary, err := h.env.Memories.GetSummary(workspaceID)
	if err != nil {
		log.Printf("web: memory summary failed for %s: %v", workspaceID, err)
	}
	generations, err := h.env.Generations.Recent(workspaceID, "", 10)
	if err != nil {
		log.Printf("web: generation list failed for %s: %v", workspaceID, err)
	}

	data := WorkspacePageData{
		PageData:     PageData{Title: workspaceID, Version: h.renderer.version},
		WorkspaceID:  workspaceID,
		Manifest:     m,
		RenderedHTML: renderMarkdown(manifestMarkdown(m)),
		Versions:     versions,
		Summary:      summary,
		Generations:  generations,
	}
	h.renderer.renderPage(w, http.StatusOK, "workspace", data)
}

// manifestMarkdown lays the manifest out as a markdown document for display.
func manifestMarkdown(m *manifest.Manifest) string {
	var b strings.Builder

	f := m.Foundation
	fmt.Fprintf(&b, "# %s\n\n", f.Company)
	fmt.Fprintf(&b, "%s, %s. %s\n\n", f.Industry, f.Stage, f.Mission)
	if f.ValueProp != "" {
		fmt.Fprintf(&b, "**Value proposition:** %s\n\n", f.ValueProp)
	}

	if m.Messaging.OneLiner != "" {
		fmt.Fprintf(&b, "> %s\n\n", m.Messaging.OneLiner)
	}

	if len(m.ICPs) > 0 {
		b.WriteString("## Audiences\n\n")
		for _, icp := range m.ICPs {
			fmt.Fprintf(&b, "- **%s**", icp.Role)
			if len(icp.Pains) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(icp.Pains, "; "))
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	c := m.Competitive
	if c.Category != "" || c.Differentiator != "" {
		b.WriteString("## Positioning\n\n")
		if c.Category != "" {
			fmt.Fprintf(&b, "Category: %s (%s)\n\n", c.Category, c.Positioning)
		}
		if c.Differentiator != "" {
			fmt.Fprintf(&b, "Differentiator: %s\n\n", c.Differentiator)
		}
		if len(c.Alternatives) > 0 {
			fmt.Fprintf(&b, "Alternatives: %s\n\n", strings.Join(c.Alternatives, ", "))
		}
	}

	if m.Identity != nil {
		b.WriteString("## Voice\n\n")
		fmt.Fprintf(&b, "**%s**: %s, %s\n\n", m.Identity.Archetype, m.Identity.CommunicationStyle, m.Identity.EmotionalRegister)
		if len(m.Identity.VocabularyDeny) > 0 {
			fmt.Fprintf(&b, "Never say: %s\n\n", strings.Join(m.Identity.VocabularyDeny, ", "))
		}
	}

	if m.GuardrailsV2 != nil {
		if len(m.GuardrailsV2.Positive) > 0 || len(m.GuardrailsV2.Negative) > 0 {
			b.WriteString("## Guardrails\n\n")
			for _, g := range m.GuardrailsV2.Positive {
				fmt.Fprintf(&b, "- Always: %s\n", g)
			}
			for _, g := range m.GuardrailsV2.Negative {
				fmt.Fprintf(&b, "- Never: %s\n", g)
			}
			b.WriteByte('\n')
		}
	} else if len(m.Messaging.Guardrails) > 0 {
		b.WriteString("## Guardrails\n\n")
		for _, g := range m.Messaging.Guardrails {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteByte('\n')
	}

	if len(m.Channels) > 0 {
		b.WriteString("## Channels\n\n")
		for _, ch := range m.Channels {
			if ch.Priority != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", ch.Name, ch.Priority)
			} else {
				fmt.Fprintf(&b, "- %s\n", ch.Name)
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}
