// Package compiler assembles the system prompt a generation call will use.
// Compilation is a pure function over the manifest plus optional target
// audience and memories; caching wraps it separately.
package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/pithlabs/pith/internal/cache"
	"github.com/pithlabs/pith/internal/manifest"
	"github.com/pithlabs/pith/internal/memory"
)

// ContentTypes lists the content types with dedicated instruction
// templates. Unknown types still compile; they just get the generic
// closing instruction.
var ContentTypes = []string{"email", "blog", "social", "landing_page"}

// Compile builds the final system prompt from in-memory data. When the
// manifest carries all three enrichment sections the prompt is built from
// the synthesized identity; otherwise a shorter prompt is built directly
// from the reduced sections.
func Compile(m *manifest.Manifest, contentType, targetICP string, memories []memory.Memory) string {
	if m.Enriched() {
		return compileEnriched(m, contentType, targetICP, memories)
	}
	return compileFallback(m, contentType, targetICP, memories)
}

func compileEnriched(m *manifest.Manifest, contentType, targetICP string, memories []memory.Memory) string {
	var b strings.Builder

	id := m.Identity
	kit := m.PromptKit
	rails := m.GuardrailsV2

	if kit.SystemPrompt != "" {
		b.WriteString(kit.SystemPrompt)
		b.WriteString("\n\n")
	}

	b.WriteString("## Voice\n")
	fmt.Fprintf(&b, "Archetype: %s\n", id.Archetype)
	fmt.Fprintf(&b, "Communication style: %s\n", id.CommunicationStyle)
	fmt.Fprintf(&b, "Emotional register: %s\n", id.EmotionalRegister)
	if id.FirstPerson != "" {
		fmt.Fprintf(&b, "Perspective: write as %q\n", id.FirstPerson)
	}
	if len(id.VocabularyAllow) > 0 {
		fmt.Fprintf(&b, "Preferred vocabulary: %s\n", strings.Join(id.VocabularyAllow, ", "))
	}
	if len(id.VocabularyDeny) > 0 {
		fmt.Fprintf(&b, "Never use: %s\n", strings.Join(id.VocabularyDeny, ", "))
	}
	if len(id.SentencePatterns) > 0 {
		fmt.Fprintf(&b, "Sentence patterns: %s\n", strings.Join(id.SentencePatterns, "; "))
	}

	b.WriteString("\n## Business\n")
	writeFoundation(&b, m)

	icp := selectICP(m, targetICP)
	if icp != nil {
		b.WriteString("\n## Audience\n")
		writeICP(&b, icp)
		if note, ok := kit.ICPVoiceNotes[icp.Role]; ok && note != "" {
			fmt.Fprintf(&b, "Voice note for this audience: %s\n", note)
		}
	}

	b.WriteString("\n## Positioning\n")
	writeCompetitive(&b, m)
	if len(rails.CompetitiveRules) > 0 {
		writeList(&b, "When competitors come up", rails.CompetitiveRules)
	}

	b.WriteString("\n## Guardrails\n")
	if len(rails.Positive) > 0 {
		writeList(&b, "Always", rails.Positive)
	}
	if len(rails.Negative) > 0 {
		writeList(&b, "Never", rails.Negative)
	}

	if instr, ok := kit.Instructions[contentType]; ok && instr != "" {
		fmt.Fprintf(&b, "\n## Instructions for %s\n%s\n", contentType, instr)
	} else {
		writeGenericInstruction(&b, contentType)
	}

	if examples := kit.FewShot[contentType]; len(examples) > 0 {
		b.WriteString("\n## Examples\n")
		for i, ex := range examples {
			if i >= 2 {
				break
			}
			fmt.Fprintf(&b, "Example %d:\n%s\n\n", i+1, ex)
		}
	}

	writeMemories(&b, memories)
	return strings.TrimRight(b.String(), "\n")
}

func compileFallback(m *manifest.Manifest, contentType, targetICP string, memories []memory.Memory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the marketing voice of %s.\n", m.Foundation.Company)

	b.WriteString("\n## Business\n")
	writeFoundation(&b, m)
	if m.Messaging.OneLiner != "" {
		fmt.Fprintf(&b, "One-liner: %s\n", m.Messaging.OneLiner)
	}
	if m.Messaging.PositioningStatement != "" {
		fmt.Fprintf(&b, "Positioning: %s\n", m.Messaging.PositioningStatement)
	}
	if len(m.Messaging.Tones) > 0 {
		fmt.Fprintf(&b, "Tone: %s\n", strings.Join(m.Messaging.Tones, ", "))
	}
	if len(m.Messaging.Soundbites) > 0 {
		writeList(&b, "Soundbites to draw on", m.Messaging.Soundbites)
	}
	if len(m.Messaging.Guardrails) > 0 {
		writeList(&b, "Guardrails", m.Messaging.Guardrails)
	}

	icp := selectICP(m, targetICP)
	if icp != nil {
		b.WriteString("\n## Audience\n")
		writeICP(&b, icp)
	}

	b.WriteString("\n## Positioning\n")
	writeCompetitive(&b, m)

	writeGenericInstruction(&b, contentType)
	writeMemories(&b, memories)
	return strings.TrimRight(b.String(), "\n")
}

func writeFoundation(b *strings.Builder, m *manifest.Manifest) {
	f := m.Foundation
	fmt.Fprintf(b, "Company: %s (%s, %s)\n", f.Company, f.Industry, f.Stage)
	if f.Mission != "" {
		fmt.Fprintf(b, "Mission: %s\n", f.Mission)
	}
	if f.ValueProp != "" {
		fmt.Fprintf(b, "Value proposition: %s\n", f.ValueProp)
	}
}

func writeICP(b *strings.Builder, icp *manifest.ICP) {
	fmt.Fprintf(b, "Target: %s\n", icp.Role)
	if len(icp.Pains) > 0 {
		fmt.Fprintf(b, "Their pains: %s\n", strings.Join(icp.Pains, "; "))
	}
	if len(icp.Goals) > 0 {
		fmt.Fprintf(b, "Their goals: %s\n", strings.Join(icp.Goals, "; "))
	}
	if len(icp.Triggers) > 0 {
		fmt.Fprintf(b, "Buying triggers: %s\n", strings.Join(icp.Triggers, "; "))
	}
}

func writeCompetitive(b *strings.Builder, m *manifest.Manifest) {
	c := m.Competitive
	if c.Category != "" {
		fmt.Fprintf(b, "Category: %s\n", c.Category)
	}
	if c.Positioning != "" {
		fmt.Fprintf(b, "Path: %s\n", c.Positioning)
	}
	if c.Differentiator != "" {
		fmt.Fprintf(b, "Differentiator: %s\n", c.Differentiator)
	}
	if len(c.Alternatives) > 0 {
		fmt.Fprintf(b, "Alternatives buyers consider: %s\n", strings.Join(c.Alternatives, ", "))
	}
}

func writeGenericInstruction(b *strings.Builder, contentType string) {
	fmt.Fprintf(b, "\n## Instructions\nWrite %s content that is specific, on-voice, and true to the business facts above. Never invent product claims.\n", contentType)
}

func writeList(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeMemories(b *strings.Builder, memories []memory.Memory) {
	if len(memories) == 0 {
		return
	}
	b.WriteString("\n## Learned preferences\n")
	for _, m := range memories {
		if s := m.SummaryText(); s != "" {
			fmt.Fprintf(b, "- %s\n", s)
		}
	}
}

// selectICP picks the ICP whose role matches the target, else the first.
func selectICP(m *manifest.Manifest, target string) *manifest.ICP {
	if len(m.ICPs) == 0 {
		return nil
	}
	if target != "" {
		for i := range m.ICPs {
			if strings.EqualFold(m.ICPs[i].Role, target) {
				return &m.ICPs[i]
			}
		}
	}
	return &m.ICPs[0]
}

// GetOrCompile wraps Compile with hot-cache lookup keyed by content type.
// Prompts compiled with memories are never cached; feedback-augmented
// prompts are ephemeral by nature.
func GetOrCompile(c *cache.Cache, workspaceID string, m *manifest.Manifest, contentType, targetICP string, memories []memory.Memory, ttl time.Duration) string {
	if len(memories) > 0 {
		return Compile(m, contentType, targetICP, memories)
	}

	subKey := contentType
	if targetICP != "" {
		subKey += ":" + targetICP
	}
	if cached, ok := c.Get(workspaceID, cache.KindPrompt, subKey); ok {
		if prompt, ok := cached.(string); ok {
			return prompt
		}
	}

	prompt := Compile(m, contentType, targetICP, nil)
	c.Set(workspaceID, cache.KindPrompt, subKey, prompt, ttl)
	return prompt
}
