package manifest

import (
	"strings"
	"unicode/utf8"
)

// List bounds applied during reduction.
const (
	MaxICPs         = 5
	MaxICPItems     = 3 // pains, goals, channels per ICP
	MaxICPTriggers  = 2
	MaxAlternatives = 5
	MaxTones        = 3
	MaxGuardrails   = 3
	MaxSoundbites   = 3
	MaxChannels     = 6
	MaxReducedBytes = 4096 // size bound on the serialized reduced manifest
	shrinkPassLimit = 32   // upper bound on size-enforcement iterations
)

// String caps (runes) applied during reduction.
const (
	capShort    = 60  // roles, categories, channel names, tone words
	capItem     = 80  // list items: pains, goals, triggers, alternatives, soundbites
	capField    = 160 // foundation facts, positioning, differentiator
	capLong     = 240 // mission, value prop, one-liner, positioning statement
	capMarket   = 48  // TAM/SAM/SOM strings
	capPriority = 16
)

// Reduce deterministically compresses a raw context document into a bounded
// manifest. It is pure and never fails: malformed or empty input yields a
// manifest with empty sections. Enrichment sections are always absent here.
func Reduce(doc Document, workspaceID string, version int, source Source, generatedAt int64) Manifest {
	m := Manifest{
		WorkspaceID: workspaceID,
		Version:     version,
		GeneratedAt: generatedAt,
		Source:      source,
		Foundation: Foundation{
			Company:   truncate(doc.Company.Name, capField),
			Industry:  truncate(doc.Company.Industry, capShort),
			Stage:     truncate(doc.Company.Stage, capShort),
			Mission:   truncate(doc.Company.Mission, capLong),
			ValueProp: truncate(doc.Company.ValueProp, capLong),
		},
		ICPs: reduceICPs(doc.ICPs),
		Competitive: Competitive{
			Category:       truncate(doc.Competitive.Category, capShort),
			Positioning:    truncate(doc.Competitive.Positioning, capField),
			Alternatives:   truncateList(doc.Competitive.Alternatives, MaxAlternatives, capItem),
			Differentiator: truncate(doc.Competitive.Differentiator, capField),
		},
		Messaging: Messaging{
			OneLiner:             truncate(doc.Messaging.OneLiner, capLong),
			PositioningStatement: truncate(doc.Messaging.PositioningStatement, capLong),
			Tones:                truncateList(doc.Messaging.Tones, MaxTones, capShort),
			Guardrails:           truncateList(doc.Messaging.Guardrails, MaxGuardrails, capItem),
			Soundbites:           truncateList(doc.Messaging.Soundbites, MaxSoundbites, capItem),
		},
		Channels: reduceChannels(doc.Channels),
		Market: Market{
			TAM: truncate(doc.Market.TAM, capMarket),
			SAM: truncate(doc.Market.SAM, capMarket),
			SOM: truncate(doc.Market.SOM, capMarket),
		},
	}

	m.Meta = Meta{
		SourceFacts:     countFacts(doc),
		ICPCount:        len(m.ICPs),
		CompetitorCount: len(m.Competitive.Alternatives),
		Synthesized:     false,
	}

	enforceSizeBound(&m)
	Finalize(&m)
	return m
}

// enforceSizeBound shrinks the manifest until its serialization fits
// MaxReducedBytes. The caps above keep realistic inputs well under the
// bound; this loop handles pathological ones. Shrinking order: soundbites,
// ICP triggers, trailing ICPs, trailing alternatives, then long-text halving.
// Deterministic, so reduction stays reproducible. Each pass finalizes first
// so the size measured is the size actually stored, checksum included.
func enforceSizeBound(m *Manifest) {
	for i := 0; i < shrinkPassLimit; i++ {
		Finalize(m)
		if serializedSize(m) <= MaxReducedBytes {
			return
		}
		switch {
		case len(m.Messaging.Soundbites) > 0:
			m.Messaging.Soundbites = m.Messaging.Soundbites[:len(m.Messaging.Soundbites)-1]
		case trimICPTriggers(m.ICPs):
			// one trigger list cleared per pass
		case len(m.ICPs) > 1:
			m.ICPs = m.ICPs[:len(m.ICPs)-1]
			m.Meta.ICPCount = len(m.ICPs)
		case len(m.Competitive.Alternatives) > 1:
			m.Competitive.Alternatives = m.Competitive.Alternatives[:len(m.Competitive.Alternatives)-1]
			m.Meta.CompetitorCount = len(m.Competitive.Alternatives)
		default:
			m.Foundation.Mission = truncate(m.Foundation.Mission, utf8.RuneCountInString(m.Foundation.Mission)/2)
			m.Foundation.ValueProp = truncate(m.Foundation.ValueProp, utf8.RuneCountInString(m.Foundation.ValueProp)/2)
			m.Messaging.PositioningStatement = truncate(m.Messaging.PositioningStatement, utf8.RuneCountInString(m.Messaging.PositioningStatement)/2)
		}
	}
}

func trimICPTriggers(icps []ICP) bool {
	for i := range icps {
		if len(icps[i].Triggers) > 0 {
			icps[i].Triggers = nil
			return true
		}
	}
	return false
}

func reduceICPs(in []DocumentICP) []ICP {
	if len(in) == 0 {
		return nil
	}
	if len(in) > MaxICPs {
		in = in[:MaxICPs]
	}
	out := make([]ICP, len(in))
	for i, d := range in {
		out[i] = ICP{
			Role:     truncate(d.Role, capShort),
			Pains:    truncateList(d.Pains, MaxICPItems, capItem),
			Goals:    truncateList(d.Goals, MaxICPItems, capItem),
			Channels: truncateList(d.Channels, MaxICPItems, capShort),
			Triggers: truncateList(d.Triggers, MaxICPTriggers, capItem),
		}
	}
	return out
}

func reduceChannels(in []DocumentChannel) []Channel {
	if len(in) == 0 {
		return nil
	}
	if len(in) > MaxChannels {
		in = in[:MaxChannels]
	}
	out := make([]Channel, len(in))
	for i, d := range in {
		out[i] = Channel{
			Name:     truncate(d.Name, capShort),
			Priority: truncate(d.Priority, capPriority),
		}
	}
	return out
}

// countFacts counts the non-empty scalar facts in the raw document,
// recorded in meta for audit.
func countFacts(doc Document) int {
	fields := []string{
		doc.Company.Name, doc.Company.Industry, doc.Company.Stage,
		doc.Company.Mission, doc.Company.ValueProp,
		doc.Competitive.Category, doc.Competitive.Positioning, doc.Competitive.Differentiator,
		doc.Messaging.OneLiner, doc.Messaging.PositioningStatement,
		doc.Market.TAM, doc.Market.SAM, doc.Market.SOM,
	}
	n := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}

// truncate cuts s to at most max runes, trimming trailing whitespace.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max]), " \t")
}

// truncateList bounds a list to maxItems entries of at most maxRunes runes
// each, dropping entries that are empty after trimming.
func truncateList(in []string, maxItems, maxRunes int) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, maxItems)
	for _, s := range in {
		t := truncate(s, maxRunes)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == maxItems {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
