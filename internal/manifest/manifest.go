package manifest

// Source identifies which pipeline produced a manifest version.
type Source string

const (
	SourceOnboarding Source = "initial-onboarding"
	SourceReflection Source = "reflection"
	SourceSeed       Source = "seed"
)

// ValidSource reports whether s is a known source tag.
func ValidSource(s Source) bool {
	switch s {
	case SourceOnboarding, SourceReflection, SourceSeed:
		return true
	}
	return false
}

// Manifest is the compact, versioned, checksummed representation of a
// business's identity, audience, and positioning. It is the single artifact
// prompt compilation reads. Versions are append-only per workspace; a new
// version supersedes the previous one, it never mutates it.
//
// Field order matters: the checksum is computed over the canonical JSON
// serialization, and encoding/json emits struct fields in declaration order.
type Manifest struct {
	WorkspaceID string `json:"workspace_id"`
	Version     int    `json:"version"`
	Checksum    string `json:"checksum"`
	GeneratedAt int64  `json:"generated_at"`
	Source      Source `json:"source"`

	Foundation  Foundation  `json:"foundation"`
	ICPs        []ICP       `json:"icps"`
	Competitive Competitive `json:"competitive"`
	Messaging   Messaging   `json:"messaging"`
	Channels    []Channel   `json:"channels"`
	Market      Market      `json:"market"`

	// Enrichment sections, present only when synthesis succeeded.
	Identity     *Identity     `json:"identity,omitempty"`
	PromptKit    *PromptKit    `json:"prompt_kit,omitempty"`
	GuardrailsV2 *GuardrailsV2 `json:"guardrails_v2,omitempty"`

	Meta Meta `json:"meta"`
}

// Foundation holds the core company facts.
type Foundation struct {
	Company   string `json:"company"`
	Industry  string `json:"industry"`
	Stage     string `json:"stage"`
	Mission   string `json:"mission"`
	ValueProp string `json:"value_prop"`
}

// ICP is one ideal customer profile.
type ICP struct {
	Role     string   `json:"role"`
	Pains    []string `json:"pains,omitempty"`
	Goals    []string `json:"goals,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
}

// Competitive describes positioning against alternatives.
type Competitive struct {
	Category       string   `json:"category"`
	Positioning    string   `json:"positioning"`
	Alternatives   []string `json:"alternatives,omitempty"`
	Differentiator string   `json:"differentiator"`
}

// Messaging holds the core message set.
type Messaging struct {
	OneLiner             string   `json:"one_liner"`
	PositioningStatement string   `json:"positioning_statement"`
	Tones                []string `json:"tones,omitempty"`
	Guardrails           []string `json:"guardrails,omitempty"`
	Soundbites           []string `json:"soundbites,omitempty"`
}

// Channel is a distribution channel with a priority label.
type Channel struct {
	Name     string `json:"name"`
	Priority string `json:"priority,omitempty"`
}

// Market holds market sizing strings.
type Market struct {
	TAM string `json:"tam,omitempty"`
	SAM string `json:"sam,omitempty"`
	SOM string `json:"som,omitempty"`
}

// Identity is the synthesized voice specification.
type Identity struct {
	Archetype          string   `json:"archetype"`
	CommunicationStyle string   `json:"communication_style"`
	EmotionalRegister  string   `json:"emotional_register"`
	VocabularyAllow    []string `json:"vocabulary_allow,omitempty"`
	VocabularyDeny     []string `json:"vocabulary_deny,omitempty"`
	SentencePatterns   []string `json:"sentence_patterns,omitempty"`
	FirstPerson        string   `json:"first_person,omitempty"`
}

// PromptKit holds the synthesized prompt building blocks, keyed by content type.
type PromptKit struct {
	SystemPrompt  string              `json:"system_prompt"`
	Instructions  map[string]string   `json:"instructions,omitempty"`
	FewShot       map[string][]string `json:"few_shot,omitempty"`
	ICPVoiceNotes map[string]string   `json:"icp_voice_notes,omitempty"`
}

// ToneCalibration scores five tone dimensions, each in [0,1].
type ToneCalibration struct {
	Formality    float64 `json:"formality"`
	Enthusiasm   float64 `json:"enthusiasm"`
	Directness   float64 `json:"directness"`
	Warmth       float64 `json:"warmth"`
	Technicality float64 `json:"technicality"`
}

// GuardrailsV2 is the synthesized guardrail specification.
type GuardrailsV2 struct {
	Positive         []string        `json:"positive,omitempty"`
	Negative         []string        `json:"negative,omitempty"`
	CompetitiveRules []string        `json:"competitive_rules,omitempty"`
	Tone             ToneCalibration `json:"tone"`
}

// Meta carries bookkeeping about how the manifest was produced.
type Meta struct {
	TokensEstimate   int   `json:"tokens_estimate"`
	SourceFacts      int   `json:"source_facts"`
	ICPCount         int   `json:"icp_count"`
	CompetitorCount  int   `json:"competitor_count"`
	Synthesized      bool  `json:"synthesized"`
	LastReflectionAt int64 `json:"last_reflection_at,omitempty"`
	MemoryCount      int   `json:"memory_count"`
}

// Enriched reports whether all three enrichment sections are present.
// The prompt compiler branches on this.
func (m *Manifest) Enriched() bool {
	return m.Identity != nil && m.PromptKit != nil && m.GuardrailsV2 != nil
}
