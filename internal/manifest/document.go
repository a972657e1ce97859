package manifest

import "encoding/json"

// Document is the raw business-context input to reduction, as gathered by
// onboarding. Its sections mirror the manifest's; lists are unbounded here,
// the reducer applies the caps.
type Document struct {
	Company     DocumentCompany     `json:"company"`
	ICPs        []DocumentICP       `json:"icps"`
	Competitive DocumentCompetitive `json:"competitive"`
	Messaging   DocumentMessaging   `json:"messaging"`
	Channels    []DocumentChannel   `json:"channels"`
	Market      DocumentMarket      `json:"market"`
}

// DocumentCompany holds the unbounded foundation facts.
type DocumentCompany struct {
	Name      string `json:"name"`
	Industry  string `json:"industry"`
	Stage     string `json:"stage"`
	Mission   string `json:"mission"`
	ValueProp string `json:"value_prop"`
}

// DocumentICP is one unbounded customer profile from the raw input.
type DocumentICP struct {
	Role     string   `json:"role"`
	Pains    []string `json:"pains"`
	Goals    []string `json:"goals"`
	Channels []string `json:"channels"`
	Triggers []string `json:"triggers"`
}

// DocumentCompetitive holds the unbounded competitive positioning facts.
type DocumentCompetitive struct {
	Category       string   `json:"category"`
	Positioning    string   `json:"positioning"`
	Alternatives   []string `json:"alternatives"`
	Differentiator string   `json:"differentiator"`
}

// DocumentMessaging holds the unbounded messaging facts.
type DocumentMessaging struct {
	OneLiner             string   `json:"one_liner"`
	PositioningStatement string   `json:"positioning_statement"`
	Tones                []string `json:"tones"`
	Guardrails           []string `json:"guardrails"`
	Soundbites           []string `json:"soundbites"`
}

// DocumentChannel is one unbounded channel entry from the raw input.
type DocumentChannel struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
}

// DocumentMarket holds the market sizing strings.
type DocumentMarket struct {
	TAM string `json:"tam"`
	SAM string `json:"sam"`
	SOM string `json:"som"`
}

// ParseDocument decodes a raw context document. Malformed input is
// represented as an empty document with default sections; parsing never
// fails. Reduction of an empty document is valid and yields an empty
// (but checksummed) manifest.
func ParseDocument(raw []byte) Document {
	var doc Document
	if len(raw) == 0 {
		return doc
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}
	}
	return doc
}
