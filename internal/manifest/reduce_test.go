package manifest

import (
	"bytes"
	"strings"
	"testing"
)

func sampleDocument() Document {
	return Document{
		Company: DocumentCompany{
			Name:      "Acme Robotics",
			Industry:  "industrial automation",
			Stage:     "series-a",
			Mission:   "Put a helpful robot arm in every mid-size factory.",
			ValueProp: "Robot arms that install in a day, not a quarter.",
		},
		ICPs: []DocumentICP{
			{
				Role:     "plant operations manager",
				Pains:    []string{"downtime", "labor shortages", "retooling cost"},
				Goals:    []string{"higher throughput", "predictable maintenance"},
				Channels: []string{"linkedin", "trade shows"},
				Triggers: []string{"new production line"},
			},
			{
				Role:  "manufacturing engineer",
				Pains: []string{"integration complexity"},
				Goals: []string{"faster commissioning"},
			},
		},
		Competitive: DocumentCompetitive{
			Category:       "collaborative robotics",
			Positioning:    "the fastest arm to first part",
			Alternatives:   []string{"Universal Robots", "FANUC", "in-house fixturing"},
			Differentiator: "one-day installation with no systems integrator",
		},
		Messaging: DocumentMessaging{
			OneLiner:             "Acme puts robot arms to work in a day.",
			PositioningStatement: "For mid-size factories that can't afford integration projects, Acme installs in a day.",
			Tones:                []string{"confident", "plainspoken"},
			Guardrails:           []string{"never promise specific ROI numbers"},
			Soundbites:           []string{"a day, not a quarter"},
		},
		Channels: []DocumentChannel{
			{Name: "linkedin", Priority: "high"},
			{Name: "email", Priority: "medium"},
		},
		Market: DocumentMarket{
			TAM: "$12B",
			SAM: "$2.4B",
			SOM: "$90M",
		},
	}
}

func TestReduce_Deterministic(t *testing.T) {
	doc := sampleDocument()

	a := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)
	b := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)

	if a.Checksum != b.Checksum {
		t.Errorf("checksums differ: %s vs %s", a.Checksum, b.Checksum)
	}
	if !bytes.Equal(CanonicalJSON(&a), CanonicalJSON(&b)) {
		t.Error("canonical serializations differ for identical input")
	}
}

func TestReduce_ChecksumIntegrity(t *testing.T) {
	m := Reduce(sampleDocument(), "acme", 1, SourceOnboarding, 1700000000)

	if m.Checksum == "" {
		t.Fatal("checksum is empty")
	}
	if !VerifyChecksum(&m) {
		t.Error("recomputed checksum does not match stored checksum")
	}

	// Any content change must break verification.
	m.Foundation.Company = "Other Corp"
	if VerifyChecksum(&m) {
		t.Error("checksum verified after content change")
	}
}

func TestReduce_ICPBounds(t *testing.T) {
	doc := sampleDocument()
	doc.ICPs = nil
	for i := 0; i < 6; i++ {
		doc.ICPs = append(doc.ICPs, DocumentICP{
			Role:  "persona",
			Pains: []string{"p1", "p2", "p3", "p4", "p5"},
			Goals: []string{"g1", "g2", "g3", "g4"},
		})
	}

	m := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)

	if len(m.ICPs) != 5 {
		t.Fatalf("got %d ICPs, want 5", len(m.ICPs))
	}
	for i, icp := range m.ICPs {
		if len(icp.Pains) > 3 {
			t.Errorf("ICP %d has %d pains, want <= 3", i, len(icp.Pains))
		}
		if len(icp.Goals) > 3 {
			t.Errorf("ICP %d has %d goals, want <= 3", i, len(icp.Goals))
		}
	}
	if m.Meta.ICPCount != len(m.ICPs) {
		t.Errorf("meta.icp_count = %d, want %d", m.Meta.ICPCount, len(m.ICPs))
	}
}

func TestReduce_SizeBound_AdversarialInput(t *testing.T) {
	long := strings.Repeat("x", 5000)
	doc := Document{
		Company: DocumentCompany{
			Name: long, Industry: long, Stage: long, Mission: long, ValueProp: long,
		},
		Competitive: DocumentCompetitive{
			Category: long, Positioning: long, Differentiator: long,
		},
		Messaging: DocumentMessaging{
			OneLiner: long, PositioningStatement: long,
		},
		Market: DocumentMarket{TAM: long, SAM: long, SOM: long},
	}
	for i := 0; i < 40; i++ {
		doc.ICPs = append(doc.ICPs, DocumentICP{
			Role:     long,
			Pains:    []string{long, long, long, long},
			Goals:    []string{long, long, long, long},
			Channels: []string{long, long, long, long},
			Triggers: []string{long, long, long, long},
		})
		doc.Competitive.Alternatives = append(doc.Competitive.Alternatives, long)
		doc.Messaging.Tones = append(doc.Messaging.Tones, long)
		doc.Messaging.Guardrails = append(doc.Messaging.Guardrails, long)
		doc.Messaging.Soundbites = append(doc.Messaging.Soundbites, long)
		doc.Channels = append(doc.Channels, DocumentChannel{Name: long, Priority: long})
	}

	m := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)

	if size := len(CanonicalJSON(&m)); size > MaxReducedBytes {
		t.Errorf("serialized size = %d, want <= %d", size, MaxReducedBytes)
	}
	if !VerifyChecksum(&m) {
		t.Error("checksum invalid after size enforcement")
	}
}

func TestReduce_MalformedInput(t *testing.T) {
	doc := ParseDocument([]byte(`{"company": 42, "icps": "nope"`))

	m := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)

	if m.Foundation.Company != "" {
		t.Errorf("company = %q, want empty for malformed input", m.Foundation.Company)
	}
	if m.Checksum == "" {
		t.Error("malformed input must still produce a checksummed manifest")
	}
	if m.Enriched() {
		t.Error("reduced manifest must not carry enrichment sections")
	}
}

func TestReduce_TokenEstimate(t *testing.T) {
	m := Reduce(sampleDocument(), "acme", 1, SourceOnboarding, 1700000000)

	want := len(CanonicalJSON(&m)) / 4
	if m.Meta.TokensEstimate != want {
		t.Errorf("tokens_estimate = %d, want %d", m.Meta.TokensEstimate, want)
	}
}

func TestParseDocument_Empty(t *testing.T) {
	doc := ParseDocument(nil)
	if doc.Company.Name != "" || len(doc.ICPs) != 0 {
		t.Error("empty input should yield zero document")
	}
}

func TestParseDocument_NestedSections(t *testing.T) {
	doc := ParseDocument([]byte(`{
		"company": {"name": "Acme Robotics", "industry": "robotics", "stage": "seed"},
		"icps": [{"role": "Plant Manager", "pains": ["labor shortage"]}],
		"competitive": {"category": "cobots", "alternatives": ["FANUC"]},
		"messaging": {"one_liner": "Cobots that pay for themselves"},
		"market": {"tam": "$12B"}
	}`))

	if doc.Company.Name != "Acme Robotics" || doc.Company.Stage != "seed" {
		t.Errorf("company section not parsed: %+v", doc.Company)
	}
	if len(doc.ICPs) != 1 || doc.ICPs[0].Role != "Plant Manager" {
		t.Errorf("icps not parsed: %+v", doc.ICPs)
	}
	if doc.Competitive.Category != "cobots" || len(doc.Competitive.Alternatives) != 1 {
		t.Errorf("competitive section not parsed: %+v", doc.Competitive)
	}
	if doc.Messaging.OneLiner != "Cobots that pay for themselves" {
		t.Errorf("messaging section not parsed: %+v", doc.Messaging)
	}
	if doc.Market.TAM != "$12B" {
		t.Errorf("market section not parsed: %+v", doc.Market)
	}

	m := Reduce(doc, "acme", 1, SourceOnboarding, 1700000000)
	if m.Foundation.Company != "Acme Robotics" {
		t.Errorf("reduced company = %q, want Acme Robotics", m.Foundation.Company)
	}
	if m.Messaging.OneLiner != "Cobots that pay for themselves" {
		t.Errorf("reduced one-liner = %q", m.Messaging.OneLiner)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello"},
		{"  padded  ", 20, "padded"},
		{"éééé", 2, "éé"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
