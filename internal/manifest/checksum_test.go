package manifest

import "testing"

func TestFinalize_FixedPoint(t *testing.T) {
	m := Reduce(sampleDocument(), "acme", 1, SourceOnboarding, 1700000000)

	// The stored estimate must describe the final serialization, with the
	// checksum and the estimate itself in place.
	if want := len(CanonicalJSON(&m)) / 4; m.Meta.TokensEstimate != want {
		t.Errorf("tokens_estimate = %d, want %d", m.Meta.TokensEstimate, want)
	}
	if !VerifyChecksum(&m) {
		t.Error("checksum does not verify after finalize")
	}

	// Finalize is idempotent once settled.
	before := m.Checksum
	Finalize(&m)
	if m.Checksum != before {
		t.Error("re-finalizing a settled manifest changed the checksum")
	}
}

func TestFinalize_SettlesAfterMutation(t *testing.T) {
	m := Reduce(sampleDocument(), "acme", 1, SourceOnboarding, 1700000000)

	m.Foundation.Mission = "A different mission statement entirely."
	Finalize(&m)

	if want := len(CanonicalJSON(&m)) / 4; m.Meta.TokensEstimate != want {
		t.Errorf("tokens_estimate = %d after mutation, want %d", m.Meta.TokensEstimate, want)
	}
	if !VerifyChecksum(&m) {
		t.Error("checksum does not verify after mutation and finalize")
	}
}
