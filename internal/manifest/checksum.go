package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON returns the canonical serialization of a manifest: struct
// fields in declaration order, map keys sorted, no extraneous whitespace.
// This is the byte stream the checksum and token estimate are computed over.
func CanonicalJSON(m *Manifest) []byte {
	// encoding/json cannot fail on this type: every field is a plain
	// string/number/bool composite.
	b, _ := json.Marshal(m)
	return b
}

// ComputeChecksum hashes the canonical serialization with the checksum
// field blanked, so the stored checksum always verifies against the
// stored content.
func ComputeChecksum(m *Manifest) string {
	saved := m.Checksum
	m.Checksum = ""
	sum := sha256.Sum256(CanonicalJSON(m))
	m.Checksum = saved
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the checksum and compares it to the stored one.
func VerifyChecksum(m *Manifest) bool {
	return m.Checksum != "" && m.Checksum == ComputeChecksum(m)
}

// EstimateTokens estimates the token cost of the serialized manifest as
// serialized byte length / 4.
func EstimateTokens(m *Manifest) int {
	return serializedSize(m) / 4
}

// Finalize stamps the checksum and token estimate. Call after any content
// change. Both fields are part of the serialization they are computed over:
// the checksum has fixed width, so iterating until the estimate stops moving
// settles both (digit-width changes converge within a few passes).
func Finalize(m *Manifest) {
	for i := 0; i < 4; i++ {
		m.Checksum = ComputeChecksum(m)
		est := EstimateTokens(m)
		if est == m.Meta.TokensEstimate {
			return
		}
		m.Meta.TokensEstimate = est
	}
	m.Checksum = ComputeChecksum(m)
}

func serializedSize(m *Manifest) int {
	return len(CanonicalJSON(m))
}
