package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeModelJSON unmarshals JSON from a model response, tolerating the two
// failure shapes models actually produce: a wrapping markdown code fence,
// and stray prose around the object. Both the synthesizer and the reflector
// parse through this single helper, so a malformed response yields one
// uniform error for their fallback paths.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return fmt.Errorf("empty model output")
	}

	s = stripCodeFence(s)

	// Fast path: valid JSON as-is.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// Fallback: attempt to extract the first top-level JSON object.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

// stripCodeFence removes a wrapping ``` or ```json fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line (which may carry a language tag).
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[idx+1:]
	} else {
		return s
	}

	// Drop the closing fence if the block is terminated.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
