// Package jsonx recovers structured data from LLM output: model replies
// are free text expected to contain one JSON object or array, frequently
// wrapped in prose or truncated mid-structure. The repair chain is
// strict parse, then dangling-bracket completion, then balanced-chunk
// extraction. Callers fall back to a deterministic command when every
// stage fails.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means no parseable JSON fragment could be recovered.
var ErrNoJSON = errors.New("no recoverable JSON in response")

// closers tried, in order, against truncated fragments. Covers strings
// cut inside a value, inside an object, and inside an array of objects.
var closers = []string{"", `"`, `"}`, `"}]`, "}", "}]", "]", `]}`}

// Unmarshal decodes the first JSON object or array found in raw into v,
// repairing truncation when needed.
func Unmarshal(raw string, v any) error {
	frag, err := Extract(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(frag), v)
}

// Extract returns the first syntactically valid JSON object or array
// recoverable from raw.
func Extract(raw string) (string, error) {
	s := stripFences(raw)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}
	s = s[start:]

	if json.Valid([]byte(s)) {
		return s, nil
	}

	// Balanced-chunk extraction handles valid JSON followed by prose.
	if chunk, ok := balancedChunk(s); ok && json.Valid([]byte(chunk)) {
		return chunk, nil
	}

	// Truncated output: try completing the structure.
	trimmed := strings.TrimRight(s, " \t\r\n,")
	for _, c := range closers {
		candidate := trimmed + c
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	// Last resort: drop the trailing partial element of an array and
	// close what remains.
	if i := strings.LastIndexAny(trimmed, "}"); i > 0 {
		head := strings.TrimRight(trimmed[:i+1], " \t\r\n,")
		for _, c := range closers {
			candidate := head + c
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	return "", ErrNoJSON
}

// balancedChunk scans from the first bracket to the matching close,
// tracking strings and escapes, and returns the enclosed chunk.
func balancedChunk(s string) (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	open := s[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes a markdown code fence around the payload, if any.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return t
}
