package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON decodes the first JSON object in a model reply into T. When
// validate is non-nil the decoded value must pass it.
func ExtractJSON[T any](raw string, validate func(T) error) (T, error) {
	var out T

	obj, ok := JSONObject(raw)
	if !ok {
		return out, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			var zero T
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

// JSONObject returns the first balanced JSON object in a model reply, with
// any surrounding code fence and prose dropped and // or /* */ comments
// outside strings removed. ok is false when no complete object is present.
func JSONObject(raw string) (string, bool) {
	return scanObject(unfence(raw))
}

// unfence returns the body of the first ``` fence, or s when there is none.
func unfence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return s
	}
	body = body[nl+1:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// scanObject copies the object starting at the first '{' until its braces
// balance, skipping comments that sit outside string values.
func scanObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	var b strings.Builder
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return "", false
			}
			i += nl - 1
			continue
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return "", false
			}
			i += end + 3
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
		}
		b.WriteByte(c)
		if depth == 0 {
			return b.String(), true
		}
	}
	return "", false
}
