// Package guidance normalizes guidance-model output into proposals.
//
// Model output arrives as plain text, a guidance JSON object, an object with
// a nested "guidance" object, or a chat-completion envelope whose content is
// itself any of these shapes, possibly wrapped again.
package guidance

import (
	"encoding/json"
	"strings"

	"github.com/vnote-labs/coach/internal/llm"
)

// MaxUnwrap bounds how many envelopes are descended before giving up.
const MaxUnwrap = 4

type kind int

const (
	kindPlainText kind = iota
	kindGuidanceObject
	kindNestedGuidance
	kindChatEnvelope
	kindMessageEnvelope
	kindOther
)

func (k kind) String() string {
	switch k {
	case kindPlainText:
		return "plain_text"
	case kindGuidanceObject:
		return "guidance_object"
	case kindNestedGuidance:
		return "nested_guidance"
	case kindChatEnvelope:
		return "chat_envelope"
	case kindMessageEnvelope:
		return "message_envelope"
	default:
		return "other"
	}
}

// node is one classified layer of the input.
type node struct {
	kind kind
	text string         // plain text or envelope content
	obj  map[string]any // guidance object (inner object for nested guidance)
}

func classify(v any) node {
	switch x := v.(type) {
	case string:
		return node{kind: kindPlainText, text: x}
	case map[string]any:
		if content, ok := chatContent(x); ok {
			return node{kind: kindChatEnvelope, text: content}
		}
		if msg, ok := x["message"].(map[string]any); ok {
			if content, ok := msg["content"].(string); ok {
				return node{kind: kindMessageEnvelope, text: content}
			}
		}
		if inner, ok := x["guidance"].(map[string]any); ok {
			return node{kind: kindNestedGuidance, obj: inner}
		}
		if content, ok := x["content"].(string); ok {
			return node{kind: kindMessageEnvelope, text: content}
		}
		return node{kind: kindGuidanceObject, obj: x}
	default:
		return node{kind: kindOther}
	}
}

func chatContent(m map[string]any) (string, bool) {
	choices, ok := m["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := msg["content"].(string)
	return content, ok
}

// decoded is the terminal layer reached by unwrap.
type decoded struct {
	obj    map[string]any // nil when no JSON object was reached
	outer  map[string]any // enclosing object of a nested guidance
	raw    string         // last string seen, the text fallback
	kind   kind
	unwrap int
}

// unwrap descends envelopes and JSON strings until it reaches a guidance
// object, plain text, or MaxUnwrap envelopes.
func unwrap(input any) decoded {
	cur := normalizeInput(input)
	d := decoded{}
	if s, ok := cur.(string); ok {
		d.raw = s
	}

	for {
		n := classify(cur)
		d.kind = n.kind
		switch n.kind {
		case kindPlainText:
			d.raw = n.text
			v, ok := parseJSONText(n.text)
			if !ok {
				return d
			}
			cur = v
		case kindChatEnvelope, kindMessageEnvelope:
			if d.unwrap >= MaxUnwrap {
				return d
			}
			d.unwrap++
			cur = n.text
		case kindNestedGuidance:
			d.obj = n.obj
			d.outer, _ = cur.(map[string]any)
			return d
		case kindGuidanceObject:
			d.obj = n.obj
			return d
		default:
			return d
		}
	}
}

// normalizeInput turns byte slices into strings and arbitrary values into
// their generic JSON form.
func normalizeInput(input any) any {
	switch x := input.(type) {
	case nil:
		return ""
	case string, map[string]any:
		return x
	case []byte:
		return string(x)
	case json.RawMessage:
		return string(x)
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return ""
	}
	return v
}

// parseJSONText parses s when it is JSON, or when it carries a JSON object
// inside a code fence, prose or comments.
func parseJSONText(s string) (any, bool) {
	candidate := strings.TrimSpace(s)
	var v any
	if looksJSON(candidate) && json.Unmarshal([]byte(candidate), &v) == nil {
		return v, true
	}
	obj, ok := llm.JSONObject(candidate)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return nil, false
	}
	return v, true
}

func looksJSON(s string) bool {
	if s == "" {
		return false
	}
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}
