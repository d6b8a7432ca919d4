package llm

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a strict JSON schema accepted by
// OpenAI-compatible structured output: every object closes
// additionalProperties and lists all of its properties as required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	m, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	ensureStrict(m)
	return m
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureStrict(schema map[string]any) {
	if t, ok := schema[typeKey].(string); ok && t == "object" {
		schema[additionalPropertiesKey] = false

		if props, ok := schema[propertiesKey].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			if len(required) > 0 {
				schema[requiredKey] = required
			}
		}
	}

	if props, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range props {
			if m, ok := prop.(map[string]any); ok {
				ensureStrict(m)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}
	if extra, ok := schema[additionalPropertiesKey].(map[string]any); ok {
		ensureStrict(extra)
	}
}

// ResponseFormat is the response_format body field for chat requests.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema names a strict schema inside a ResponseFormat.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

func responseFormat(opts ChatOptions) *ResponseFormat {
	if !opts.JSON {
		return nil
	}
	if opts.Schema == nil {
		return &ResponseFormat{Type: "json_object"}
	}
	name := opts.SchemaName
	if name == "" {
		name = "response"
	}
	return &ResponseFormat{
		Type:       "json_schema",
		JSONSchema: &JSONSchema{Name: name, Strict: true, Schema: opts.Schema},
	}
}
