package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// findingSchema is the contract every AI-reported vulnerability must satisfy
// before it becomes a pipeline finding. Entries failing validation are
// discarded, never coerced.
const findingSchema = `{
	"type": "object",
	"required": ["type", "severity", "description"],
	"properties": {
		"type": {"type": "string", "minLength": 1},
		"severity": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
		"description": {"type": "string", "minLength": 1},
		"file": {"type": "string"},
		"line": {"type": "integer", "minimum": 0},
		"snippet": {"type": "string"},
		"tenant_impact": {"type": "string"}
	}
}`

var compiledFindingSchema = mustCompileSchema("ai-finding.json", findingSchema)

func mustCompileSchema(id, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewReader([]byte(schema))); err != nil {
		panic(fmt.Sprintf("add schema resource: %v", err))
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return compiled
}

// validateFinding checks one raw vulnerability entry against the schema
func validateFinding(raw json.RawMessage) error {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode finding: %w", err)
	}
	if err := compiledFindingSchema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// extractJSON locates the first balanced JSON object embedded in raw model
// output. Returns false when no object parses.
func extractJSON(text string) (json.RawMessage, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
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
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := json.RawMessage(text[start : i+1])
					if json.Valid(candidate) {
						return candidate, true
					}
					i = len(text)
				}
			}
		}
	}
	return nil, false
}
