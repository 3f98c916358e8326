package llm

import "github.com/joseph-ayodele/tactic-tuner/constants"

// BuildOptimizerJSONSchema describes the optimizer reply: a non-empty tactic
// and an optional map of field id to rule name.
func BuildOptimizerJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tactic": map[string]any{"type": "string", "minLength": 1},
			"rule_updates": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"tactic"},
		"additionalProperties": false,
	}
}

// BuildArchitectJSONSchema describes the structured ground truth the architect returns.
func BuildArchitectJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expected_data": map[string]any{
				"type":          "object",
				"minProperties": 1,
				"additionalProperties": map[string]any{
					"type": []string{"object", "string", "number"},
					"properties": map[string]any{
						"value":  map[string]any{"type": []string{"string", "number", "null"}},
						"status": map[string]any{"type": "string"},
					},
					"required": []string{"value"},
				},
			},
			"rules": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": []string{"string", "object"},
					// names outside this list fall back to equals
					"examples": constants.AsStringSlice(),
				},
			},
		},
		"required": []string{"expected_data"},
	}
}
