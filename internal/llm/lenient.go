package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

var reFence = regexp.MustCompile("```(?:json|JSON)?")

// ExtractJSONObject strips markdown code fences and returns the outermost
// {...} span of content, or false when there is none.
func ExtractJSONObject(content string) (string, bool) {
	cleaned := strings.TrimSpace(reFence.ReplaceAllString(content, ""))
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

// DecodeExtraction leniently decodes an oracle reply into an extraction.
// Values may be strings, numbers or {"value","status"} objects.
func DecodeExtraction(content string) (entity.Extraction, error) {
	obj, ok := ExtractJSONObject(content)
	if !ok {
		return entity.Extraction{}, fmt.Errorf("no json object in response")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return entity.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	// One odd field must not cost the rest of the document.
	out := make(entity.Extraction, len(raw))
	for id, msg := range raw {
		var v entity.FieldValue
		if err := json.Unmarshal(msg, &v); err != nil {
			v = entity.FieldValue{Value: string(msg)}
		}
		out[id] = v
	}
	return out, nil
}

// decodeObject is DecodeExtraction for arbitrary reply shapes.
func decodeObject(content string) (map[string]any, []byte, error) {
	obj, ok := ExtractJSONObject(content)
	if !ok {
		return nil, nil, fmt.Errorf("no json object in response")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	return m, []byte(obj), nil
}
