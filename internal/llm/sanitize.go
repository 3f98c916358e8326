package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
)

// NormalizeOptimizerJSON repairs the common ways an optimizer reply drifts
// from BuildOptimizerJSONSchema so it can be validated again:
//   - renames synonyms (new_tactic -> tactic, rules -> rule_updates)
//   - joins a tactic given as a list of lines
//   - unwraps {"rule": name} entries and drops non-string rule values
//   - removes unknown keys
func NormalizeOptimizerJSON(m map[string]any, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m = maps.Clone(m)
	dropped := make([]string, 0, 4)

	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	renamed("new_tactic", "tactic")
	renamed("refined_tactic", "tactic")
	renamed("improved_tactic", "tactic")
	renamed("rules", "rule_updates")
	renamed("rule_update", "rule_updates")
	renamed("ruleUpdates", "rule_updates")

	switch t := m["tactic"].(type) {
	case []any:
		lines := make([]string, 0, len(t))
		for _, l := range t {
			lines = append(lines, fmt.Sprint(l))
		}
		m["tactic"] = strings.Join(lines, "\n")
	case string:
		m["tactic"] = strings.TrimSpace(t)
	}

	if raw, ok := m["rule_updates"]; ok {
		updates, isMap := raw.(map[string]any)
		if !isMap {
			delete(m, "rule_updates")
			dropped = append(dropped, "rule_updates(type)")
		} else {
			clean := make(map[string]any, len(updates))
			for field, v := range updates {
				switch r := v.(type) {
				case string:
					clean[field] = r
				case map[string]any:
					if name, ok := r["rule"].(string); ok {
						clean[field] = name
						continue
					}
					dropped = append(dropped, "rule_updates."+field+"(type)")
				default:
					dropped = append(dropped, "rule_updates."+field+"(type)")
				}
			}
			m["rule_updates"] = clean
		}
	}

	for k := range maps.Clone(m) {
		if k != "tactic" && k != "rule_updates" {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.optimize.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
