package entity

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

// Rules maps field id to a raw rule name. Names are resolved at dispatch time,
// so aliases and unknown names survive a round trip through the optimizer.
type Rules map[string]string

// RuleFor returns the rule name configured for field, "equals" when unset.
func (r Rules) RuleFor(field string) string {
	if name, ok := r[field]; ok && name != "" {
		return name
	}
	return string(constants.RuleEquals)
}

// Clone returns an independent copy.
func (r Rules) Clone() Rules {
	if r == nil {
		return Rules{}
	}
	return maps.Clone(r)
}

// Merge returns a copy of r with updates applied field by field.
func (r Rules) Merge(updates map[string]string) Rules {
	out := r.Clone()
	for field, rule := range updates {
		if field == "" || rule == "" {
			continue
		}
		out[field] = rule
	}
	return out
}

// UnmarshalJSON accepts {"id": "equals"} as well as {"id": {"rule": "equals"}}.
func (r *Rules) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	out := make(Rules, len(raw))
	for field, msg := range raw {
		var name string
		if err := json.Unmarshal(msg, &name); err == nil {
			out[field] = name
			continue
		}
		var obj struct {
			Rule string `json:"rule"`
		}
		if err := json.Unmarshal(msg, &obj); err != nil {
			return fmt.Errorf("rules: field %s: %w", field, err)
		}
		out[field] = obj.Rule
	}
	*r = out
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (r *Rules) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	out := make(Rules, len(raw))
	for field, n := range raw {
		if n.Kind == yaml.ScalarNode {
			out[field] = n.Value
			continue
		}
		var obj struct {
			Rule string `yaml:"rule"`
		}
		if err := n.Decode(&obj); err != nil {
			return fmt.Errorf("rules: field %s: %w", field, err)
		}
		out[field] = obj.Rule
	}
	*r = out
	return nil
}

// sortFieldIDs orders numeric ids numerically and everything else lexically after them.
// Equal numbers ("01", "1") fall back to their text so the order is total.
func sortFieldIDs(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			if c := cmp.Compare(na, nb); c != 0 {
				return c
			}
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		}
		return strings.Compare(a, b)
	})
}
