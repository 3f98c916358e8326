package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// ParseGroundTruth reads structured ground truth: a JSON object mapping field
// id to a bare value or to {"value", "status"}. Keys lose stray quotes, status
// defaults to approved and every field gets the equals rule. ok is false when
// raw is not such an object.
func ParseGroundTruth(raw string) (entity.Expected, entity.Rules, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil {
		return nil, nil, false
	}

	expected := make(entity.Expected, len(obj))
	rules := make(entity.Rules, len(obj))
	for key, msg := range obj {
		id := strings.TrimSpace(strings.Trim(strings.TrimSpace(key), `"'`))
		if id == "" {
			continue
		}
		var v entity.FieldValue
		if err := json.Unmarshal(msg, &v); err != nil {
			v = entity.FieldValue{Value: string(msg)}
		}
		if v.Status == "" {
			v.Status = constants.DefaultExpectedStatus
		}
		expected[id] = v
		rules[id] = string(constants.RuleEquals)
	}
	return expected, rules, true
}

// LoadRuleOverrides reads rules_<family>.yaml from dir. A missing file yields
// no overrides.
func LoadRuleOverrides(dir, family string) (entity.Rules, error) {
	path := filepath.Join(dir, constants.RulesPrefix+family+".yaml")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var rules entity.Rules
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rules, nil
}
