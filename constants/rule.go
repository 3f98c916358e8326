package constants

import (
	"strings"
)

// Rule is the comparison strategy applied to one field.
type Rule string

const (
	RuleEquals          Rule = "equals"
	RuleStrictEquals    Rule = "strict_equals"
	RuleContains        Rule = "contains"
	RuleContainsFuzzy   Rule = "contains_fuzzy"
	RulePercentageMatch Rule = "percentage_match"
	RuleDateMatch       Rule = "date_match"
)

var allRules = []Rule{
	RuleEquals,
	RuleStrictEquals,
	RuleContains,
	RuleContainsFuzzy,
	RulePercentageMatch,
	RuleDateMatch,
}

// ruleAliases folds names the optimizer tends to invent into a known rule.
var ruleAliases = map[string]Rule{
	"contains_full":    RuleContainsFuzzy,
	"contains_related": RuleContains,
}

// AsStringSlice lists every known rule name.
func AsStringSlice() []string {
	result := make([]string, len(allRules))
	for i, r := range allRules {
		result[i] = string(r)
	}
	return result
}

// ResolveRule maps a raw rule name to a known Rule. Any name mentioning a date
// or ISO format becomes RuleDateMatch; unknown names fall back to RuleEquals.
func ResolveRule(name string) Rule {
	r, _ := Canonicalize(name)
	return r
}

// Canonicalize is ResolveRule that also reports whether the name was recognized
// (directly or through an alias) rather than defaulted.
func Canonicalize(input string) (Rule, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return RuleEquals, false
	}

	if r, ok := ruleAliases[normalized]; ok {
		return r, true
	}
	if strings.Contains(normalized, "date") || strings.Contains(normalized, "iso") {
		return RuleDateMatch, true
	}

	for _, r := range allRules {
		if normalized == string(r) {
			return r, true
		}
	}

	return RuleEquals, false
}
