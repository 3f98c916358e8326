// Package validate holds the comparison strategies that decide whether an
// extracted field value matches its ground truth.
package validate

import (
	"log/slog"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/normalize"
)

// Options tunes strategies that take parameters.
type Options struct {
	Threshold float64 // PercentageMatch; 0 means constants.DefaultPercentageThreshold
}

// Strategy compares an extracted value against the expected one.
type Strategy func(extracted, expected string, opts Options) bool

var strategies = map[constants.Rule]Strategy{
	constants.RuleEquals:          Equals,
	constants.RuleStrictEquals:    StrictEquals,
	constants.RuleContains:        Contains,
	constants.RuleContainsFuzzy:   ContainsFuzzy,
	constants.RulePercentageMatch: PercentageMatch,
	constants.RuleDateMatch:       DateMatch,
}

// For returns the strategy for rule; unknown rules get Equals.
func For(rule constants.Rule) Strategy {
	if s, ok := strategies[rule]; ok {
		return s
	}
	return Equals
}

// Check runs the strategy for rule. A panicking strategy counts as a non-match.
func Check(rule constants.Rule, extracted, expected string, opts Options) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("validate.strategy_panic", "rule", string(rule), "panic", r)
			ok = false
		}
	}()
	return For(rule)(extracted, expected, opts)
}

// Equals compares normalized text, then the same text with spaces removed so
// OCR-split ids ("947 449") still match.
func Equals(extracted, expected string, _ Options) bool {
	a, b := normalize.Text(extracted), normalize.Text(expected)
	if a == b {
		return true
	}
	return strings.ReplaceAll(a, " ", "") == strings.ReplaceAll(b, " ", "")
}

// StrictEquals compares trimmed raw text; case and punctuation matter.
func StrictEquals(extracted, expected string, _ Options) bool {
	return strings.TrimSpace(extracted) == strings.TrimSpace(expected)
}

// PercentageMatch accepts values whose edit-distance similarity reaches the threshold.
func PercentageMatch(extracted, expected string, opts Options) bool {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = constants.DefaultPercentageThreshold
	}
	return Similarity(extracted, expected) >= threshold
}

// Similarity is 1 - distance/longest over the upper-cased strings; two empty strings are identical.
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(strings.ToUpper(a), strings.ToUpper(b), nil)
}

// Contains accepts when the normalized expected value appears inside the extracted one.
func Contains(extracted, expected string, _ Options) bool {
	return strings.Contains(normalize.Text(extracted), normalize.Text(expected))
}

// ContainsFuzzy accepts when one word set is a subset of the other, in any order.
// An empty value only matches another empty value.
func ContainsFuzzy(extracted, expected string, _ Options) bool {
	a, b := normalize.Tokens(extracted), normalize.Tokens(expected)
	if (len(a) == 0) != (len(b) == 0) {
		return false
	}
	return subset(b, a) || subset(a, b)
}

func subset(small, big map[string]struct{}) bool {
	for w := range small {
		if _, ok := big[w]; !ok {
			return false
		}
	}
	return true
}

// DateMatch compares calendar dates when both sides parse, ignoring layout and
// language; otherwise it compares normalized text.
func DateMatch(extracted, expected string, _ Options) bool {
	d1, ok1 := ParseDate(extracted)
	d2, ok2 := ParseDate(expected)
	if ok1 && ok2 {
		return d1.Equal(d2)
	}
	return normalize.Text(extracted) == normalize.Text(expected)
}
