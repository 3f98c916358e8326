package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRule(t *testing.T) {
	tests := map[string]Rule{
		"equals":           RuleEquals,
		" Strict_Equals ":  RuleStrictEquals,
		"contains_full":    RuleContainsFuzzy,
		"contains_related": RuleContains,
		"date_match":       RuleDateMatch,
		"iso_date":         RuleDateMatch,
		"ISO":              RuleDateMatch,
		"percentage_match": RulePercentageMatch,
		"made_up":          RuleEquals,
		"":                 RuleEquals,
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveRule(in), "rule %q", in)
	}
}

func TestCanonicalizeReportsDefaulting(t *testing.T) {
	_, ok := Canonicalize("made_up")
	assert.False(t, ok)
	_, ok = Canonicalize("contains_full")
	assert.True(t, ok)
}

func TestMapExtToFormat(t *testing.T) {
	assert.Equal(t, IMAGE, MapExtToFormat(".JPG"))
	assert.Equal(t, PDF, MapExtToFormat("pdf"))
	assert.Equal(t, "", MapExtToFormat(".txt"))
	assert.Equal(t, "image/png", MimeForExt(".png"))
}
