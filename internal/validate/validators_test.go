package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

func TestEquals(t *testing.T) {
	assert.True(t, Equals("Juan Perez", "JUAN PEREZ", Options{}))
	assert.True(t, Equals("947 449 842", "947449842", Options{}))
	assert.True(t, Equals("20-12345678-9", "20123456789", Options{}))
	assert.False(t, Equals("Juan Perez", "Juan Gomez", Options{}))
}

func TestStrictEquals(t *testing.T) {
	assert.True(t, StrictEquals("  ABC-1 ", "ABC-1", Options{}))
	assert.False(t, StrictEquals("abc-1", "ABC-1", Options{}))
	assert.False(t, StrictEquals("ABC1", "ABC-1", Options{}))
}

func TestPercentageMatch(t *testing.T) {
	assert.True(t, PercentageMatch("kitten", "sitting", Options{}))
	assert.False(t, PercentageMatch("kitten", "sitting", Options{Threshold: 0.9}))
	assert.False(t, PercentageMatch("abc", "xyz", Options{}))
	assert.True(t, PercentageMatch("", "", Options{}))
	assert.InDelta(t, 1.0, Similarity("acme", "ACME"), 1e-9)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Razon social: ACME S.A.", "acme sa", Options{}))
	assert.False(t, Contains("ACME", "ACME SA", Options{}))
}

func TestContainsFuzzy(t *testing.T) {
	assert.True(t, ContainsFuzzy("Kevin Javier", "Javier Kevin", Options{}))
	assert.True(t, ContainsFuzzy("PEREZ, Kevin Javier", "Kevin Perez", Options{}))
	assert.True(t, ContainsFuzzy("Kevin", "Kevin Javier Perez", Options{}))
	assert.False(t, ContainsFuzzy("Kevin Lopez", "Javier Perez", Options{}))
	assert.False(t, ContainsFuzzy("", "Kevin", Options{}))
	assert.True(t, ContainsFuzzy("", "", Options{}))
}

func TestDateMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2025-10-22", "22 de octubre de 2025", true},
		{"22/10/2025", "2025-10-22", true},
		{"22 of October 2025", "2025/10/22", true},
		{"October 22 of 2025", "2025/10/22", false}, // month-first is not supported
		{"22 ottobre 2025", "22-10-2025", true},
		{"1 de maio de 2024", "2024-05-01", true},
		{"15 de agosto del 2023", "15.08.2023", true},
		{"2025-10-22", "2025-10-23", false},
		{"n/a", "N/A", true}, // text fallback
		{"n/a", "2025-10-22", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateMatch(tt.a, tt.b, Options{}), "%q vs %q", tt.a, tt.b)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("22 de octubre de 2025")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseDate("3 mayo 2021")
	assert.True(t, ok)
	assert.Equal(t, time.May, got.Month())

	for _, bad := range []string{"", "22/10/25", "2025-02-30", "2025-13-01", "12 2025", "2025-10-22 10:30"} {
		_, ok := ParseDate(bad)
		assert.False(t, ok, "%q should not parse", bad)
	}
}

func TestCheckDispatch(t *testing.T) {
	assert.True(t, Check(constants.RuleContainsFuzzy, "Kevin Javier", "Javier Kevin", Options{}))
	assert.False(t, Check(constants.RuleEquals, "Kevin Javier", "Javier Kevin", Options{}))
	assert.True(t, Check(constants.Rule("no_such_rule"), "abc", "ABC", Options{}))
	assert.True(t, Check(constants.ResolveRule("fecha_iso"), "2025-10-22", "22/10/2025", Options{}))
}

func TestCheckRecoversPanics(t *testing.T) {
	const boom constants.Rule = "boom"
	strategies[boom] = func(string, string, Options) bool { panic("bad strategy") }
	defer delete(strategies, boom)

	assert.NotPanics(t, func() {
		assert.False(t, Check(boom, "a", "a", Options{}))
	})
}
