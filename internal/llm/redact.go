package llm

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// SeedMask replaces ground-truth values leaked into seed instructions.
const SeedMask = "[VALUE_MASKED]"

type leak struct {
	value string
	field string
}

// Redact replaces, in text, every expected value of at least minLen runes with
// mask(fieldID). Longer values go first so a value containing another one is
// masked whole. It returns the redacted text and the fields that were found.
func Redact(text string, expected []entity.Expected, minLen int, mask func(field string) string) (string, []string) {
	seen := map[string]struct{}{}
	var leaks []leak
	for _, exp := range expected {
		for _, id := range exp.FieldIDs() {
			v := strings.TrimSpace(exp[id].Value)
			if utf8.RuneCountInString(v) < minLen {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			leaks = append(leaks, leak{value: v, field: id})
		}
	}
	sort.SliceStable(leaks, func(i, j int) bool {
		return len(leaks[i].value) > len(leaks[j].value)
	})

	var fields []string
	for _, l := range leaks {
		if !strings.Contains(text, l.value) {
			continue
		}
		text = strings.ReplaceAll(text, l.value, mask(l.field))
		fields = append(fields, l.field)
	}
	return text, fields
}

// RedactTactic masks ground truth from every case as {{VALUE_FOR_<field>}}.
func RedactTactic(tactic string, cases []entity.Case) (string, []string) {
	expected := make([]entity.Expected, 0, len(cases))
	for _, c := range cases {
		expected = append(expected, c.Expected)
	}
	return Redact(tactic, expected, constants.MinRedactLength, func(field string) string {
		return "{{VALUE_FOR_" + field + "}}"
	})
}

// MaskSeed masks ground truth leaked into generated seed instructions.
func MaskSeed(text string, expected entity.Expected) string {
	out, _ := Redact(text, []entity.Expected{expected}, constants.MinSeedMaskLength, func(string) string {
		return SeedMask
	})
	return out
}
