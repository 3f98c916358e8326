// Package normalize canonicalizes extracted and expected text before comparison.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var quoteReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"`", "'",
	"“", `"`,
	"”", `"`,
)

// monthReplacer only knows the month names seen in free-text fields;
// full date handling lives in validate.ParseDate.
var monthReplacer = strings.NewReplacer(
	"SEPTIEMBRE", "09",
	"SETTEMBRE", "09",
	"AGOSTO", "08",
	"JULIO", "07",
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// maxPasses bounds the fixed-point loop in Text; real input settles in one or two.
const maxPasses = 8

// Text upper-cases s, unifies quotes, drops ASCII punctuation, replaces a few
// month names with their number and collapses whitespace. It is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}
	// Casing and punctuation removal can leave sequences that compose
	// differently on the next pass, so run to a fixed point.
	out := pass(s)
	for i := 1; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(s string) string {
	s = norm.NFC.String(s)
	s = cases.Upper(language.Und).String(s)
	s = quoteReplacer.Replace(s)
	s = stripPunctuation(s)
	// Punctuation goes first: "AGO.STO" must not turn into a month on a second pass.
	s = monthReplacer.Replace(s)
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Compact is Text with every space removed ("947 449" == "947449").
func Compact(s string) string {
	return strings.ReplaceAll(Text(s), " ", "")
}

// Tokens splits the normalized text into its distinct words.
func Tokens(s string) map[string]struct{} {
	words := strings.Fields(Text(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, s)
}
