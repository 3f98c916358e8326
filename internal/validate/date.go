package validate

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// monthNames covers Spanish, English, Italian and Portuguese, plus the
// abbreviations that show up on forms.
var monthNames = map[string]string{
	"JANUARY": "01", "ENERO": "01", "GENNAIO": "01", "JANEIRO": "01",
	"FEBRUARY": "02", "FEBRERO": "02", "FEBBRAIO": "02", "FEVEREIRO": "02",
	"MARCH": "03", "MARZO": "03", "MARCO": "03", "MARÇO": "03",
	"APRIL": "04", "ABRIL": "04", "APRILE": "04",
	"MAY": "05", "MAYO": "05", "MAGGIO": "05", "MAIO": "05",
	"JUNE": "06", "JUNIO": "06", "GIUGNO": "06", "JUNHO": "06",
	"JULY": "07", "JULIO": "07", "LUGLIO": "07", "JULHO": "07",
	"AUGUST": "08", "AGOSTO": "08", "AGO": "08",
	"SEPTEMBER": "09", "SEPTIEMBRE": "09", "SETTEMBRE": "09", "SETEMBRO": "09", "SEP": "09", "SET": "09",
	"OCTOBER": "10", "OCTUBRE": "10", "OTTOBRE": "10", "OUTUBRO": "10", "OCT": "10",
	"NOVEMBER": "11", "NOVIEMBRE": "11", "NOVEMBRE": "11", "NOV": "11",
	"DECEMBER": "12", "DICIEMBRE": "12", "DICEMBRE": "12", "DEZEMBRO": "12", "DIC": "12",
}

// monthReplacer tries longer names first so MAYO is not read as MAY + "O".
var monthReplacer = func() *strings.Replacer {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		// surround with spaces so "22OCTUBRE2025" still splits into three groups
		pairs = append(pairs, name, " "+monthNames[name]+" ")
	}
	return strings.NewReplacer(pairs...)
}()

var (
	reConnectors = regexp.MustCompile(`\b(DE|DEL|OF|THE)\b`)
	reNonDigits  = regexp.MustCompile(`[^0-9]+`)
)

// ParseDate reads a date written in one of many layouts and languages:
// "2025-10-22", "22/10/2025", "22 de octubre de 2025", "October 22 of 2025".
// It needs exactly three numeric groups with a four-digit year (>1900) either
// first (Y-M-D) or last (D-M-Y). Two-digit years are rejected.
func ParseDate(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	s = monthReplacer.Replace(s)
	s = reConnectors.ReplaceAllString(s, " ")
	parts := strings.Fields(reNonDigits.ReplaceAllString(s, " "))
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	switch {
	case nums[0] > 1900:
		return civilDate(nums[0], nums[1], nums[2])
	case nums[2] > 1900:
		return civilDate(nums[2], nums[1], nums[0])
	default:
		return time.Time{}, false
	}
}

// civilDate rejects values time.Date would silently normalize (Feb 30 -> Mar 2).
func civilDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
