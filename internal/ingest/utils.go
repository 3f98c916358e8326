package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

// AllowedExt reports whether ext may hold a case document.
func AllowedExt(ext string) bool {
	_, ok := constants.CaseExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// CaseIDFromTruth returns the case id of a ground-truth file name,
// expected_<case>.txt, and false for anything else.
func CaseIDFromTruth(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, constants.ExpectedPrefix) || !strings.EqualFold(filepath.Ext(base), ".txt") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, constants.ExpectedPrefix), filepath.Ext(base))
	return id, id != ""
}

// BelongsTo reports whether a case id is part of family.
func BelongsTo(caseID, family string) bool {
	return family != "" && strings.Contains(caseID, family)
}
