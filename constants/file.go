package constants

import "strings"

const (
	IMAGE = "IMAGE"
	PDF   = "PDF"
)

// ExpectedPrefix marks ground-truth files: expected_<case>.txt.
const ExpectedPrefix = "expected_"

// MasterPrefix marks persisted master artifacts: MASTER_<family>.txt.
const MasterPrefix = "MASTER_"

// RulesPrefix marks optional per-family rule overrides: rules_<family>.yaml.
const RulesPrefix = "rules_"

// CaseExtensions holds the document extensions a case may be paired with.
var CaseExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns IMAGE or PDF for a supported extension, "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg", "png":
		return IMAGE
	case "pdf":
		return PDF
	default:
		return ""
	}
}

// MimeForExt returns the image MIME type for a supported image extension.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// GuideFile is the optional optimizer reference guide kept next to the master artifacts.
const GuideFile = "MASTER_PROMPT_GUIDE.md"
