package entity

import "fmt"

// Mismatch records a field that failed its rule. Diagnostic mismatches
// (no FieldID) describe why a document could not be scored at all.
type Mismatch struct {
	DocumentID string `json:"document_id"`
	FieldID    string `json:"field_id,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Actual     string `json:"actual,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Diagnostic reports whether m describes a document-level failure.
func (m Mismatch) Diagnostic() bool {
	return m.FieldID == ""
}

// String renders m the way it is shown to the optimizer and persisted with failures.
func (m Mismatch) String() string {
	if m.Diagnostic() {
		return fmt.Sprintf("[CASE %s] %s", m.DocumentID, m.Message)
	}
	return fmt.Sprintf("[CASE %s] ID %s: expected '%s' vs actual '%s' (%s)",
		m.DocumentID, m.FieldID, m.Expected, m.Actual, m.Rule)
}

// FormatMismatches renders at most limit mismatches; limit <= 0 means all.
func FormatMismatches(ms []Mismatch, limit int) []string {
	if limit <= 0 || limit > len(ms) {
		limit = len(ms)
	}
	out := make([]string, 0, limit)
	for _, m := range ms[:limit] {
		out = append(out, m.String())
	}
	return out
}
