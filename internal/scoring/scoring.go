// Package scoring reduces field comparisons to per-document and per-batch scores.
package scoring

import (
	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/validate"
)

const (
	msgNoExpected   = "CRITICAL: no expected data to validate against"
	msgBadExtracted = "ERROR: the oracle returned no usable JSON object (invalid output format)"
)

// DocumentResult pairs one document's extraction with its ground truth.
type DocumentResult struct {
	DocumentID string
	Extraction entity.Extraction
	Expected   entity.Expected
}

// ValidateDocument scores one extraction against its ground truth. An empty
// ground truth, or an extraction that is nil or empty (what a malformed oracle
// response decodes to), yields a single diagnostic mismatch and a score of 0.
func ValidateDocument(docID string, extraction entity.Extraction, expected entity.Expected, rules entity.Rules) ([]entity.Mismatch, float64) {
	if len(expected) == 0 {
		return []entity.Mismatch{{DocumentID: docID, Message: msgNoExpected}}, 0
	}
	if len(extraction) == 0 {
		return []entity.Mismatch{{DocumentID: docID, Message: msgBadExtracted}}, 0
	}

	var mismatches []entity.Mismatch
	correct := 0
	for _, field := range expected.FieldIDs() {
		want := expected[field].Value
		got := extraction[field].Value // missing field compares as ""
		rule := constants.ResolveRule(rules.RuleFor(field))

		if validate.Check(rule, got, want, validate.Options{}) {
			correct++
			continue
		}
		mismatches = append(mismatches, entity.Mismatch{
			DocumentID: docID,
			FieldID:    field,
			Expected:   want,
			Actual:     got,
			Rule:       string(rule),
		})
	}
	return mismatches, float64(correct) * 100 / float64(len(expected))
}

// ValidateBatch scores every document and averages the scores. Mismatches are
// concatenated in batch order. An empty batch averages to 0.
func ValidateBatch(docs []DocumentResult, rules entity.Rules) ([]entity.Mismatch, float64, []entity.DocumentScore) {
	if len(docs) == 0 {
		return nil, 0, nil
	}
	var all []entity.Mismatch
	scores := make([]entity.DocumentScore, 0, len(docs))
	total := 0.0
	for _, d := range docs {
		ms, score := ValidateDocument(d.DocumentID, d.Extraction, d.Expected, rules)
		all = append(all, ms...)
		total += score
		scores = append(scores, entity.DocumentScore{DocumentID: d.DocumentID, Score: score, Mismatches: ms})
	}
	return all, total / float64(len(docs)), scores
}
