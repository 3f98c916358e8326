package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// DefaultGuide is the reference guide used when a family has no guide file.
const DefaultGuide = "General Rule: Be precise and robust against OCR errors."

// NoTacticPlaceholder stands in for the tactic on a cold start.
const NoTacticPlaceholder = "(No specific tactic yet. Base extraction relies on the Original Prompt tasks.)"

const (
	failureSnippetLen = 150
	oracleSystem      = "You are a document extraction engine. Return ONLY a JSON object."
)

// FieldTag renders the placeholder syntax tactics must use for a field.
func FieldTag(id string) string {
	return "{{" + id + ":name}}"
}

// FieldTags renders FieldTag for every id, preserving order.
func FieldTags(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = FieldTag(id)
	}
	return out
}

// BuildOraclePrompt composes the extraction prompt: the output schema with the
// exact keys, then the tactic, then the base instructions.
func BuildOraclePrompt(req OracleRequest) string {
	keys, _ := json.Marshal(req.FieldIDs)

	var b strings.Builder
	b.WriteString("OUTPUT SCHEMA: Return a JSON object with these EXACT keys:\n")
	b.Write(keys)
	b.WriteString("\nEach value must be an object: {\"value\": \"extracted info\", \"status\": \"approved\"}\n\n")
	b.WriteString("TACTIC:\n")
	b.WriteString(req.Tactic)
	b.WriteString("\n\nTASK:\n")
	b.WriteString(req.BaseInstructions)
	return b.String()
}

// BuildOptimizerPrompt composes the request for a corrected tactic. Failed
// tactics from memory are listed as forbidden, truncated to keep the prompt small.
func BuildOptimizerPrompt(req OptimizerRequest) string {
	tactic := strings.TrimSpace(req.CurrentTactic)
	if tactic == "" {
		tactic = NoTacticPlaceholder
	}
	guide := strings.TrimSpace(req.Guide)
	if guide == "" {
		guide = DefaultGuide
	}

	var forbidden strings.Builder
	n := 0
	for _, f := range req.RecentFailures {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if n == 0 {
			forbidden.WriteString("FORBIDDEN TACTICS (PREVIOUSLY FAILED):\n")
		}
		n++
		fmt.Fprintf(&forbidden, "%d. %s...\n", n, truncateRunes(f, failureSnippetLen))
	}

	errs, _ := json.MarshalIndent(req.Mismatches, "", "  ")
	if len(req.Mismatches) == 0 {
		errs = []byte("[]")
	}
	rules, _ := json.MarshalIndent(req.Rules, "", "  ")
	if req.Rules == nil {
		rules = []byte("{}")
	}

	parts := []string{
		"You are the Lead Prompt Engineer for a Document Extraction AI.",
		"",
		"CONTEXT:",
		"We are extracting specific fields from the document family " + req.Family + ".",
		"The extraction prompt is composed of:",
		"1. TACTIC (your output): specific corrections and strategic rules.",
		"2. TASK (original prompt): the base visual layout instructions.",
		"",
		"TASK (read only):",
		req.BaseInstructions,
		"",
		"REFERENCE GUIDE (read only, never copy it into the tactic):",
		guide,
		"--------------------------------------------------",
		forbidden.String(),
		"INPUT DATA:",
		"- Current Tactic: " + tactic,
		"- Valid Field Tags: " + strings.Join(req.FieldTags, ", "),
		"- Extraction Errors: " + string(errs),
		"- Validation Rules: " + string(rules),
		"",
		"YOUR MISSION:",
		"Rewrite the TACTIC to fix the reported errors.",
		"",
		"RULES FOR YOUR OUTPUT:",
		"1. Do not copy the reference guide or the task.",
		"2. Be specific: write strict, executable instructions for the fields that failed.",
		"   Bad: \"Use relative anchoring.\"",
		"   Good: \"For field {{347:name}}, ignore the header 'Empresa' and capture the 11 digits below 'Sujeto Retenido'.\"",
		"3. Refer to fields only with the {{ID:name}} syntax, always with the literal suffix ':name'.",
		"4. Never write expected values into the tactic.",
		"5. If digits are split by OCR (\"2 0 2 5\" -> \"2025\"), write a rule for that field to join them.",
		"6. Only propose rule_updates when the comparison itself is too strict. Allowed rules: equals, strict_equals, contains, contains_fuzzy, percentage_match, date_match.",
		"",
		"OUTPUT FORMAT (STRICT JSON):",
		`{"tactic": "refined instructions in markdown, starting with '### EXTRACTION STRATEGY'", "rule_updates": {"field_id": "rule"}}`,
	}
	return strings.Join(parts, "\n")
}

// BuildArchitectPrompt asks for structured ground truth from free text.
func BuildArchitectPrompt(raw string) string {
	parts := []string{
		"You are a Data Parsing Architect.",
		"Convert this raw text into structured JSON.",
		"RAW INPUT: \"" + raw + "\"",
		`OUTPUT JSON: {"expected_data": {"ID": {"value": "val", "status": "approved"}}, "rules": {"ID": "equals"}}`,
	}
	return strings.Join(parts, "\n")
}

// BuildSeedPrompt asks a vision model for base layout instructions that map
// each expected field to a {{ID:name}} tag.
func BuildSeedPrompt(expected entity.Expected) string {
	var targets strings.Builder
	for _, id := range expected.FieldIDs() {
		fmt.Fprintf(&targets, "- ID '%s': Target Value to find is '%s'\n", id, expected[id].Value)
	}

	parts := []string{
		"You are a Senior Template Architect.",
		"You get an image of a document and a list of TARGET VALUES (ground truth).",
		"",
		"YOUR GOAL:",
		"Write a precise master layout description to extract these fields.",
		"",
		"FORMATTING RULE:",
		"Define extraction targets using ONLY the syntax {{ID:name}}.",
		"- ID: the exact ID from the list.",
		"- name: the literal word \"name\". Never a descriptive label.",
		"Right: \"Locate the CUIT value. Capture as {{347:name}}.\"",
		"Wrong: \"{{347:CUIT}}\", \"{{347}}\"",
		"",
		"TARGETS TO MAP:",
		targets.String(),
		"OUTPUT STRUCTURE (markdown):",
		"### LAYOUT ANALYSIS",
		"(brief description of the document structure)",
		"### EXTRACTION INSTRUCTIONS",
		"1. **Region Identification**: how to find the main sections.",
		"2. **Field Mapping**: look for [visual anchor]... capture {{ID:name}}, for ALL targets.",
	}
	return strings.Join(parts, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
