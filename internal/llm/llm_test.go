package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/scoring"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func reply(content string, seen *Request) Completer {
	return CompleterFunc(func(_ context.Context, req Request) (string, error) {
		if seen != nil {
			*seen = req
		}
		return content, nil
	})
}

func failing(err error) Completer {
	return CompleterFunc(func(context.Context, Request) (string, error) { return "", err })
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject("Sure!\n```json\n{\"a\": {\"b\": 1}}\n```\nDone.")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)

	_, ok = ExtractJSONObject("no object here")
	assert.False(t, ok)
	_, ok = ExtractJSONObject("} backwards {")
	assert.False(t, ok)
}

func TestDecodeExtractionShapes(t *testing.T) {
	got, err := DecodeExtraction(`{"1": {"value": "ACME", "status": "approved"}, "2": 42, "3": "x", "4": null}`)
	require.NoError(t, err)
	assert.Equal(t, entity.FieldValue{Value: "ACME", Status: "approved"}, got["1"])
	assert.Equal(t, "42", got["2"].Value)
	assert.Equal(t, "x", got["3"].Value)
	assert.Equal(t, "", got["4"].Value)

	_, err = DecodeExtraction(`{"1": `)
	assert.Error(t, err)
}

func TestDecodeExtractionKeepsOddFields(t *testing.T) {
	got, err := DecodeExtraction(`{"1":{"value":"JUAN PEREZ"},"2":{"value":"947449"},"3":["a","b"],"4":{"nested":{"x":1}}}`)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "JUAN PEREZ", got["1"].Value)
	assert.Equal(t, "947449", got["2"].Value)
	assert.Equal(t, `["a","b"]`, got["3"].Value)
	assert.Equal(t, `{"nested":{"x":1}}`, got["4"].Value)

	expected := entity.Expected{
		"1": {Value: "Juan Perez"},
		"2": {Value: "947 449"},
		"3": {Value: "a"},
	}
	mismatches, score := scoring.ValidateDocument("d", got, expected, entity.Rules{})
	require.Len(t, mismatches, 1)
	assert.Equal(t, "3", mismatches[0].FieldID)
	assert.InDelta(t, 200.0/3, score, 1e-9)
}

func TestOracleExtract(t *testing.T) {
	var seen Request
	o := NewOracle(reply("```json\n{\"10\": {\"value\": \"20123456789\"}}\n```", &seen), quiet)

	res := o.Extract(context.Background(), OracleRequest{
		CaseID:           "6496_a",
		Tactic:           "### EXTRACTION STRATEGY",
		BaseInstructions: "Find {{10:name}}",
		FieldIDs:         []string{"10"},
		Images:           []Image{{MimeType: "image/png", Data: []byte{1}}},
	})
	require.True(t, res.Ok())
	assert.Equal(t, "20123456789", res.Fields["10"].Value)
	assert.True(t, seen.JSON)
	assert.Len(t, seen.Images, 1)
	assert.Contains(t, seen.Prompt, `["10"]`)
	assert.Less(t, strings.Index(seen.Prompt, "TACTIC:"), strings.Index(seen.Prompt, "TASK:"))
}

func TestOracleMalformedIsEmptyNotError(t *testing.T) {
	res := NewOracle(reply("I could not read the document.", nil), quiet).Extract(context.Background(), OracleRequest{CaseID: "c"})
	assert.True(t, res.Ok())
	assert.NotNil(t, res.Fields)
	assert.Empty(t, res.Fields)
}

func TestOracleTransportError(t *testing.T) {
	res := NewOracle(failing(errors.New("503")), quiet).Extract(context.Background(), OracleRequest{CaseID: "c"})
	assert.False(t, res.Ok())
	assert.True(t, errors.Is(res.Err, common.ErrExternal))
	assert.NotNil(t, res.Fields)
}

func TestOptimizerStrictReply(t *testing.T) {
	var seen Request
	o := NewOptimizer(reply(`{"tactic": "### EXTRACTION STRATEGY\nJoin digits of {{10:name}}", "rule_updates": {"10": "contains_full"}}`, &seen), quiet)

	res := o.Optimize(context.Background(), OptimizerRequest{
		Family:         "6496",
		CurrentTactic:  "",
		FieldTags:      []string{"{{10:name}}"},
		Mismatches:     []string{"[CASE a] ID 10: expected 'x' vs actual 'y' (equals)"},
		RecentFailures: []string{strings.Repeat("z", 400)},
		Rules:          entity.Rules{"10": "equals"},
	})
	require.True(t, res.Ok())
	assert.Equal(t, map[string]string{"10": "contains_full"}, res.RuleUpdates)
	assert.Contains(t, res.Tactic, "Join digits")

	assert.Equal(t, float32(optimizerTemperature), seen.Temperature)
	assert.Contains(t, seen.Prompt, NoTacticPlaceholder)
	assert.Contains(t, seen.Prompt, "FORBIDDEN TACTICS")
	assert.Contains(t, seen.Prompt, strings.Repeat("z", 150)+"...")
	assert.NotContains(t, seen.Prompt, strings.Repeat("z", 151))
	assert.Contains(t, seen.Prompt, DefaultGuide)
}

func TestOptimizerLenientReply(t *testing.T) {
	o := NewOptimizer(reply(`{"new_tactic": ["line one", "line two"], "rules": {"10": {"rule": "date_match"}, "11": 5}, "reasoning": "because"}`, nil), quiet)
	res := o.Optimize(context.Background(), OptimizerRequest{Family: "f"})
	require.True(t, res.Ok(), "err: %v", res.Err)
	assert.Equal(t, "line one\nline two", res.Tactic)
	assert.Equal(t, map[string]string{"10": "date_match"}, res.RuleUpdates)
}

func TestOptimizerFailures(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]Completer{
		"transport":  failing(errors.New("timeout")),
		"no json":    reply("sorry", nil),
		"no tactic":  reply(`{"rule_updates": {}}`, nil),
		"blank":      reply(`{"tactic": "   "}`, nil),
		"wrong type": reply(`{"tactic": {"x": 1}}`, nil),
	} {
		res := NewOptimizer(c, quiet).Optimize(ctx, OptimizerRequest{})
		assert.False(t, res.Ok(), name)
		assert.True(t, errors.Is(res.Err, common.ErrExternal), name)
	}
}

func TestRedactTactic(t *testing.T) {
	cases := []entity.Case{
		{ID: "a", Expected: entity.Expected{"10": {Value: "20123456789"}, "11": {Value: "ACME SA"}, "12": {Value: "SA"}}},
		{ID: "b", Expected: entity.Expected{"11": {Value: "ACME"}, "13": {Value: " 2025 "}}},
	}
	tactic := "CUIT is 20123456789, company ACME SA, also ACME, year 2025, suffix SA."

	got, fields := RedactTactic(tactic, cases)
	assert.Equal(t, "CUIT is {{VALUE_FOR_10}}, company {{VALUE_FOR_11}}, also {{VALUE_FOR_11}}, year {{VALUE_FOR_13}}, suffix SA.", got)
	assert.ElementsMatch(t, []string{"10", "11", "11", "13"}, fields)
}

func TestMaskSeed(t *testing.T) {
	exp := entity.Expected{"1": {Value: "ABC"}, "2": {Value: "XY"}}
	assert.Equal(t, "Find [VALUE_MASKED] near XY", MaskSeed("Find ABC near XY", exp))
}

func TestArchitectStructure(t *testing.T) {
	a := NewArchitect(reply(`{"expected_data": {"\"7\"": {"value": "Juan"}, "8": 12.5}, "rules": {"7": {"rule": "contains_full"}}}`, nil), quiet)
	exp, rules, err := a.Structure(context.Background(), "c1", "Nombre: Juan; Total: 12.5")
	require.NoError(t, err)
	assert.Equal(t, entity.FieldValue{Value: "Juan", Status: "approved"}, exp["7"])
	assert.Equal(t, "12.5", exp["8"].Value)
	assert.Equal(t, "contains_full", rules["7"])
	assert.Equal(t, "equals", rules["8"])
}

func TestArchitectRejectsEmpty(t *testing.T) {
	_, _, err := NewArchitect(reply(`{"expected_data": {}}`, nil), quiet).Structure(context.Background(), "c", "x")
	assert.Error(t, err)
}

func TestSeedInstructions(t *testing.T) {
	var seen Request
	c := reply("### LAYOUT ANALYSIS\nTotal 1500.00 at bottom: capture {{2:name}}", &seen)
	exp := entity.Expected{"2": {Value: "1500.00"}}

	out, err := SeedInstructions(context.Background(), c, Image{Path: "p.png", MimeType: "image/png"}, exp, quiet)
	require.NoError(t, err)
	assert.Equal(t, "### LAYOUT ANALYSIS\nTotal [VALUE_MASKED] at bottom: capture {{2:name}}", out)
	assert.Len(t, seen.Images, 1)
	assert.Contains(t, seen.Prompt, "ID '2': Target Value to find is '1500.00'")

	_, err = SeedInstructions(context.Background(), c, Image{}, nil, quiet)
	assert.Error(t, err)
}

func TestFieldTags(t *testing.T) {
	assert.Equal(t, []string{"{{1:name}}", "{{x:name}}"}, FieldTags([]string{"1", "x"}))
}

func TestImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", Image{MimeType: "image/png", Data: []byte{1, 2}}.DataURL())
}

func TestReplySchemasCompileOnce(t *testing.T) {
	first, err := optimizerSchema()
	require.NoError(t, err)
	again, err := optimizerSchema()
	require.NoError(t, err)
	assert.Same(t, first, again)

	arch, err := architectSchema()
	require.NoError(t, err)
	assert.NotSame(t, first, arch)
}

func TestValidateReply(t *testing.T) {
	assert.NoError(t, validateReply(optimizerSchema, []byte(`{"tactic":"t","rule_updates":{"1":"contains"}}`)))
	assert.Error(t, validateReply(optimizerSchema, []byte(`{"tactic":""}`)))
	assert.Error(t, validateReply(optimizerSchema, []byte(`{"tactic":"t","extra":1}`)))
	assert.Error(t, validateReply(optimizerSchema, []byte(`not json`)))

	assert.NoError(t, validateReply(architectSchema, []byte(`{"expected_data":{"1":{"value":"x"}},"rules":{"1":"equals"}}`)))
	assert.Error(t, validateReply(architectSchema, []byte(`{"expected_data":{}}`)))
}
