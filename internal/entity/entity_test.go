package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFieldValueUnmarshal(t *testing.T) {
	var ex Extraction
	raw := `{
		"1": "plain",
		"2": {"value": "boxed", "status": "approved"},
		"3": {"value": 30123456789},
		"4": 12.5,
		"5": null,
		"6": {"status": "pending"},
		"7": true,
		"8": ["a", "b"]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ex))

	assert.Equal(t, FieldValue{Value: "plain"}, ex["1"])
	assert.Equal(t, FieldValue{Value: "boxed", Status: "approved"}, ex["2"])
	assert.Equal(t, "30123456789", ex["3"].Value)
	assert.Equal(t, "12.5", ex["4"].Value)
	assert.Equal(t, "", ex["5"].Value)
	assert.Equal(t, `{"status": "pending"}`, ex["6"].Value)
	assert.Equal(t, "true", ex["7"].Value)
	assert.Equal(t, `["a", "b"]`, ex["8"].Value)
}

func TestRulesUnmarshalShapes(t *testing.T) {
	var r Rules
	require.NoError(t, json.Unmarshal([]byte(`{"1":"contains","2":{"rule":"date_iso"}}`), &r))
	assert.Equal(t, Rules{"1": "contains", "2": "date_iso"}, r)

	var y Rules
	require.NoError(t, yaml.Unmarshal([]byte("1: contains_fuzzy\n2:\n  rule: strict_equals\n"), &y))
	assert.Equal(t, Rules{"1": "contains_fuzzy", "2": "strict_equals"}, y)
}

func TestRulesMergeDoesNotMutate(t *testing.T) {
	base := Rules{"1": "equals", "2": "contains"}
	merged := base.Merge(map[string]string{"2": "contains_fuzzy", "3": "date_match", "": "x"})

	assert.Equal(t, Rules{"1": "equals", "2": "contains"}, base)
	assert.Equal(t, Rules{"1": "equals", "2": "contains_fuzzy", "3": "date_match"}, merged)
	assert.Equal(t, "equals", merged.RuleFor("missing"))
}

func TestExpectedFieldIDsOrder(t *testing.T) {
	e := Expected{"10": {}, "2": {}, "name": {}, "1": {}}
	assert.Equal(t, []string{"1", "2", "10", "name"}, e.FieldIDs())

	tied := Expected{"1": {}, "01": {}, "001": {}, "2": {}, "-9223372036854775808": {}, "9223372036854775807": {}}
	want := []string{"-9223372036854775808", "001", "01", "1", "2", "9223372036854775807"}
	for range 20 {
		assert.Equal(t, want, tied.FieldIDs())
	}
}

func TestMismatchString(t *testing.T) {
	m := Mismatch{DocumentID: "7501_01", FieldID: "347", Expected: "20-1", Actual: "20 1", Rule: "equals"}
	assert.Equal(t, "[CASE 7501_01] ID 347: expected '20-1' vs actual '20 1' (equals)", m.String())

	d := Mismatch{DocumentID: "x", Message: "no expected data"}
	assert.True(t, d.Diagnostic())
	assert.Equal(t, "[CASE x] no expected data", d.String())

	assert.Len(t, FormatMismatches([]Mismatch{m, m, m}, 2), 2)
	assert.Len(t, FormatMismatches([]Mismatch{m, m, m}, 0), 3)
}
