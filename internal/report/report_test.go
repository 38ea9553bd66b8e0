package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(doc, &out))
	return out
}

func TestToJSONLDCompletedStatusWhenNoFailures(t *testing.T) {
	s := Stats{FoundDatasets: 3, TotalStudies: 5, TotalAssays: 7, DurationSeconds: 1.234}

	doc, err := s.ToJSONLD("", "")
	require.NoError(t, err)

	out := decode(t, doc)
	assert.Equal(t, "schema:CompletedActionStatus", out["status"])
	assert.Equal(t, "PT1.23S", out["duration"])
	assert.InDelta(t, 1.23, out["duration_seconds"], 0.001)
	assert.Equal(t, float64(3), out["found_datasets"])
	assert.Equal(t, float64(5), out["total_studies"])
	assert.Equal(t, float64(7), out["total_assays"])
	assert.Equal(t, float64(0), out["failed_datasets"])
	assert.Equal(t, []any{}, out["failed_ids"])
	assert.NotContains(t, out, "prov:used")
}

func TestToJSONLDFailedStatusWhenAnyFailure(t *testing.T) {
	s := Stats{FoundDatasets: 2, FailedDatasets: 1, FailedIDs: []string{"b", "a"}}

	doc, err := s.ToJSONLD("", "")
	require.NoError(t, err)

	out := decode(t, doc)
	assert.Equal(t, "schema:FailedActionStatus", out["status"])
	assert.Equal(t, []any{"a", "b"}, out["failed_ids"])
}

func TestToJSONLDIncludesProvUsedWhenRDIConfigured(t *testing.T) {
	s := Stats{FoundDatasets: 1}

	doc, err := s.ToJSONLD("my-rdi", "https://rdi.example.org")
	require.NoError(t, err)

	out := decode(t, doc)
	used, ok := out["prov:used"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://rdi.example.org", used["@id"])
	assert.Equal(t, "schema:Organization", used["@type"])
	assert.Equal(t, "my-rdi", used["schema:identifier"])
	assert.Equal(t, "Research Data Infrastructure: my-rdi", used["schema:name"])
}

func TestToJSONLDOmitsProvUsedWhenEitherFieldMissing(t *testing.T) {
	s := Stats{}

	doc1, err := s.ToJSONLD("my-rdi", "")
	require.NoError(t, err)
	assert.NotContains(t, decode(t, doc1), "prov:used")

	doc2, err := s.ToJSONLD("", "https://rdi.example.org")
	require.NoError(t, err)
	assert.NotContains(t, decode(t, doc2), "prov:used")
}

func TestToJSONLDContextAliasesExpectedVocabularies(t *testing.T) {
	s := Stats{}
	doc, err := s.ToJSONLD("", "")
	require.NoError(t, err)

	out := decode(t, doc)
	ctx, ok := out["@context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "http://schema.org/", ctx["schema"])
	assert.Equal(t, "http://www.w3.org/ns/prov#", ctx["prov"])
	assert.Equal(t, "http://rdfs.org/ns/void#", ctx["void"])
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#", ctx["xsd"])

	types, ok := out["@type"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"prov:Activity", "schema:CreateAction"}, types)
}

func TestRound2RoundsToTwoDecimalPlaces(t *testing.T) {
	assert.InDelta(t, 1.23, round2(1.234), 0.0001)
	assert.InDelta(t, 1.24, round2(1.235), 0.0001)
	assert.InDelta(t, 0.0, round2(0), 0.0001)
}
