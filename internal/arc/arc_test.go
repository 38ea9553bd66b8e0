package arc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) *Investigation {
	t.Helper()
	inv := &Investigation{ID: "inv-1", Title: "Soil Moisture Study"}

	study := &Study{
		ID:    "study-1",
		Title: "Field Trial 2025",
		Tables: []Table{
			{Name: "Spatial Sampling", Cells: []TableCell{{Header: "lat", Value: "52.1"}}},
			{Name: "Data Acquisition", Cells: []TableCell{{Header: "sensor", Value: "TDR"}}},
		},
	}
	require.NoError(t, inv.AddRegisteredStudy(study))

	assay := &Assay{ID: "assay-1", MeasurementType: "moisture", TechnologyType: "sensor"}
	require.NoError(t, study.AddRegisteredAssay(assay))

	return inv
}

func TestAddRegisteredStudyRejectsDuplicateID(t *testing.T) {
	inv := &Investigation{ID: "inv-1"}
	require.NoError(t, inv.AddRegisteredStudy(&Study{ID: "dup"}))
	err := inv.AddRegisteredStudy(&Study{ID: "dup"})
	assert.Error(t, err)
}

func TestAddRegisteredAssayRejectsDuplicateID(t *testing.T) {
	study := &Study{ID: "study-1"}
	require.NoError(t, study.AddRegisteredAssay(&Assay{ID: "dup"}))
	err := study.AddRegisteredAssay(&Assay{ID: "dup"})
	assert.Error(t, err)
}

func TestToROCrateJSONLDIsDeterministicAcrossTableIndices(t *testing.T) {
	inv1 := buildTree(t)
	inv2 := buildTree(t)

	doc1, err := inv1.ToROCrateJSONLD()
	require.NoError(t, err)
	doc2, err := inv2.ToROCrateJSONLD()
	require.NoError(t, err)

	assert.Equal(t, string(doc1), string(doc2))
}

func TestToROCrateJSONLDTableIDsAreStableAndDistinct(t *testing.T) {
	inv := buildTree(t)
	doc, err := inv.ToROCrateJSONLD()
	require.NoError(t, err)

	var parsed struct {
		Graph []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))

	var studyNode map[string]any
	for _, n := range parsed.Graph {
		if n["@id"] == "#study/study-1" {
			studyNode = n
		}
	}
	require.NotNil(t, studyNode)

	tables, ok := studyNode["arc:table"].([]any)
	require.True(t, ok)
	require.Len(t, tables, 2)

	ids := make(map[string]bool)
	for _, raw := range tables {
		tbl := raw.(map[string]any)
		id := tbl["@id"].(string)
		assert.False(t, ids[id], "table @id %q must be unique", id)
		ids[id] = true
	}
}

func TestToROCrateJSONLDIncludesGraphHierarchy(t *testing.T) {
	inv := buildTree(t)
	doc, err := inv.ToROCrateJSONLD()
	require.NoError(t, err)

	var parsed struct {
		Context map[string]any   `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))

	assert.Equal(t, "http://schema.org/", parsed.Context["schema"])
	assert.Len(t, parsed.Graph, 3) // investigation + study + assay

	ids := make(map[string]bool)
	for _, n := range parsed.Graph {
		ids[n["@id"].(string)] = true
	}
	assert.True(t, ids["#investigation/inv-1"])
	assert.True(t, ids["#study/study-1"])
	assert.True(t, ids["#assay/assay-1"])
}
