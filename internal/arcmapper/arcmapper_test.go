package arcmapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/harvester"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/source"
)

func sampleRecord() *harvester.InspireRecord {
	return &harvester.InspireRecord{
		Identifier: "uuid-123",
		Title:      "Test Dataset",
		Abstract:   "A test dataset description",
		DateStamp:  "2023-10-27",
		Contacts: []harvester.Contact{{
			Name: "John Doe", Organization: "Test Org", Email: "john@example.com",
			Role: "author", Type: "resource", Address: "123 Test St", City: "Test City", Country: "Test Country",
		}},
		ResourceIdentifiers: []harvester.ResourceIdentifier{
			{Code: "10.1234/doi", Codespace: "DOI", URL: "http://doi.org/10.1234/doi"},
		},
		Language:                "eng",
		MetadataStandardName:    "ISO 19115",
		MetadataStandardVersion: "2003/Cor.1:2006",
		AccessConstraints:       []string{"Public Domain"},
		Lineage:                 "Processed using algorithm X",
		SpatialExtent:           &harvester.BoundingBox{MinX: 10.0, MinY: 48.0, MaxX: 11.0, MaxY: 49.0},
		TemporalExtent:          &harvester.TemporalExtent{Start: "2020-01-01", End: "2020-12-31"},
		TopicCategories:         []string{"biota"},
	}
}

func TestFromInspireRecordInvestigationFields(t *testing.T) {
	inv, err := FromInspireRecord(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "uuid-123", inv.ID)
	assert.Equal(t, "Test Dataset", inv.Title)
	assert.Equal(t, "A test dataset description", inv.Description)
	assert.Equal(t, "2023-10-27", inv.SubmissionDate)

	require.Len(t, inv.Persons, 1)
	p := inv.Persons[0]
	assert.Equal(t, "John", p.FirstName)
	assert.Equal(t, "Doe", p.LastName)
	assert.Equal(t, "Test Org", p.Affiliation)
	assert.Equal(t, "123 Test St, Test City, Test Country", p.Address)

	require.Len(t, inv.Publications, 1)
	assert.Equal(t, "10.1234/doi", inv.Publications[0].DOI)

	names := make([]string, len(inv.Comments))
	for i, c := range inv.Comments {
		names[i] = c.Name
	}
	assert.Contains(t, names, "Language")
	assert.Contains(t, names, "Metadata Standard")
	assert.Contains(t, names, "Access Constraints")
}

func TestFromInspireRecordStudyStructure(t *testing.T) {
	inv, err := FromInspireRecord(sampleRecord())
	require.NoError(t, err)

	require.Len(t, inv.Studies(), 1)
	st := inv.Studies()[0]
	assert.Equal(t, "uuid-123_study", st.ID)
	assert.Equal(t, "Study for: Test Dataset", st.Title)
	assert.Contains(t, st.Description, "Lineage: Processed using algorithm X")

	names := make([]string, len(st.Tables))
	for i, tb := range st.Tables {
		names[i] = tb.Name
	}
	assert.Contains(t, names, "Spatial Sampling")
	assert.Contains(t, names, "Data Acquisition")
}

func TestFromInspireRecordAssayUsesFirstTopicCategory(t *testing.T) {
	inv, err := FromInspireRecord(sampleRecord())
	require.NoError(t, err)

	st := inv.Studies()[0]
	require.Len(t, st.Assays(), 1)
	assay := st.Assays()[0]
	assert.Equal(t, "uuid-123_assay", assay.ID)
	assert.Equal(t, "biota", assay.MeasurementType)
	assert.Equal(t, "Data Collection", assay.TechnologyType)
}

func TestFromInspireRecordIsDeterministic(t *testing.T) {
	rec := sampleRecord()
	inv1, err := FromInspireRecord(rec)
	require.NoError(t, err)
	inv2, err := FromInspireRecord(rec)
	require.NoError(t, err)

	doc1, err := inv1.ToROCrateJSONLD()
	require.NoError(t, err)
	doc2, err := inv2.ToROCrateJSONLD()
	require.NoError(t, err)
	assert.Equal(t, string(doc1), string(doc2))
}

func TestMapPersonSplitsNameOnLastWhitespaceToken(t *testing.T) {
	p := mapPerson(harvester.Contact{Name: "Jane Middle Smith"})
	assert.Equal(t, "Jane Middle", p.FirstName)
	assert.Equal(t, "Smith", p.LastName)
}

func TestIsPublicationIdentifierDetectsDOIAndISBN(t *testing.T) {
	assert.True(t, isPublicationIdentifier(harvester.ResourceIdentifier{Code: "10.5555/xyz"}))
	assert.True(t, isPublicationIdentifier(harvester.ResourceIdentifier{Code: "doi:10.5555/xyz"}))
	assert.True(t, isPublicationIdentifier(harvester.ResourceIdentifier{Codespace: "urn:ISBN"}))
	assert.False(t, isPublicationIdentifier(harvester.ResourceIdentifier{Code: "plain-id"}))
}

func TestFromDatasetRowRejectsEmptyIdentifier(t *testing.T) {
	ds := &source.Dataset{Investigation: source.Investigation{ID: "   "}}
	_, err := FromDatasetRow(ds)
	assert.Error(t, err)
}

func TestFromDatasetRowBuildsRegisteredTree(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ds := &source.Dataset{
		Investigation: source.Investigation{ID: "1", Title: "Inv", SubmissionTime: now},
		Studies:       []source.Study{{ID: "10", InvestigationID: "1", Title: "Study"}},
		AssaysByStudy: map[string][]source.Assay{
			"10": {{ID: "100", StudyID: "10", MeasurementType: "mt", TechnologyType: "tt"}},
		},
	}

	inv, err := FromDatasetRow(ds)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z", inv.SubmissionDate)
	require.Len(t, inv.Studies(), 1)
	require.Len(t, inv.Studies()[0].Assays(), 1)
	assert.Equal(t, "100", inv.Studies()[0].Assays()[0].ID)
}
