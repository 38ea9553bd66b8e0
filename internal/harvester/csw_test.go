package harvester

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISORecordExtractsCoreFields(t *testing.T) {
	raw := &rawISORecord{}
	raw.FileIdentifier.CharacterString = "uuid-123"
	raw.DateStamp.CharacterString = "2023-10-27"
	raw.Identification.Citation.Title.CharacterString = "Test Dataset"
	raw.Identification.Abstract.CharacterString = "A test dataset description"
	raw.Identification.TopicCategory = []gcoString{{CharacterString: "biota"}}

	rec := parseISORecord(raw)

	assert.Equal(t, "uuid-123", rec.Identifier)
	assert.Equal(t, "Test Dataset", rec.Title)
	assert.Equal(t, "A test dataset description", rec.Abstract)
	assert.Equal(t, "2023-10-27", rec.DateStamp)
	assert.Equal(t, []string{"biota"}, rec.TopicCategories)
}

func TestParseISORecordExtractsContactsWithNameSplitSource(t *testing.T) {
	raw := &rawISORecord{}
	contact := rawResponsible{}
	contact.IndividualName.CharacterString = "John Doe"
	contact.OrganisationName.CharacterString = "Test Org"
	contact.Role.Value = "author"
	contact.ContactInfo.Address.Email.CharacterString = "john@example.com"
	raw.Identification.PointOfContact = []rawResponsible{contact}

	rec := parseISORecord(raw)

	require.Len(t, rec.Contacts, 1)
	c := rec.Contacts[0]
	assert.Equal(t, "John Doe", c.Name)
	assert.Equal(t, "Test Org", c.Organization)
	assert.Equal(t, "author", c.Role)
	assert.Equal(t, "resource", c.Type)
}

func TestParseISORecordSwallowsInvalidBoundingBox(t *testing.T) {
	raw := &rawISORecord{}
	bbox := rawGeographicBoundingBox{}
	bbox.WestBoundLongitude.CharacterString = "not-a-number"
	raw.Identification.Extent.GeographicElement = []rawGeographicBoundingBox{bbox}

	rec := parseISORecord(raw)

	assert.Nil(t, rec.SpatialExtent)
}

func TestParseISORecordParsesValidBoundingBox(t *testing.T) {
	raw := &rawISORecord{}
	bbox := rawGeographicBoundingBox{}
	bbox.WestBoundLongitude.CharacterString = "10.0"
	bbox.EastBoundLongitude.CharacterString = "11.0"
	bbox.SouthBoundLatitude.CharacterString = "48.0"
	bbox.NorthBoundLatitude.CharacterString = "49.0"
	raw.Identification.Extent.GeographicElement = []rawGeographicBoundingBox{bbox}

	rec := parseISORecord(raw)

	require.NotNil(t, rec.SpatialExtent)
	assert.Equal(t, 10.0, rec.SpatialExtent.MinX)
	assert.Equal(t, 49.0, rec.SpatialExtent.MaxY)
}

func TestValidateRecordMissingTitleIsSemanticError(t *testing.T) {
	rec := &InspireRecord{Identifier: "uuid-1", Abstract: "present"}
	err := validateRecord(rec)
	require.NotNil(t, err)
	assert.Contains(t, err.Cause, "title")
}

func TestValidateRecordMissingAbstractIsSemanticError(t *testing.T) {
	rec := &InspireRecord{Identifier: "uuid-1", Title: "present"}
	err := validateRecord(rec)
	require.NotNil(t, err)
	assert.Contains(t, err.Cause, "abstract")
}

func TestValidateRecordCompleteIsNoError(t *testing.T) {
	rec := &InspireRecord{Identifier: "uuid-1", Title: "t", Abstract: "a"}
	assert.Nil(t, validateRecord(rec))
}

func TestAlignAndParsePrefersISOIdentifierOnMismatch(t *testing.T) {
	c := NewCSWClient("http://example.com/csw", nil, 10)

	dc := []rawDCRecord{{Identifier: "dc-id"}}
	iso := []rawISORecord{{}}
	iso[0].FileIdentifier.CharacterString = "iso-id"
	iso[0].Identification.Citation.Title.CharacterString = "t"
	iso[0].Identification.Abstract.CharacterString = "a"

	items := c.alignAndParse(dc, iso)

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Record)
	assert.Equal(t, "iso-id", items[0].Record.Identifier)
}

func TestAlignAndParseUsesDCIdentifierWhenISOIdentifierAbsent(t *testing.T) {
	c := NewCSWClient("http://example.com/csw", nil, 10)

	dc := []rawDCRecord{{Identifier: "dc-id"}}
	iso := []rawISORecord{{}}
	iso[0].Identification.Citation.Title.CharacterString = "t"
	iso[0].Identification.Abstract.CharacterString = "a"

	items := c.alignAndParse(dc, iso)

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Record)
	assert.Equal(t, "dc-id", items[0].Record.Identifier)
}

func TestAlignAndParseYieldsRecordErrorInlineWithoutStoppingStream(t *testing.T) {
	c := NewCSWClient("http://example.com/csw", nil, 10)

	good := rawISORecord{}
	good.FileIdentifier.CharacterString = "good"
	good.Identification.Citation.Title.CharacterString = "t"
	good.Identification.Abstract.CharacterString = "a"

	bad := rawISORecord{}
	bad.FileIdentifier.CharacterString = "bad"

	items := c.alignAndParse(nil, []rawISORecord{good, bad})

	require.Len(t, items, 2)
	assert.NotNil(t, items[0].Record)
	assert.Nil(t, items[0].Err)
	assert.Nil(t, items[1].Record)
	require.NotNil(t, items[1].Err)
	assert.Equal(t, "bad", items[1].Err.ID)
}
