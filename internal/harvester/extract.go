package harvester

import (
	"strconv"
	"strings"
)

// IsoField is one declarative extraction rule: given a raw decoded
// ISO 19139 record, populate the corresponding field(s) on rec. Per
// Design Notes §9 this replaces ad hoc reflective "getattr with a
// default" calls with a single table of named, typed rules — every
// rule is required to be total (it never panics and never returns an
// error): a field that cannot be extracted is simply left at its zero
// value.
type IsoField struct {
	Name    string
	Extract func(raw *rawISORecord, rec *InspireRecord)
}

// IdentificationFields covers gmd:identificationInfo/MD_DataIdentification.
var IdentificationFields = []IsoField{
	{"title", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Title = raw.Identification.Citation.Title.text()
	}},
	{"abstract", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Abstract = raw.Identification.Abstract.text()
	}},
	{"purpose", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Purpose = raw.Identification.Purpose.text()
	}},
	{"status", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Status = raw.Identification.Status.Value
	}},
	{"supplementalInformation", func(raw *rawISORecord, rec *InspireRecord) {
		rec.SupplementalInformation = raw.Identification.SupplementalInformation.text()
	}},
	{"keywords", func(raw *rawISORecord, rec *InspireRecord) {
		for _, kw := range raw.Identification.Keywords {
			for _, k := range kw.Keyword {
				if v := k.text(); v != "" {
					rec.Keywords = append(rec.Keywords, v)
				}
			}
		}
	}},
	{"topicCategory", func(raw *rawISORecord, rec *InspireRecord) {
		for _, t := range raw.Identification.TopicCategory {
			if v := t.text(); v != "" {
				rec.TopicCategories = append(rec.TopicCategories, v)
			}
		}
	}},
	{"pointOfContact", func(raw *rawISORecord, rec *InspireRecord) {
		for _, c := range raw.Identification.PointOfContact {
			rec.Contacts = append(rec.Contacts, toContact(c, "resource"))
		}
	}},
	{"resourceIdentifiers", func(raw *rawISORecord, rec *InspireRecord) {
		for _, id := range raw.Identification.Citation.Identifier {
			rec.ResourceIdentifiers = append(rec.ResourceIdentifiers, toResourceIdentifier(id))
		}
		for _, id := range raw.Identification.Citation.Identifier2 {
			rec.ResourceIdentifiers = append(rec.ResourceIdentifiers, toResourceIdentifier(id))
		}
	}},
	{"citationDates", func(raw *rawISORecord, rec *InspireRecord) {
		for _, d := range raw.Identification.Citation.Date {
			date := d.Date.text()
			if date == "" {
				date = d.DateTime.text()
			}
			if date == "" {
				continue
			}
			rec.CitationDates = append(rec.CitationDates, CitationDate{Date: date, Type: d.DateType.Value})
		}
	}},
	{"graphicOverview", func(raw *rawISORecord, rec *InspireRecord) {
		for _, g := range raw.Identification.GraphicOverview {
			if v := g.FileName.text(); v != "" {
				rec.GraphicOverviews = append(rec.GraphicOverviews, v)
			}
		}
	}},
	{"spatialResolution", func(raw *rawISORecord, rec *InspireRecord) {
		for _, sr := range raw.Identification.SpatialResolution {
			if v := sr.EquivalentScale.text(); v != "" {
				rec.SpatialResolutionScale = v
			}
			if v := sr.Distance.text(); v != "" {
				rec.SpatialResolutionDistance = v
			}
		}
	}},
	{"resourceConstraints", func(raw *rawISORecord, rec *InspireRecord) {
		for _, rc := range raw.Identification.ResourceConstraints {
			lc := rc.LegalConstraints
			for _, c := range lc.AccessConstraints {
				if c.Value != "" {
					rec.AccessConstraints = append(rec.AccessConstraints, c.Value)
				}
			}
			for _, c := range lc.UseConstraints {
				if c.Value != "" {
					rec.UseConstraints = append(rec.UseConstraints, c.Value)
				}
			}
			for _, c := range lc.OtherConstraints {
				if v := c.text(); v != "" {
					rec.OtherConstraints = append(rec.OtherConstraints, v)
				}
			}
		}
	}},
	{"extent", func(raw *rawISORecord, rec *InspireRecord) {
		for _, g := range raw.Identification.Extent.GeographicElement {
			bbox, ok := toBoundingBox(g)
			if ok {
				rec.SpatialExtent = bbox
				break
			}
		}
		for _, t := range raw.Identification.Extent.TemporalElement {
			start, end := t.BeginPosition.text(), t.EndPosition.text()
			if start == "" && end == "" {
				continue
			}
			rec.TemporalExtent = &TemporalExtent{Start: start, End: end}
			break
		}
	}},
}

// DistributionFields covers gmd:distributionInfo/MD_Distribution.
var DistributionFields = []IsoField{
	{"distributionFormat", func(raw *rawISORecord, rec *InspireRecord) {
		for _, f := range raw.Distribution.Format {
			name := f.Name.text()
			if name == "" {
				continue
			}
			rec.DistributionFormats = append(rec.DistributionFormats, DistributionFormat{
				Name: name, Version: f.Version.text(),
			})
		}
	}},
	{"onlineResource", func(raw *rawISORecord, rec *InspireRecord) {
		for _, to := range raw.Distribution.TransferOptions {
			for _, o := range to.Online {
				if o.Linkage.text() == "" {
					continue
				}
				rec.OnlineResources = append(rec.OnlineResources, OnlineResource{
					URL: o.Linkage.text(), Name: o.Name.text(), Description: o.Description.text(),
				})
			}
		}
	}},
}

// DataQualityFields covers gmd:dataQualityInfo/DQ_DataQuality.
var DataQualityFields = []IsoField{
	{"lineage", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Lineage = raw.DataQuality.Lineage.Statement.text()
	}},
	{"conformanceResult", func(raw *rawISORecord, rec *InspireRecord) {
		for _, report := range raw.DataQuality.Report {
			for _, r := range report.Result {
				title := r.Specification.Title.text()
				if title == "" {
					continue
				}
				rec.ConformanceResults = append(rec.ConformanceResults, ConformanceResult{
					Title:  title,
					Degree: parsePassDegree(r.Pass.text()),
				})
			}
		}
	}},
}

// ReferenceSystemFields covers gmd:referenceSystemInfo/MD_ReferenceSystem.
var ReferenceSystemFields = []IsoField{
	{"referenceSystemIdentifier", func(raw *rawISORecord, rec *InspireRecord) {
		for _, rs := range raw.ReferenceSystem {
			if v := rs.Code.text(); v != "" {
				rec.ReferenceSystems = append(rec.ReferenceSystems, v)
			}
		}
	}},
}

// TopLevelFields covers the gmd:MD_Metadata root-level elements.
var TopLevelFields = []IsoField{
	{"fileIdentifier", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Identifier = raw.FileIdentifier.text()
	}},
	{"parentIdentifier", func(raw *rawISORecord, rec *InspireRecord) {
		rec.ParentIdentifier = raw.ParentIdentifier.text()
	}},
	{"hierarchyLevel", func(raw *rawISORecord, rec *InspireRecord) {
		rec.HierarchyLevel = raw.HierarchyLevel.Value
	}},
	{"characterSet", func(raw *rawISORecord, rec *InspireRecord) {
		rec.CharacterSet = raw.CharacterSet.Value
	}},
	{"dateStamp", func(raw *rawISORecord, rec *InspireRecord) {
		rec.DateStamp = raw.DateStamp.text()
		if rec.DateStamp == "" {
			rec.DateStamp = raw.DateStampTime.text()
		}
	}},
	{"language", func(raw *rawISORecord, rec *InspireRecord) {
		rec.Language = raw.Language.text()
	}},
	{"metadataStandard", func(raw *rawISORecord, rec *InspireRecord) {
		rec.MetadataStandardName = raw.MetadataStandard.Name.text()
		rec.MetadataStandardVersion = raw.MetadataStandard.Version.text()
	}},
	{"contact", func(raw *rawISORecord, rec *InspireRecord) {
		for _, c := range raw.Contact {
			rec.Contacts = append(rec.Contacts, toContact(c, "metadata"))
		}
	}},
}

// allFieldGroups is the full declarative extraction table, run in a
// fixed order so Contacts accumulates metadata contacts before resource
// contacts, matching the original implementation's ordering.
var allFieldGroups = [][]IsoField{
	TopLevelFields,
	IdentificationFields,
	DataQualityFields,
	DistributionFields,
	ReferenceSystemFields,
}

// parseISORecord runs every IsoField rule over raw and returns the
// accumulated InspireRecord. It never returns an error: the caller is
// responsible for the two semantic checks (missing title, missing
// abstract) that turn into a RecordError.
func parseISORecord(raw *rawISORecord) *InspireRecord {
	rec := &InspireRecord{}
	for _, group := range allFieldGroups {
		for _, f := range group {
			f.Extract(raw, rec)
		}
	}
	return rec
}

// parsePassDegree interprets a DQ_ConformanceResult's gco:Boolean pass
// text, returning nil for the "Unknown" degree (absent or unrecognized).
func parsePassDegree(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func toContact(c rawResponsible, kind string) Contact {
	name := c.IndividualName.text()
	return Contact{
		Name:           name,
		Organization:   c.OrganisationName.text(),
		Email:          c.ContactInfo.Address.Email.text(),
		Role:           c.Role.Value,
		Type:           kind,
		Phone:          c.ContactInfo.Phone.text(),
		Address:        c.ContactInfo.Address.DeliveryPoint.text(),
		City:           c.ContactInfo.Address.City.text(),
		Region:         c.ContactInfo.Address.AdministrativeArea.text(),
		PostCode:       c.ContactInfo.Address.PostalCode.text(),
		Country:        c.ContactInfo.Address.Country.text(),
		Position:       c.PositionName.text(),
		OnlineResource: c.ContactInfo.Online.Linkage.text(),
	}
}

func toResourceIdentifier(id rawMDIdentifier) ResourceIdentifier {
	return ResourceIdentifier{
		Code:      id.Code.text(),
		Codespace: id.CodeSpace.text(),
		URL:       id.URL.text(),
	}
}

func toBoundingBox(g rawGeographicBoundingBox) (*BoundingBox, bool) {
	west, err1 := strconv.ParseFloat(strings.TrimSpace(g.WestBoundLongitude.text()), 64)
	east, err2 := strconv.ParseFloat(strings.TrimSpace(g.EastBoundLongitude.text()), 64)
	south, err3 := strconv.ParseFloat(strings.TrimSpace(g.SouthBoundLatitude.text()), 64)
	north, err4 := strconv.ParseFloat(strings.TrimSpace(g.NorthBoundLatitude.text()), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, false
	}
	return &BoundingBox{MinX: west, MinY: south, MaxX: east, MaxY: north}, true
}
