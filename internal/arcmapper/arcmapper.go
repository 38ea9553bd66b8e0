// Package arcmapper implements the two pure mapping functions of
// spec.md §4.3: InspireRecord → ARC tree and database Dataset → ARC
// tree. Neither function performs I/O; both are deterministic, so
// calling either twice on the same input renders byte-identical
// JSON-LD.
package arcmapper

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/harvester"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/source"
)

// FromInspireRecord maps one harvested InspireRecord to a fully
// populated ARC Investigation (with exactly one Study and one Assay),
// implementing spec.md §4.3's INSPIRE → ARC rules exactly.
func FromInspireRecord(rec *harvester.InspireRecord) (*arc.Investigation, error) {
	inv := mapInvestigation(rec)
	st := mapStudy(rec)
	assay := mapAssay(rec)

	if err := st.AddRegisteredAssay(assay); err != nil {
		return nil, fmt.Errorf("register assay: %w", err)
	}
	if err := inv.AddRegisteredStudy(st); err != nil {
		return nil, fmt.Errorf("register study: %w", err)
	}
	return inv, nil
}

func mapInvestigation(rec *harvester.InspireRecord) *arc.Investigation {
	inv := &arc.Investigation{
		ID:             rec.Identifier,
		Title:          rec.Title,
		Description:    rec.Abstract,
		SubmissionDate: rec.DateStamp,
	}

	contacts := mergedContacts(rec)
	for _, c := range contacts {
		inv.Persons = append(inv.Persons, mapPerson(c))
	}

	inv.Publications = mapPublications(rec, inv.Persons)
	inv.Comments = append(investigationComments(rec), contactComments(contacts)...)
	return inv
}

// mergedContacts implements "Contacts come from contacts ∪ creators ∪
// publishers ∪ contributors": the harvester only carries one Contacts
// slice tagged by role/type, so the union is simply that slice, kept in
// harvest order.
func mergedContacts(rec *harvester.InspireRecord) []harvester.Contact {
	return rec.Contacts
}

// mapPerson implements the "last-name = last whitespace token,
// first-name = remainder" and comma-joined address rules.
func mapPerson(c harvester.Contact) arc.Person {
	first, last := splitName(c.Name)

	addrParts := make([]string, 0, 5)
	for _, p := range []string{c.Address, c.City, c.Region, c.PostCode, c.Country} {
		if p != "" {
			addrParts = append(addrParts, p)
		}
	}

	p := arc.Person{
		FirstName:   first,
		LastName:    last,
		Email:       c.Email,
		Address:     strings.Join(addrParts, ", "),
		Affiliation: c.Organization,
	}
	if c.Role != "" {
		p.Roles = []string{c.Role}
	}
	return p
}

// contactComments implements "position and online resource produce
// comments": each Contact's position and online resource, if present,
// become an Investigation-level comment named after the contact.
func contactComments(contacts []harvester.Contact) []arc.Comment {
	var comments []arc.Comment
	for _, c := range contacts {
		if c.Position != "" {
			comments = append(comments, arc.Comment{Name: c.Name + " Position", Value: c.Position})
		}
		if c.OnlineResource != "" {
			comments = append(comments, arc.Comment{Name: c.Name + " Online Resource", Value: c.OnlineResource})
		}
	}
	return comments
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	last = fields[len(fields)-1]
	first = strings.Join(fields[:len(fields)-1], " ")
	return first, last
}

// mapPublications implements the resource-identifier DOI/ISBN detection
// rule and the "Last, F." author-string rule over persons with role
// "author".
func mapPublications(rec *harvester.InspireRecord, persons []arc.Person) []arc.Publication {
	authors := authorString(persons)

	var pubs []arc.Publication
	for _, id := range rec.ResourceIdentifiers {
		if !isPublicationIdentifier(id) {
			continue
		}
		pubs = append(pubs, arc.Publication{
			DOI:     id.Code,
			Title:   rec.Title,
			Authors: authors,
		})
	}
	return pubs
}

func isPublicationIdentifier(id harvester.ResourceIdentifier) bool {
	code := strings.ToLower(id.Code)
	if strings.HasPrefix(code, "10.") || strings.Contains(code, "doi") {
		return true
	}
	return strings.Contains(strings.ToLower(id.Codespace), "isbn")
}

func authorString(persons []arc.Person) string {
	var names []string
	for _, p := range persons {
		if !hasRole(p.Roles, "author") {
			continue
		}
		initial := ""
		if p.FirstName != "" {
			initial = string([]rune(p.FirstName)[0]) + "."
		}
		names = append(names, strings.TrimSpace(fmt.Sprintf("%s, %s", p.LastName, initial)))
	}
	return strings.Join(names, "; ")
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, want) {
			return true
		}
	}
	return false
}

// investigationComments implements the fixed comment set appended when
// each source field is present.
func investigationComments(rec *harvester.InspireRecord) []arc.Comment {
	var comments []arc.Comment
	add := func(name, value string) {
		if value != "" {
			comments = append(comments, arc.Comment{Name: name, Value: value})
		}
	}

	add("Parent Identifier", rec.ParentIdentifier)
	add("Hierarchy Level", rec.HierarchyLevel)
	add("Dataset URI", rec.DatasetURI)
	add("Language", rec.Language)
	add("Character Set", rec.CharacterSet)
	add("Edition", rec.Edition)
	add("Status", rec.Status)

	if rec.MetadataStandardName != "" {
		v := rec.MetadataStandardName
		if rec.MetadataStandardVersion != "" {
			v = fmt.Sprintf("%s v%s", v, rec.MetadataStandardVersion)
		}
		add("Metadata Standard", v)
	}

	add("Access Constraints", strings.Join(rec.AccessConstraints, ", "))
	add("Use Constraints", strings.Join(rec.UseConstraints, ", "))
	add("Classification", strings.Join(rec.ClassificationConstraints, ", "))

	if len(rec.OtherConstraints) > 0 {
		n := rec.OtherConstraints
		if len(n) > 3 {
			n = n[:3]
		}
		add("Other Constraints", strings.Join(n, "; "))
	}

	return comments
}

const fallbackStudyDescription = "Imported from INSPIRE metadata"

func mapStudy(rec *harvester.InspireRecord) *arc.Study {
	st := &arc.Study{
		ID:          rec.Identifier + "_study",
		Title:       "Study for: " + rec.Title,
		Description: studyDescription(rec),
	}

	for _, t := range []*arc.Table{
		spatialSamplingTable(rec),
		dataAcquisitionTable(rec),
		dataProcessingTable(rec),
	} {
		if t != nil {
			st.Tables = append(st.Tables, *t)
		}
	}

	if len(st.Tables) == 0 && noteFallback(rec) != nil {
		st.Tables = append(st.Tables, *noteFallback(rec))
	}

	return st
}

func studyDescription(rec *harvester.InspireRecord) string {
	var parts []string
	if rec.Lineage != "" {
		parts = append(parts, "Lineage: "+rec.Lineage)
	}
	if rec.Purpose != "" {
		parts = append(parts, "Purpose: "+rec.Purpose)
	}
	if rec.SupplementalInformation != "" {
		parts = append(parts, "Supplemental: "+rec.SupplementalInformation)
	}
	if len(parts) == 0 {
		return fallbackStudyDescription
	}
	return strings.Join(parts, " | ")
}

func spatialSamplingTable(rec *harvester.InspireRecord) *arc.Table {
	var cells []arc.TableCell
	if rec.SpatialExtent != nil {
		bbox := rec.SpatialExtent
		cells = append(cells, arc.TableCell{
			Header: "Bounding Box",
			Value:  fmt.Sprintf("[%v, %v, %v, %v]", bbox.MinX, bbox.MinY, bbox.MaxX, bbox.MaxY),
		})
	}
	if rec.SpatialResolutionScale != "" {
		cells = append(cells, arc.TableCell{Header: "Spatial Resolution (Scale)", Value: rec.SpatialResolutionScale})
	}
	if rec.SpatialResolutionDistance != "" {
		cells = append(cells, arc.TableCell{Header: "Spatial Resolution (Distance)", Value: rec.SpatialResolutionDistance})
	}
	if len(cells) == 0 {
		return nil
	}
	return &arc.Table{Name: "Spatial Sampling", Cells: cells}
}

func dataAcquisitionTable(rec *harvester.InspireRecord) *arc.Table {
	var cells []arc.TableCell

	if rec.TemporalExtent != nil {
		start, end := rec.TemporalExtent.Start, rec.TemporalExtent.End
		if start == "" {
			start = "unknown"
		}
		if end == "" {
			end = "unknown"
		}
		cells = append(cells, arc.TableCell{
			Header: "Temporal Extent",
			Value:  fmt.Sprintf("%s to %s", start, end),
		})
	}

	if dates := datesOfType(rec.CitationDates, "creation"); dates != "" {
		cells = append(cells, arc.TableCell{Header: "Acquisition Date", Value: dates})
	}

	if len(cells) == 0 {
		return nil
	}
	return &arc.Table{Name: "Data Acquisition", Cells: cells}
}

func dataProcessingTable(rec *harvester.InspireRecord) *arc.Table {
	var cells []arc.TableCell

	if rec.Lineage != "" {
		desc := rec.Lineage
		if len(desc) > 500 {
			desc = desc[:500]
		}
		cells = append(cells, arc.TableCell{Header: "Processing Description", Value: desc})
	}

	for _, cr := range rec.ConformanceResults {
		status := "Unknown"
		if cr.Degree != nil {
			if *cr.Degree {
				status = "PASS"
			} else {
				status = "FAIL"
			}
		}
		cells = append(cells, arc.TableCell{
			Header: fmt.Sprintf("Conformance: %s", cr.Title),
			Value:  fmt.Sprintf("%s: %s", cr.Title, status),
		})
	}

	for _, f := range rec.DistributionFormats {
		v := f.Name
		if f.Version != "" {
			v = fmt.Sprintf("%s v%s", f.Name, f.Version)
		}
		cells = append(cells, arc.TableCell{Header: "Output Format", Value: v})
	}

	if dates := datesOfType(rec.CitationDates, "publication", "revision"); dates != "" {
		cells = append(cells, arc.TableCell{Header: "Processing Date", Value: dates})
	}

	if len(cells) == 0 {
		return nil
	}
	return &arc.Table{Name: "Data Processing", Cells: cells}
}

func noteFallback(rec *harvester.InspireRecord) *arc.Table {
	if rec.Lineage == "" && len(rec.CitationDates) == 0 {
		return nil
	}
	note := rec.Lineage
	if note == "" {
		note = studyDescription(rec)
	}
	return &arc.Table{Name: "Note", Cells: []arc.TableCell{{Header: "Note", Value: note}}}
}

func datesOfType(dates []harvester.CitationDate, types ...string) string {
	var out []string
	for _, d := range dates {
		for _, t := range types {
			if strings.EqualFold(d.Type, t) {
				out = append(out, d.Date)
				break
			}
		}
	}
	return strings.Join(out, ", ")
}

const defaultMeasurementType = "Spatial Data Acquisition"
const fixedTechnologyType = "Data Collection"

func mapAssay(rec *harvester.InspireRecord) *arc.Assay {
	measurementType := defaultMeasurementType
	if len(rec.TopicCategories) > 0 {
		measurementType = rec.TopicCategories[0]
	}

	platform := ""
	for _, rs := range rec.ReferenceSystems {
		if rs != "" {
			platform = rs
			break
		}
	}

	assay := &arc.Assay{
		ID:                 rec.Identifier + "_assay",
		MeasurementType:    measurementType,
		TechnologyType:     fixedTechnologyType,
		TechnologyPlatform: platform,
	}

	for _, url := range rec.GraphicOverviews {
		assay.Comments = append(assay.Comments, arc.Comment{Name: "Graphic Overview", Value: url})
	}
	for _, o := range rec.OnlineResources {
		assay.Comments = append(assay.Comments, arc.Comment{Name: "Online Resource", Value: o.URL})
	}

	return assay
}

// FromDatasetRow maps one database Dataset (an investigation plus its
// studies and assays) to an ARC Investigation, implementing spec.md
// §4.3's DB → ARC rules exactly.
func FromDatasetRow(ds *source.Dataset) (*arc.Investigation, error) {
	id := strings.TrimSpace(ds.Investigation.ID)
	if id == "" {
		return nil, fmt.Errorf("investigation identifier is empty after trim")
	}

	inv := &arc.Investigation{
		ID:             id,
		Title:          ds.Investigation.Title,
		Description:    ds.Investigation.Description,
		SubmissionDate: isoDate(ds.Investigation.SubmissionTime),
		ReleaseDate:    isoDate(ds.Investigation.ReleaseTime),
	}

	studies := append([]source.Study(nil), ds.Studies...)
	sort.SliceStable(studies, func(i, j int) bool { return studies[i].ID < studies[j].ID })

	for _, s := range studies {
		st := &arc.Study{
			ID:          strings.TrimSpace(s.ID),
			Title:       s.Title,
			Description: s.Description,
		}
		for _, a := range ds.AssaysByStudy[s.ID] {
			assay := &arc.Assay{
				ID:              strings.TrimSpace(a.ID),
				MeasurementType: a.MeasurementType,
				TechnologyType:  a.TechnologyType,
			}
			if err := st.AddRegisteredAssay(assay); err != nil {
				return nil, fmt.Errorf("map assay: %w", err)
			}
		}
		if err := inv.AddRegisteredStudy(st); err != nil {
			return nil, fmt.Errorf("map study: %w", err)
		}
	}

	return inv, nil
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}
