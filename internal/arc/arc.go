// Package arc models the Annotated Research Context entity tree this
// middleware builds from upstream records: an Investigation owning
// Studies, each owning Assays, plus the shared Person/Publication/
// Comment/Table collections, and renders it to an RO-Crate-flavored
// JSON-LD document.
//
// The concrete ARCtrl library is out of scope for this middleware
// (spec.md §1); this package is the shape an implementer must
// reproduce, grounded on the field set ArcInvestigation.create /
// ArcStudy.create / ArcAssay.create expose in the original Python
// implementation.
package arc

import "fmt"

// Person is a contact, author, or other named individual attached to an
// Investigation or Publication.
type Person struct {
	FirstName   string
	LastName    string
	Email       string
	Address     string
	Affiliation string
	Roles       []string
}

// Publication is a literature reference attached to an Investigation.
type Publication struct {
	DOI     string
	Title   string
	Authors string
}

// Comment is a free-text annotation attached to an Investigation, Study,
// or Assay.
type Comment struct {
	Name  string
	Value string
}

// TableCell is one column of a protocol Table: a header name and its
// rendered value.
type TableCell struct {
	Header string
	Value  string
}

// Table is a protocol table attached to a Study (e.g. "Spatial
// Sampling", "Data Acquisition", "Data Processing").
type Table struct {
	Name  string
	Cells []TableCell
}

// Assay is the finest-grained unit of the ARC tree.
type Assay struct {
	ID                 string
	MeasurementType    string
	TechnologyType     string
	TechnologyPlatform string
	Comments           []Comment
}

// Study owns a sequence of registered Assays plus protocol Tables.
type Study struct {
	ID          string
	Title       string
	Description string
	Comments    []Comment
	Tables      []Table

	assays  []*Assay
	assayID map[string]struct{}
}

// AddRegisteredAssay registers a onto the Study, enforcing identifier
// uniqueness within the Study per the ARC tree invariant that "each
// Assay is registered in exactly one Study; identifiers are unique
// within their parent".
func (s *Study) AddRegisteredAssay(a *Assay) error {
	if s.assayID == nil {
		s.assayID = make(map[string]struct{})
	}
	if _, exists := s.assayID[a.ID]; exists {
		return fmt.Errorf("assay %q already registered in study %q", a.ID, s.ID)
	}
	s.assayID[a.ID] = struct{}{}
	s.assays = append(s.assays, a)
	return nil
}

// Assays returns the Study's registered assays in registration order.
func (s *Study) Assays() []*Assay {
	return s.assays
}

// Investigation is the root of one ARC tree.
type Investigation struct {
	ID             string
	Title          string
	Description    string
	SubmissionDate string
	ReleaseDate    string
	Persons        []Person
	Publications   []Publication
	Comments       []Comment

	studies []*Study
	studyID map[string]struct{}
}

// AddRegisteredStudy registers st onto the Investigation, enforcing
// identifier uniqueness within the Investigation.
func (inv *Investigation) AddRegisteredStudy(st *Study) error {
	if inv.studyID == nil {
		inv.studyID = make(map[string]struct{})
	}
	if _, exists := inv.studyID[st.ID]; exists {
		return fmt.Errorf("study %q already registered in investigation %q", st.ID, inv.ID)
	}
	inv.studyID[st.ID] = struct{}{}
	inv.studies = append(inv.studies, st)
	return nil
}

// Studies returns the Investigation's registered studies in
// registration order.
func (inv *Investigation) Studies() []*Study {
	return inv.studies
}
