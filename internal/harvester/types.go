// Package harvester implements the CSW-based alternate producer of
// spec.md §4.2: it pulls INSPIRE/ISO 19139 metadata records page by page
// and yields a heterogeneous stream of either a parsed InspireRecord or
// a RecordError, never raising for a per-record problem.
package harvester

// Contact is a metadata or resource point-of-contact as extracted from
// an ISO 19139 CI_ResponsibleParty.
type Contact struct {
	Name           string
	Organization   string
	Email          string
	Role           string
	Type           string // "metadata" or "resource"
	Phone          string
	Address        string
	City           string
	Region         string
	PostCode       string
	Country        string
	Position       string
	OnlineResource string
}

// ResourceIdentifier is one MD_Identifier carried on the resource
// citation (RS_Identifier / MD_Identifier), used by the mapper to
// detect DOI/ISBN-style publications.
type ResourceIdentifier struct {
	Code      string
	Codespace string
	URL       string
}

// CitationDate is one CI_Date entry on the resource citation.
type CitationDate struct {
	Date string
	Type string // "creation", "publication", "revision"
}

// ConformanceResult is one DQ_ConformanceResult from the data quality
// report. Degree is nil when the source record's pass element is absent
// or not a recognized boolean literal ("Unknown" degree).
type ConformanceResult struct {
	Title  string
	Degree *bool
}

// DistributionFormat is one MD_Format carried on the distribution info.
type DistributionFormat struct {
	Name    string
	Version string
}

// OnlineResource is one CI_OnlineResource (transfer options or contact
// online resource).
type OnlineResource struct {
	URL         string
	Name        string
	Description string
}

// BoundingBox is the geographic extent in WGS84-ish decimal degrees, as
// carried on EX_GeographicBoundingBox.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// TemporalExtent is the optional [Start, End) window on EX_TemporalExtent.
// Either bound may be empty when the source record only specifies one
// side.
type TemporalExtent struct {
	Start string
	End   string
}

// InspireRecord is the intermediate representation an ISO 19139 record
// is parsed into, deliberately flat and defensively populated: every
// field extraction failure yields a zero value rather than an error, per
// spec.md §4.2's "Extraction policy".
type InspireRecord struct {
	Identifier string
	Title      string
	Abstract   string
	DateStamp  string

	Keywords        []string
	TopicCategories []string
	Contacts        []Contact

	Lineage                 string
	Purpose                 string
	SupplementalInformation string

	SpatialExtent             *BoundingBox
	SpatialResolutionScale    string
	SpatialResolutionDistance string
	TemporalExtent            *TemporalExtent

	AccessConstraints         []string
	UseConstraints            []string
	ClassificationConstraints []string
	OtherConstraints          []string

	ResourceIdentifiers []ResourceIdentifier
	CitationDates       []CitationDate
	ConformanceResults  []ConformanceResult
	DistributionFormats []DistributionFormat
	OnlineResources     []OnlineResource
	GraphicOverviews    []string
	ReferenceSystems    []string

	ParentIdentifier         string
	HierarchyLevel           string
	DatasetURI               string
	Language                 string
	CharacterSet             string
	Edition                  string
	Status                   string
	MetadataStandardName     string
	MetadataStandardVersion  string
}

// RecordError describes a per-record semantic failure (spec.md §4.2
// step 4): a missing title or a missing abstract. It
// is never returned as a Go error — it is carried inline in an Item so
// the harvest sequence never stops for one bad record.
type RecordError struct {
	ID    string
	Cause string
}

func (e *RecordError) Error() string {
	return "inspire record " + e.ID + ": " + e.Cause
}

// Item is the sum type a harvest yields: exactly one of Record or Err is
// non-nil.
type Item struct {
	Record *InspireRecord
	Err    *RecordError
}
