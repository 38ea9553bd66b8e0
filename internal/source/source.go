// Package source implements the paginated, bounded-memory producer over
// the upstream relational database described in spec.md §4.1: it pages
// investigations, batch-fetches their studies and assays to avoid N+1
// queries, and yields one Dataset per investigation in page order.
package source

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Investigation is one row of ARC_Investigation.
type Investigation struct {
	ID             string
	Title          string
	Description    string
	SubmissionTime time.Time
	ReleaseTime    time.Time
}

// Study is one row of ARC_Study.
type Study struct {
	ID              string
	InvestigationID string
	Title           string
	Description     string
	SubmissionTime  time.Time
	ReleaseTime     time.Time
}

// Assay is one row of ARC_Assay.
type Assay struct {
	ID              string
	StudyID         string
	MeasurementType string
	TechnologyType  string
}

// Dataset is one (investigation, studies, assaysByStudy) tuple as
// produced by the streaming source.
type Dataset struct {
	Investigation Investigation
	Studies       []Study
	AssaysByStudy map[string][]Assay
}

// Querier is the minimal database access surface the DB source needs.
// It is deliberately narrow (rather than depending on *sql.DB directly)
// so tests can supply an in-memory fake without a real driver —
// following the teacher's interface-first sink/dispatcher pattern
// (pkg/types/interfaces.go).
type Querier interface {
	// FetchInvestigations returns up to limit investigation rows
	// starting at offset, in a stable order. An empty, nil-error result
	// signals end of stream.
	FetchInvestigations(ctx context.Context, offset, limit int) ([]Investigation, error)

	// FetchStudiesByInvestigationIDs returns every study row whose
	// investigation_id is in ids.
	FetchStudiesByInvestigationIDs(ctx context.Context, ids []string) ([]Study, error)

	// FetchAssaysByStudyIDs returns every assay row whose study_id is in
	// ids.
	FetchAssaysByStudyIDs(ctx context.Context, ids []string) ([]Assay, error)
}

// DBSource is a pull-based, not-restartable producer over a Querier. It
// fetches in pages sized by batchSize and never materializes more than
// the current page in memory.
type DBSource struct {
	q         Querier
	batchSize int
	offset    int
	done      bool
	pending   []Dataset
}

// NewDBSource builds a DBSource reading batchSize investigations at a
// time. batchSize must be >= 1.
func NewDBSource(q Querier, batchSize int) *DBSource {
	if batchSize < 1 {
		batchSize = 1
	}
	return &DBSource{q: q, batchSize: batchSize}
}

// Next returns the next Dataset, or (nil, io.EOF) once the source is
// exhausted. A transient error fetching a page's children fails the
// entire page: no partial page is ever yielded.
func (s *DBSource) Next(ctx context.Context) (*Dataset, error) {
	if len(s.pending) > 0 {
		d := s.pending[0]
		s.pending = s.pending[1:]
		return &d, nil
	}

	if s.done {
		return nil, io.EOF
	}

	for {
		investigations, err := s.q.FetchInvestigations(ctx, s.offset, s.batchSize)
		if err != nil {
			s.done = true
			return nil, fmt.Errorf("fetch investigations: %w", err)
		}
		if len(investigations) == 0 {
			s.done = true
			return nil, io.EOF
		}
		s.offset += len(investigations)

		page, err := s.buildPage(ctx, investigations)
		if err != nil {
			s.done = true
			return nil, err
		}

		if len(page) == 0 {
			continue
		}

		s.pending = page[1:]
		d := page[0]
		return &d, nil
	}
}

func (s *DBSource) buildPage(ctx context.Context, investigations []Investigation) ([]Dataset, error) {
	ids := make([]string, len(investigations))
	for i, inv := range investigations {
		ids[i] = inv.ID
	}

	studies, err := s.q.FetchStudiesByInvestigationIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch studies: %w", err)
	}

	studiesByInv := make(map[string][]Study)
	studyIDs := make([]string, 0, len(studies))
	for _, st := range studies {
		studiesByInv[st.InvestigationID] = append(studiesByInv[st.InvestigationID], st)
		studyIDs = append(studyIDs, st.ID)
	}

	assaysByStudy := make(map[string][]Assay)
	if len(studyIDs) > 0 {
		assays, err := s.q.FetchAssaysByStudyIDs(ctx, studyIDs)
		if err != nil {
			return nil, fmt.Errorf("fetch assays: %w", err)
		}
		for _, a := range assays {
			assaysByStudy[a.StudyID] = append(assaysByStudy[a.StudyID], a)
		}
	}

	page := make([]Dataset, 0, len(investigations))
	for _, inv := range investigations {
		page = append(page, Dataset{
			Investigation: inv,
			Studies:       studiesByInv[inv.ID],
			AssaysByStudy: assaysByStudy,
		})
	}
	return page, nil
}
