package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLQuerier implements Querier against a *sql.DB, following the table
// layout of spec.md §6: ARC_Investigation(id,title,description,
// submission_time,release_time), ARC_Study(id,investigation_id,...),
// ARC_Assay(id,study_id,measurement_type,technology_type).
//
// No example repo in the retrieval pack imports a SQL driver, so this
// component is grounded on database/sql's own idioms rather than a pack
// file; see DESIGN.md.
type SQLQuerier struct {
	db *sql.DB
}

// NewSQLQuerier wraps an already-open *sql.DB. The caller owns the
// connection's lifecycle.
func NewSQLQuerier(db *sql.DB) *SQLQuerier {
	return &SQLQuerier{db: db}
}

// FetchInvestigations implements Querier.
func (q *SQLQuerier) FetchInvestigations(ctx context.Context, offset, limit int) ([]Investigation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, title, description, submission_time, release_time
		FROM "ARC_Investigation"
		ORDER BY id
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query investigations: %w", err)
	}
	defer rows.Close()

	var out []Investigation
	for rows.Next() {
		var inv Investigation
		if err := rows.Scan(&inv.ID, &inv.Title, &inv.Description, &inv.SubmissionTime, &inv.ReleaseTime); err != nil {
			return nil, fmt.Errorf("scan investigation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// FetchStudiesByInvestigationIDs implements Querier.
func (q *SQLQuerier) FetchStudiesByInvestigationIDs(ctx context.Context, ids []string) ([]Study, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, investigation_id, title, description, submission_time, release_time
		FROM "ARC_Study"
		WHERE investigation_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query studies: %w", err)
	}
	defer rows.Close()

	var out []Study
	for rows.Next() {
		var st Study
		if err := rows.Scan(&st.ID, &st.InvestigationID, &st.Title, &st.Description, &st.SubmissionTime, &st.ReleaseTime); err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// FetchAssaysByStudyIDs implements Querier.
func (q *SQLQuerier) FetchAssaysByStudyIDs(ctx context.Context, ids []string) ([]Assay, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, study_id, measurement_type, technology_type
		FROM "ARC_Assay"
		WHERE study_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query assays: %w", err)
	}
	defer rows.Close()

	var out []Assay
	for rows.Next() {
		var a Assay
		if err := rows.Scan(&a.ID, &a.StudyID, &a.MeasurementType, &a.TechnologyType); err != nil {
			return nil, fmt.Errorf("scan assay: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
