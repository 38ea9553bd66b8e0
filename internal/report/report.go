// Package report implements the report emitter of spec.md §4.7: after
// the pipeline completes (including on failures), render the run's
// Stats as a JSON-LD Activity/CreateAction document.
package report

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// Stats is the subset of a pipeline run's outcome the report needs. It
// mirrors pipeline.Stats's exported fields without importing the
// pipeline package, keeping report a leaf dependency.
type Stats struct {
	FoundDatasets   int
	TotalStudies    int
	TotalAssays     int
	FailedDatasets  int
	FailedIDs       []string
	DurationSeconds float64
}

const (
	statusCompleted = "schema:CompletedActionStatus"
	statusFailed    = "schema:FailedActionStatus"
)

// ToJSONLD renders s as an Activity/CreateAction JSON-LD document,
// reproducing the exact shape of the original implementation's
// ProcessingStats.to_jsonld: the same @context aliasing (schema, prov,
// void, xsd), PTx.xxS duration, sorted failed_ids, and the conditional
// prov:used node naming the upstream RDI.
func (s Stats) ToJSONLD(rdi, rdiURL string) ([]byte, error) {
	status := statusCompleted
	if s.FailedDatasets != 0 {
		status = statusFailed
	}

	failedIDs := append([]string(nil), s.FailedIDs...)
	sort.Strings(failedIDs)
	if failedIDs == nil {
		failedIDs = []string{}
	}

	doc := map[string]any{
		"@context": map[string]any{
			"schema": "http://schema.org/",
			"prov":   "http://www.w3.org/ns/prov#",
			"void":   "http://rdfs.org/ns/void#",
			"xsd":    "http://www.w3.org/2001/XMLSchema#",
			"duration": map[string]any{
				"@id": "schema:duration", "@type": "schema:Duration",
			},
			"failed_ids": map[string]any{
				"@id": "schema:error", "@container": "@set",
			},
			"status": map[string]any{"@id": "schema:actionStatus"},
			"found_datasets": map[string]any{
				"@id": "void:entities", "@type": "xsd:integer",
			},
			"total_studies": map[string]any{
				"@id": "schema:result", "@type": "xsd:integer",
			},
			"total_assays": map[string]any{
				"@id": "schema:result", "@type": "xsd:integer",
			},
		},
		"@type":       []string{"prov:Activity", "schema:CreateAction"},
		"schema:name": "FAIRagro Middleware Conversion Run",
		"schema:instrument": map[string]any{
			"@type":       "schema:SoftwareApplication",
			"schema:name": "FAIRagro Middleware",
		},
		"status":           status,
		"duration":         fmt.Sprintf("PT%.2fS", s.DurationSeconds),
		"duration_seconds": round2(s.DurationSeconds),
		"found_datasets":   s.FoundDatasets,
		"total_studies":    s.TotalStudies,
		"total_assays":     s.TotalAssays,
		"failed_datasets":  s.FailedDatasets,
		"failed_ids":       failedIDs,
	}

	if rdi != "" && rdiURL != "" {
		doc["prov:used"] = map[string]any{
			"@id":               rdiURL,
			"@type":             "schema:Organization",
			"schema:identifier": rdi,
			"schema:name":       fmt.Sprintf("Research Data Infrastructure: %s", rdi),
		}
	}

	out, err := sonic.ConfigStd.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render report json-ld: %w", err)
	}
	return out, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
