// Package errs defines the error kinds used across the ARC middleware.
//
// Every kind is a sentinel value. An error wrapped with
// fmt.Errorf("%w: ...", Kind) can be classified with errors.Is(err, Kind)
// without parsing strings. internal/config wraps Configuration around its
// load and validation errors; no other package in this module wraps any
// of these kinds.
package errs

import "errors"

// Kinds from the error handling design: configuration and connection
// errors are fatal at startup; everything else is per-record and must
// never abort a run.
var (
	// Configuration covers missing/invalid config files and missing
	// certificates. Fatal at startup.
	Configuration = errors.New("configuration error")

	// Connection covers DB connect/cursor failures and CSW connect
	// failures. Fatal; the run aborts but still emits a report.
	Connection = errors.New("connection error")

	// SemanticRecord covers upstream records that violate invariants
	// (missing title/abstract, non-string fields). Non-fatal.
	SemanticRecord = errors.New("semantic record error")

	// SizeLimit covers studies/assays exceeding configured caps.
	// Non-fatal.
	SizeLimit = errors.New("size limit exceeded")

	// BuildTimeout covers an ARC build exceeding arc_generation_timeout.
	// Non-fatal.
	BuildTimeout = errors.New("build timed out")

	// BuildFailed covers any other ARC-build failure. Non-fatal.
	BuildFailed = errors.New("build failed")

	// HTTP covers a non-2xx response from the downstream API. Non-fatal.
	HTTP = errors.New("http error")

	// Request covers a transport-level failure talking to the
	// downstream API. Non-fatal.
	Request = errors.New("request error")

	// Unexpected covers anything caught at a task boundary that doesn't
	// fit another kind. Non-fatal; always logged with full context.
	Unexpected = errors.New("unexpected error")
)

// IsFatal reports whether an error kind should abort the run at startup
// rather than simply marking one record failed.
func IsFatal(err error) bool {
	return errors.Is(err, Configuration) || errors.Is(err, Connection)
}
