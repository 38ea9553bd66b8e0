// Package serializer implements the CPU-bound ARC build step of
// spec.md §4.4: given a dataset, build the ARC tree and render it to
// JSON-LD bytes. This runs separately from the pipeline's I/O context
// since the build is CPU-dominant.
package serializer

import (
	"context"
	"fmt"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
)

// BuildInput is whatever a Worker needs to construct one ARC tree. The
// caller supplies a Mapper closure rather than a concrete record type so
// the same Worker serves both the SQL and INSPIRE producers.
type BuildInput struct {
	// Map constructs the ARC Investigation. It must be pure and
	// side-effect free so the worker boundary can drop it freely.
	Map func() (*arc.Investigation, error)
}

// Worker builds one ARC tree and renders it to JSON-LD, returning only
// the rendered bytes — no ARC object crosses back across the call,
// satisfying spec.md §4.4's "drop all intermediate ARC objects before
// returning".
type Worker interface {
	Build(ctx context.Context, in BuildInput) ([]byte, error)
}

// InProcessWorker runs Build synchronously on the calling goroutine. It
// serves tests that don't need worker-pool isolation; both CLI binaries
// use PoolWorker.
type InProcessWorker struct{}

// Build implements Worker.
func (InProcessWorker) Build(ctx context.Context, in BuildInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buildAndRender(in)
}

func buildAndRender(in BuildInput) (out []byte, err error) {
	// A panic while mapping or rendering becomes this record's build
	// failure instead of crashing the run.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("build failed: panic: %v", r)
		}
	}()

	inv, err := in.Map()
	if err != nil {
		return nil, fmt.Errorf("build failed: %w", err)
	}

	out, err = inv.ToROCrateJSONLD()
	if err != nil {
		return nil, fmt.Errorf("build failed: render: %w", err)
	}

	// Drop the tree before returning: only out may cross the worker
	// boundary (spec.md §4.4, §8 "zero handles to ARC objects").
	inv = nil //nolint:ineffassign
	return out, nil
}
