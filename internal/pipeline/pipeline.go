// Package pipeline implements the Scheduler of spec.md §4.5: the heart
// of the middleware, combining a bounded task set, a semaphore, a
// record source, a serializer worker, and an HTTP uploader into the
// Received → Validated → Building → Uploading → Done/Failed state
// machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/apiclient"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/serializer"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/telemetry"
)

// Record is one unit of work the scheduler processes: an identifier for
// reporting, a study/assay count for validation, and a Map closure that
// builds the ARC tree (deferred so the pipeline stays source-agnostic
// across the DB and CSW producers).
type Record struct {
	ID         string
	NumStudies int
	NumAssays  int
	Map        func() (*arc.Investigation, error)
}

// Source is the minimal pull interface the scheduler consumes. cmd/sql2arc
// adapts internal/source.DBSource to it, and cmd/inspire2arc adapts the
// internal/harvester.Item stream.
type Source interface {
	Next(ctx context.Context) (*Record, error)
}

// Params are the scheduler's tunable limits, mirroring spec.md §6's
// DB-variant configuration fields.
type Params struct {
	MaxConcurrentTasks   int
	MaxStudies           int
	MaxAssays            int
	ARCGenerationTimeout time.Duration
}

// Stats is the mutable run report. Each per-record goroutine updates it
// under mu; serializer workers never see it, and Run returns a Snapshot
// once every task has finished.
type Stats struct {
	mu              sync.Mutex
	FoundDatasets   int
	TotalStudies    int
	TotalAssays     int
	FailedDatasets  int
	FailedIDs       []string
	DurationSeconds float64
}

func (s *Stats) recordSuccess(studies, assays int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FoundDatasets++
	s.TotalStudies += studies
	s.TotalAssays += assays
}

func (s *Stats) recordFailure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FoundDatasets++
	s.FailedDatasets++
	s.FailedIDs = append(s.FailedIDs, id)
}

// Snapshot returns a stable, sorted copy of the run stats.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), s.FailedIDs...)
	sort.Strings(ids)
	return Stats{
		FoundDatasets:   s.FoundDatasets,
		TotalStudies:    s.TotalStudies,
		TotalAssays:     s.TotalAssays,
		FailedDatasets:  s.FailedDatasets,
		FailedIDs:       ids,
		DurationSeconds: s.DurationSeconds,
	}
}

// Uploader is the upload-step dependency; apiclient.Client satisfies it.
type Uploader interface {
	CreateOrUpdateArc(ctx context.Context, rdi string, arcJSONLD []byte) (*apiclient.UploadResponse, error)
}

// Scheduler is the pipeline's single producer goroutine plus its bounded
// worker fan-out.
type Scheduler struct {
	params   Params
	worker   serializer.Worker
	uploader Uploader
	rdi      string
	log      *logrus.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
}

// NewScheduler builds a Scheduler. MaxConcurrentTasks defaults to 1 when
// non-positive.
func NewScheduler(params Params, worker serializer.Worker, uploader Uploader, rdi string, log *logrus.Logger, m *telemetry.Metrics) *Scheduler {
	if params.MaxConcurrentTasks < 1 {
		params.MaxConcurrentTasks = 1
	}
	return &Scheduler{params: params, worker: worker, uploader: uploader, rdi: rdi, log: log, metrics: m}
}

// WithTracer attaches t so every processed record is wrapped in its own
// span (spec.md §5 "tracing provider once" — acquired once per run,
// handed to the scheduler, spans started per record). Returns s for
// chaining; a nil or never-called WithTracer leaves tracing a no-op.
func (s *Scheduler) WithTracer(t *telemetry.Tracer) *Scheduler {
	s.tracer = t
	return s
}

// Run drives the full concurrency shape of spec.md §4.5: a single
// producer goroutine pulls from src, gates on a bounded task set via a
// weighted semaphore (the intentional set-cap + semaphore redundancy),
// spawns one goroutine per record, and awaits every outstanding task
// before returning. Cancelling ctx stops the producer and propagates
// into every outstanding record's build/upload.
func (s *Scheduler) Run(ctx context.Context, src Source) (Stats, error) {
	runStart := time.Now()
	stats := &Stats{}
	sem := semaphore.NewWeighted(int64(s.params.MaxConcurrentTasks))

	var wg sync.WaitGroup

	for {
		if err := ctx.Err(); err != nil {
			break
		}

		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			wg.Wait()
			stats.mu.Lock()
			stats.DurationSeconds = time.Since(runStart).Seconds()
			stats.mu.Unlock()
			return stats.Snapshot(), fmt.Errorf("pull record: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordsFound.Inc()
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		if s.metrics != nil {
			s.metrics.InFlightTasks.Inc()
		}
		wg.Add(1)
		go func(rec *Record) {
			defer wg.Done()
			defer sem.Release(1)
			if s.metrics != nil {
				defer s.metrics.InFlightTasks.Dec()
			}
			s.processRecord(ctx, rec, stats)
		}(rec)
	}

	wg.Wait()
	stats.mu.Lock()
	stats.DurationSeconds = time.Since(runStart).Seconds()
	stats.mu.Unlock()
	return stats.Snapshot(), nil
}

// processRecord implements the per-record state machine: Received →
// (validated size) → Building → (serialized) → Uploading → Done/Failed.
func (s *Scheduler) processRecord(ctx context.Context, rec *Record, stats *Stats) {
	logger := s.log
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var span oteltrace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Tracer().Start(ctx, "process_record", oteltrace.WithAttributes(
			attribute.String("record.id", rec.ID),
			attribute.Int("record.num_studies", rec.NumStudies),
			attribute.Int("record.num_assays", rec.NumAssays),
		))
		defer span.End()
	}
	fail := func(reason string) {
		stats.recordFailure(rec.ID)
		s.observeFailure(reason)
		if span != nil {
			span.SetAttributes(attribute.String("record.failure_reason", reason))
		}
	}

	if rec.NumStudies > s.params.MaxStudies || rec.NumAssays > s.params.MaxAssays {
		logger.WithFields(logrus.Fields{
			"record_id": rec.ID, "studies": rec.NumStudies, "assays": rec.NumAssays,
		}).Warn("record exceeds size limits; skipping")
		fail("size_limit")
		return
	}

	buildCtx := ctx
	var cancel context.CancelFunc
	if s.params.ARCGenerationTimeout > 0 {
		buildCtx, cancel = context.WithTimeout(ctx, s.params.ARCGenerationTimeout)
		defer cancel()
	}

	if s.metrics != nil {
		s.metrics.InFlightBuilds.Inc()
	}
	start := time.Now()
	doc, err := s.build(buildCtx, rec)
	if s.metrics != nil {
		s.metrics.InFlightBuilds.Dec()
		s.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.WithError(err).WithField("record_id", rec.ID).Warn("arc build failed")
		fail("build_failed")
		return
	}

	if ctx.Err() != nil {
		// Cancellation observed before upload: no upload may begin after
		// cancellation (spec.md §4.5 "Cancellation").
		stats.recordFailure(rec.ID)
		if span != nil {
			span.SetAttributes(attribute.String("record.failure_reason", "cancelled"))
		}
		return
	}

	uploadStart := time.Now()
	_, err = s.uploader.CreateOrUpdateArc(ctx, s.rdi, doc)
	if s.metrics != nil {
		s.metrics.UploadDuration.Observe(time.Since(uploadStart).Seconds())
	}
	if err != nil {
		logger.WithError(err).WithField("record_id", rec.ID).Warn("arc upload failed")
		fail("upload_failed")
		return
	}

	stats.recordSuccess(rec.NumStudies, rec.NumAssays)
	if s.metrics != nil {
		s.metrics.RecordsUploaded.Inc()
	}
}

func (s *Scheduler) build(ctx context.Context, rec *Record) ([]byte, error) {
	return s.worker.Build(ctx, serializer.BuildInput{Map: rec.Map})
}

func (s *Scheduler) observeFailure(reason string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordsFailed.WithLabelValues(reason).Inc()
}
