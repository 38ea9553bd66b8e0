// Command inspire2arc harvests INSPIRE/ISO 19139 metadata records from an
// OGC CSW catalog, maps each into an ARC entity tree, serializes it to
// JSON-LD, and uploads it to a downstream ARC store over mutual TLS.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/apiclient"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/arcmapper"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/cliutil"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/config"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/harvester"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/pipeline"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/report"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/serializer"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/telemetry"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("inspire2arc", flag.ContinueOnError)
	var configFile string
	var showVersion bool
	fs.StringVar(&configFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&configFile, "c", "config.yaml", "Path to configuration file (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&showVersion, "v", false, "Print version and exit (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if showVersion {
		fmt.Println("inspire2arc", version)
		return 0
	}

	cfg, err := config.LoadCSWConfig(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}

	logger := telemetry.NewLogger(cfg.LogLevel)
	metrics := telemetry.NewMetrics("inspire2arc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := telemetry.NewTracer(ctx, "inspire2arc", telemetry.TracingConfig{
		Endpoint:        cfg.OTel.Endpoint,
		LogConsoleSpans: cfg.OTel.LogConsoleSpans,
		LogLevel:        cfg.OTel.LogLevel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("shutdown signal received, draining in-flight work")
		cancel()
	}()

	client, err := apiclient.NewClient(apiclient.Config{
		APIURL:         cfg.APIClient.APIURL,
		ClientCertPath: cfg.APIClient.ClientCertPath,
		ClientKeyPath:  cfg.APIClient.ClientKeyPath,
		CACertPath:     cfg.APIClient.CACertPath,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}
	defer client.Close()

	var cswOpts []harvester.Option
	if cfg.Query != "" {
		cswOpts = append(cswOpts, harvester.WithRawXML(cfg.Query))
	}
	csw := harvester.NewCSWClient(cfg.CSWURL, logger, cfg.BatchSize, cswOpts...)

	pool := serializer.NewPoolWorker(cfg.MaxConcurrentTasks, cfg.MaxConcurrentTasks*4, logger)
	defer pool.Close()

	sched := pipeline.NewScheduler(pipeline.Params{
		MaxConcurrentTasks: cfg.MaxConcurrentTasks,
		MaxStudies:         1,
		MaxAssays:          1,
	}, pool, client, cfg.RDI, logger, metrics).WithTracer(tracer)

	items, harvestErrCh := csw.Harvest(ctx)
	stats, err := sched.Run(ctx, &harvesterSource{items: items})
	reportStats := report.Stats{
		FoundDatasets:   stats.FoundDatasets,
		TotalStudies:    stats.TotalStudies,
		TotalAssays:     stats.TotalAssays,
		FailedDatasets:  stats.FailedDatasets,
		FailedIDs:       stats.FailedIDs,
		DurationSeconds: stats.DurationSeconds,
	}
	if err != nil {
		logger.WithError(err).Error("pipeline aborted")
		fmt.Fprintln(os.Stderr, "connection error:", err)
		emitReport(logger, reportStats, cfg.RDI)
		return 1
	}
	if harvestErr := <-harvestErrCh; harvestErr != nil && harvestErr != context.Canceled {
		logger.WithError(harvestErr).Error("harvest aborted")
		fmt.Fprintln(os.Stderr, "connection error:", harvestErr)
		emitReport(logger, reportStats, cfg.RDI)
		return 1
	}

	cliutil.PrintSummary("inspire2arc", stats)
	emitReport(logger, reportStats, cfg.RDI)
	return 0
}

// emitReport prints the JSON-LD run report to stdout regardless of how
// the run ended, so a connection-error exit still carries the precise
// list of failed record ids (spec.md §7).
func emitReport(logger *logrus.Logger, stats report.Stats, rdi string) {
	doc, err := stats.ToJSONLD(rdi, "")
	if err != nil {
		logger.WithError(err).Error("failed to render report")
		return
	}
	fmt.Println(string(doc))
}

// harvesterSource adapts the channel pair returned by
// harvester.CSWClient.Harvest into pipeline.Source. A harvester.Item
// carrying a RecordError is translated into a Record whose Map always
// fails, so the scheduler marks it failed without ever reaching the
// uploader — the CSW per-record semantic-error contract (spec.md §4.2)
// folded into the same Received→Failed state machine the DB source uses.
type harvesterSource struct {
	items <-chan harvester.Item
}

func (h *harvesterSource) Next(ctx context.Context) (*pipeline.Record, error) {
	select {
	case it, ok := <-h.items:
		if !ok {
			return nil, io.EOF
		}
		if it.Err != nil {
			recErr := it.Err
			return &pipeline.Record{
				ID: recErr.ID,
				Map: func() (*arc.Investigation, error) {
					return nil, recErr
				},
			}, nil
		}
		rec := it.Record
		return &pipeline.Record{
			ID:         rec.Identifier,
			NumStudies: 1,
			NumAssays:  1,
			Map: func() (*arc.Investigation, error) {
				return arcmapper.FromInspireRecord(rec)
			},
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
