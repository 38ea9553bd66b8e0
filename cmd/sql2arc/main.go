// Command sql2arc streams ARC_Investigation/ARC_Study/ARC_Assay rows out
// of a relational database, maps each investigation into an ARC entity
// tree, serializes it to JSON-LD, and uploads it to a downstream ARC
// store over mutual TLS.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/sirupsen/logrus"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/apiclient"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/arc"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/arcmapper"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/cliutil"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/config"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/pipeline"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/report"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/serializer"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/source"
	"github.com/fairagro/m4.2-inspire-to-arc/internal/telemetry"
)

// version is stamped at build time via -ldflags, following the teacher's
// plain-string version convention (cmd/main.go has none of its own, so
// this mirrors kraklabs-cie's --version flag instead).
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sql2arc", flag.ContinueOnError)
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
		fmt.Println("sql2arc", version)
		return 0
	}

	cfg, err := config.LoadDBConfig(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}

	logger := telemetry.NewLogger(cfg.LogLevel)
	metrics := telemetry.NewMetrics("sql2arc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := telemetry.NewTracer(ctx, "sql2arc", telemetry.TracingConfig{
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

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connection error:", err)
		return 1
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "connection error:", err)
		return 1
	}

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

	pool := serializer.NewPoolWorker(cfg.MaxConcurrentARCBuilds, cfg.MaxConcurrentTasks, logger)
	defer pool.Close()

	querier := source.NewSQLQuerier(db)
	dbSource := source.NewDBSource(querier, cfg.DBBatchSize)

	sched := pipeline.NewScheduler(pipeline.Params{
		MaxConcurrentTasks:   cfg.MaxConcurrentTasks,
		MaxStudies:           cfg.MaxStudies,
		MaxAssays:            cfg.MaxAssays,
		ARCGenerationTimeout: cfg.ARCGenerationTimeout,
	}, pool, client, cfg.RDI, logger, metrics).WithTracer(tracer)

	stats, err := sched.Run(ctx, &datasetSource{src: dbSource})
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
		emitReport(logger, reportStats, cfg.RDI, cfg.RDIURL)
		return 1
	}

	cliutil.PrintSummary("sql2arc", stats)
	emitReport(logger, reportStats, cfg.RDI, cfg.RDIURL)
	return 0
}

// emitReport prints the JSON-LD run report to stdout regardless of how
// the run ended, so a connection-error exit still carries the precise
// list of failed record ids (spec.md §7).
func emitReport(logger *logrus.Logger, stats report.Stats, rdi, rdiURL string) {
	doc, err := stats.ToJSONLD(rdi, rdiURL)
	if err != nil {
		logger.WithError(err).Error("failed to render report")
		return
	}
	fmt.Println(string(doc))
}

// datasetSource adapts source.DBSource (which yields *source.Dataset) to
// pipeline.Source (which yields *pipeline.Record), deferring the
// investigation-to-ARC mapping into the Record's Map closure so it runs
// inside the worker pool rather than on the producer goroutine.
type datasetSource struct {
	src *source.DBSource
}

func (d *datasetSource) Next(ctx context.Context) (*pipeline.Record, error) {
	ds, err := d.src.Next(ctx)
	if err != nil {
		return nil, err
	}

	numAssays := 0
	for _, assays := range ds.AssaysByStudy {
		numAssays += len(assays)
	}

	return &pipeline.Record{
		ID:         ds.Investigation.ID,
		NumStudies: len(ds.Studies),
		NumAssays:  numAssays,
		Map: func() (*arc.Investigation, error) {
			return arcmapper.FromDatasetRow(ds)
		},
	}, nil
}

