package config

import (
	"fmt"
	"time"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/errs"
)

// APIClientConfig configures the downstream mTLS client.
type APIClientConfig struct {
	APIURL         string `yaml:"api_url"`
	ClientCertPath string `yaml:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path"`
	CACertPath     string `yaml:"ca_cert_path"`
}

// OTelConfig mirrors the "otel" block shared by both binaries.
type OTelConfig struct {
	Endpoint        string `yaml:"endpoint"`
	LogConsoleSpans bool   `yaml:"log_console_spans"`
	LogLevel        string `yaml:"log_level"`
}

// Common holds the fields present in every middleware config.
type Common struct {
	LogLevel  string
	APIClient APIClientConfig
	OTel      OTelConfig
}

func loadCommon(w *Wrapper) Common {
	apiSub := w.Sub("api_client")
	otelSub := w.Sub("otel")
	return Common{
		LogLevel: w.String("INFO", "log_level"),
		APIClient: APIClientConfig{
			APIURL:         apiSub.String("", "api_url"),
			ClientCertPath: apiSub.String("", "client_cert_path"),
			ClientKeyPath:  apiSub.String("", "client_key_path"),
			CACertPath:     apiSub.String("", "ca_cert_path"),
		},
		OTel: OTelConfig{
			Endpoint:        otelSub.String("", "endpoint"),
			LogConsoleSpans: otelSub.Bool(false, "log_console_spans"),
			LogLevel:        otelSub.String("", "log_level"),
		},
	}
}

// DBConfig is the configuration schema for the sql2arc binary.
type DBConfig struct {
	Common

	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int

	RDI    string
	RDIURL string

	MaxConcurrentARCBuilds int
	MaxConcurrentTasks     int
	DBBatchSize            int
	MaxStudies             int
	MaxAssays              int
	ARCGenerationTimeout   time.Duration
}

// LoadDBConfig loads and validates the sql2arc configuration from path,
// applying SQL2ARC_* environment and /run/secrets/sql2arc_* overrides.
func LoadDBConfig(path string) (*DBConfig, error) {
	w, err := LoadWrapper("SQL2ARC", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.Configuration, err)
	}

	maxBuilds := w.Int(0, "max_concurrent_arc_builds")
	if maxBuilds < 1 {
		maxBuilds = 1
	}

	cfg := &DBConfig{
		Common: loadCommon(w),

		DBName:     w.String("", "db_name"),
		DBUser:     w.String("", "db_user"),
		DBPassword: w.String("", "db_password"),
		DBHost:     w.String("", "db_host"),
		DBPort:     w.Int(5432, "db_port"),

		RDI:    w.String("", "rdi"),
		RDIURL: w.String("", "rdi_url"),

		MaxConcurrentARCBuilds: maxBuilds,
		MaxConcurrentTasks:     w.Int(4*maxBuilds, "max_concurrent_tasks"),
		DBBatchSize:            w.Int(100, "db_batch_size"),
		MaxStudies:             w.Int(5000, "max_studies"),
		MaxAssays:              w.Int(10000, "max_assays"),
		ARCGenerationTimeout:   time.Duration(w.Int(30, "arc_generation_timeout_minutes")) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.Configuration, err)
	}
	return cfg, nil
}

func (c *DBConfig) validate() error {
	if c.DBName == "" {
		return fmt.Errorf("db_name is required")
	}
	if c.DBUser == "" {
		return fmt.Errorf("db_user is required")
	}
	if c.DBHost == "" {
		return fmt.Errorf("db_host is required")
	}
	if c.RDI == "" {
		return fmt.Errorf("rdi is required")
	}
	if c.APIClient.APIURL == "" {
		return fmt.Errorf("api_client.api_url is required")
	}
	if c.MaxConcurrentARCBuilds < 1 {
		return fmt.Errorf("max_concurrent_arc_builds must be >= 1")
	}
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("max_concurrent_tasks must be >= 1")
	}
	if c.DBBatchSize < 1 {
		return fmt.Errorf("db_batch_size must be >= 1")
	}
	if c.MaxStudies < 1 {
		return fmt.Errorf("max_studies must be >= 1")
	}
	if c.MaxAssays < 1 {
		return fmt.Errorf("max_assays must be >= 1")
	}
	if c.ARCGenerationTimeout < time.Minute {
		return fmt.Errorf("arc_generation_timeout_minutes must be >= 1")
	}
	return nil
}

// CSWConfig is the configuration schema for the inspire2arc binary.
type CSWConfig struct {
	Common

	CSWURL             string
	RDI                string
	BatchSize          int
	MaxConcurrentTasks int
	Query              string
}

// LoadCSWConfig loads and validates the inspire2arc configuration from
// path, applying INSPIRE2ARC_* environment and
// /run/secrets/inspire2arc_* overrides.
func LoadCSWConfig(path string) (*CSWConfig, error) {
	w, err := LoadWrapper("INSPIRE2ARC", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.Configuration, err)
	}

	cfg := &CSWConfig{
		Common:             loadCommon(w),
		CSWURL:             w.String("", "csw_url"),
		RDI:                w.String("inspire-import", "rdi"),
		BatchSize:          w.Int(10, "batch_size"),
		MaxConcurrentTasks: w.Int(4, "max_concurrent_tasks"),
		Query:              w.String("", "query"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.Configuration, err)
	}
	return cfg, nil
}

func (c *CSWConfig) validate() error {
	if c.CSWURL == "" {
		return fmt.Errorf("csw_url is required")
	}
	if c.APIClient.APIURL == "" {
		return fmt.Errorf("api_client.api_url is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1")
	}
	if c.BatchSize > 10 {
		c.BatchSize = 10
	}
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("max_concurrent_tasks must be >= 1")
	}
	return nil
}
