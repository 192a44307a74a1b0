// Package config loads the console configuration. Values come from defaults,
// then an optional YAML file, then CARDTXN_* environment variables; commands
// apply their flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceOData    = "odata"
	SourceBigQuery = "bigquery"
	SourceFile     = "file"
)

// Export kinds.
const (
	ExportLocal = "local"
	ExportGCS   = "gcs"
)

// Classifier kinds.
const (
	ClassifierRules  = "rules"
	ClassifierGemini = "gemini"
)

// Config is the full console configuration.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// AuthToken enables bearer-token checks on /api routes when set.
	AuthToken string `yaml:"auth_token"`

	Source SourceConfig `yaml:"source"`
	Export ExportConfig `yaml:"export"`
	Triage TriageConfig `yaml:"triage"`
}

// SourceConfig selects where transactions are read from.
type SourceConfig struct {
	Kind       string        `yaml:"kind"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`

	ODataURL      string `yaml:"odata_url"`
	ODataUser     string `yaml:"odata_user"`
	ODataPassword string `yaml:"odata_password"`
	ODataClient   string `yaml:"odata_client"`

	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`

	// Location is a directory or gs://bucket/prefix holding <collection>.json.
	Location string `yaml:"location"`
}

// ExportConfig selects where form documents are stored.
type ExportConfig struct {
	Kind   string `yaml:"kind"`
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// TriageConfig controls query classification.
type TriageConfig struct {
	Classifier string        `yaml:"classifier"`
	Model      string        `yaml:"model"`
	QueueSize  int           `yaml:"queue_size"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "console",
		Source: SourceConfig{
			Kind:       SourceOData,
			Collection: "zv_prod_card_txn",
			Timeout:    30 * time.Second,
		},
		Export: ExportConfig{
			Kind: ExportLocal,
			Dir:  "exports",
		},
		Triage: TriageConfig{
			Classifier: ClassifierRules,
			QueueSize:  100,
			MaxRetries: 3,
			Backoff:    time.Second,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment read through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("Load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Load: parse %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"CARDTXN_PORT":           &cfg.Port,
		"CARDTXN_LOG_LEVEL":      &cfg.LogLevel,
		"CARDTXN_LOG_FORMAT":     &cfg.LogFormat,
		"CARDTXN_AUTH_TOKEN":     &cfg.AuthToken,
		"CARDTXN_SOURCE":         &cfg.Source.Kind,
		"CARDTXN_COLLECTION":     &cfg.Source.Collection,
		"CARDTXN_ODATA_URL":      &cfg.Source.ODataURL,
		"CARDTXN_ODATA_USER":     &cfg.Source.ODataUser,
		"CARDTXN_ODATA_PASSWORD": &cfg.Source.ODataPassword,
		"CARDTXN_ODATA_CLIENT":   &cfg.Source.ODataClient,
		"CARDTXN_BQ_PROJECT":     &cfg.Source.BigQueryProject,
		"CARDTXN_BQ_DATASET":     &cfg.Source.BigQueryDataset,
		"CARDTXN_DATA_LOCATION":  &cfg.Source.Location,
		"CARDTXN_EXPORT":         &cfg.Export.Kind,
		"CARDTXN_EXPORT_DIR":     &cfg.Export.Dir,
		"CARDTXN_EXPORT_BUCKET":  &cfg.Export.Bucket,
		"CARDTXN_EXPORT_PREFIX":  &cfg.Export.Prefix,
		"CARDTXN_CLASSIFIER":     &cfg.Triage.Classifier,
		"CARDTXN_GEMINI_MODEL":   &cfg.Triage.Model,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CARDTXN_SOURCE_TIMEOUT": &cfg.Source.Timeout,
		"CARDTXN_TRIAGE_BACKOFF": &cfg.Triage.Backoff,
	}
	for key, dst := range durations {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks that the selected source, export and classifier have the
// settings they need.
func (c Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Source.Collection == "" {
		errs = append(errs, errors.New("source.collection is required"))
	}

	switch c.Source.Kind {
	case SourceOData:
		if c.Source.ODataURL == "" {
			errs = append(errs, errors.New("source.odata_url is required for the odata source"))
		}
	case SourceBigQuery:
		if c.Source.BigQueryProject == "" || c.Source.BigQueryDataset == "" {
			errs = append(errs, errors.New("source.bigquery_project and source.bigquery_dataset are required for the bigquery source"))
		}
	case SourceFile:
		if c.Source.Location == "" {
			errs = append(errs, errors.New("source.location is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source kind %q", c.Source.Kind))
	}

	switch c.Export.Kind {
	case ExportLocal:
		if c.Export.Dir == "" {
			errs = append(errs, errors.New("export.dir is required for the local export"))
		}
	case ExportGCS:
		if c.Export.Bucket == "" {
			errs = append(errs, errors.New("export.bucket is required for the gcs export"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export kind %q", c.Export.Kind))
	}

	switch c.Triage.Classifier {
	case ClassifierRules, ClassifierGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier %q", c.Triage.Classifier))
	}
	if c.Triage.QueueSize <= 0 {
		errs = append(errs, errors.New("triage.queue_size must be positive"))
	}
	if c.Triage.MaxRetries < 0 {
		errs = append(errs, errors.New("triage.max_retries must not be negative"))
	}

	return errors.Join(errs...)
}
