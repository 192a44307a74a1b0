// Package app assembles the console from its configuration. Both the API
// server and the CLI build their screen service here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/config"
	"github.com/dvloznov/card-txn-console/internal/export"
	"github.com/dvloznov/card-txn-console/internal/queries"
	"github.com/dvloznov/card-txn-console/internal/queries/inmemory"
	"github.com/dvloznov/card-txn-console/internal/screens"
	"github.com/dvloznov/card-txn-console/internal/source"
	"github.com/dvloznov/card-txn-console/internal/triage"
)

// App holds the assembled service and the resources it owns.
type App struct {
	Service    *screens.Service
	Store      *inmemory.Store
	Queue      *inmemory.Queue
	Classifier triage.Classifier

	closers []io.Closer
}

// Options tweak assembly.
type Options struct {
	// WithTriage starts the triage queue. The CLI leaves it off.
	WithTriage bool
}

// New builds an App. Callers must Close it.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{}

	fetcher, err := a.newFetcher(ctx, cfg.Source)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	sink, err := a.newSink(ctx, cfg.Export)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	a.Store = inmemory.NewStore(queries.DemoQueries()...)

	svcCfg := screens.Config{
		Fetcher:    fetcher,
		Collection: cfg.Source.Collection,
		Queries:    a.Store,
		Sink:       sink,
	}

	if opts.WithTriage {
		a.Classifier, err = newClassifier(ctx, cfg.Triage, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Queue = inmemory.NewQueue(cfg.Triage.QueueSize, a.Store).
			WithBackoff(cfg.Triage.Backoff).
			WithMaxRetries(cfg.Triage.MaxRetries)
		svcCfg.Triage = a.Queue
	}

	a.Service = screens.NewService(svcCfg)

	log.Info().
		Str("source", cfg.Source.Kind).
		Str("collection", cfg.Source.Collection).
		Str("export", cfg.Export.Kind).
		Bool("triage", opts.WithTriage).
		Msg("Console assembled")

	return a, nil
}

// StartTriage runs the triage workers until ctx is cancelled or the queue is stopped.
func (a *App) StartTriage(ctx context.Context, log zerolog.Logger) error {
	if a.Queue == nil {
		return errors.New("triage is not enabled")
	}

	classify := triage.Handler(a.Classifier)
	handler := func(ctx context.Context, q *queries.TxnQuery) error {
		if err := classify(ctx, q); err != nil {
			log.Error().
				Err(err).
				Str("query_id", q.QueryID).
				Int("retry_count", q.RetryCount).
				Msg("Query triage failed")
			return err
		}

		log.Info().
			Str("query_id", q.QueryID).
			Str("priority", q.Priority).
			Str("category", q.Category).
			Msg("Query triaged")
		return nil
	}

	return a.Queue.Start(ctx, handler)
}

// Close releases upstream clients and stops the queue.
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) newFetcher(ctx context.Context, cfg config.SourceConfig) (source.Fetcher, error) {
	switch cfg.Kind {
	case config.SourceOData:
		return source.NewODataFetcher(source.ODataConfig{
			BaseURL:  cfg.ODataURL,
			Username: cfg.ODataUser,
			Password: cfg.ODataPassword,
			Client:   cfg.ODataClient,
			Timeout:  cfg.Timeout,
		}), nil

	case config.SourceBigQuery:
		f, err := source.NewBigQueryFetcher(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("bigquery source: %w", err)
		}
		a.closers = append(a.closers, f)
		return f, nil

	case config.SourceFile:
		var objects source.ObjectReader
		if isGCS(cfg.Location) {
			r, err := source.NewGCSObjectReader(ctx)
			if err != nil {
				return nil, fmt.Errorf("file source: %w", err)
			}
			a.closers = append(a.closers, r)
			objects = r
		}
		return source.NewFileFetcher(cfg.Location, objects), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

func (a *App) newSink(ctx context.Context, cfg config.ExportConfig) (export.Sink, error) {
	switch cfg.Kind {
	case config.ExportLocal:
		return export.NewLocalSink(cfg.Dir), nil
	case config.ExportGCS:
		s, err := export.NewGCSSink(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("gcs export: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	}
	return nil, fmt.Errorf("unknown export kind %q", cfg.Kind)
}

func newClassifier(ctx context.Context, cfg config.TriageConfig, log zerolog.Logger) (triage.Classifier, error) {
	if cfg.Classifier != config.ClassifierGemini {
		return triage.RuleClassifier{}, nil
	}
	c, err := triage.NewGeminiClassifier(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: %w", err)
	}
	log.Info().Str("model", cfg.Model).Msg("Using Gemini triage")
	return c, nil
}

func isGCS(location string) bool {
	return strings.HasPrefix(location, "gs://")
}
