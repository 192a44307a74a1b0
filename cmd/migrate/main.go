package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/card-txn-console/internal/config"
	"github.com/dvloznov/card-txn-console/internal/domain"
	"github.com/dvloznov/card-txn-console/internal/logger"
	"github.com/dvloznov/card-txn-console/internal/source"
)

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var (
	configPath = flag.String("config", os.Getenv("CARDTXN_CONFIG"), "Path to YAML config file (or set CARDTXN_CONFIG env)")
	projectID  = flag.String("project", "", "GCP project ID (defaults to source.bigquery_project)")
	datasetID  = flag.String("dataset", "", "BigQuery dataset ID (defaults to source.bigquery_dataset)")
	appliedBy  = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	seedFrom   = flag.String("seed", "", "Directory or gs:// location holding <collection>.json to load after migrating")
)

func main() {
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *projectID == "" {
		*projectID = cfg.Source.BigQueryProject
	}
	if *datasetID == "" {
		*datasetID = cfg.Source.BigQueryDataset
	}
	collection := cfg.Source.Collection

	if *projectID == "" || *datasetID == "" {
		log.Fatal().Msg("Error: -project and -dataset are required (or set CARDTXN_BQ_PROJECT and CARDTXN_BQ_DATASET)")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	dir, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open embedded migrations")
	}
	migrations, err := readMigrations(dir, map[string]string{
		"PROJECT_ID": *projectID,
		"DATASET_ID": *datasetID,
		"COLLECTION": collection,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	appliedMigrations, err := getAppliedMigrations(ctx, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}

	appliedVersions := make(map[int]bool)
	for _, am := range appliedMigrations {
		appliedVersions[am.Version] = true
	}

	todo := pending(migrations, appliedVersions)
	log.Info().Int("found", len(migrations)).Int("pending", len(todo)).Msg("Migrations loaded")

	for _, migration := range todo {
		mlog := log.With().Int("version", migration.Version).Str("name", migration.Name).Logger()
		mlog.Info().Msg("Applying migration")

		if err := runQuery(ctx, client.Query(migration.SQL)); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to execute migration")
		}
		if err := recordMigration(ctx, client, migration); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to record migration")
		}
	}

	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("applied", len(todo)).Msg("Migrations applied")
	}

	if *seedFrom != "" {
		if err := seed(ctx, log, client, *seedFrom, collection); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed transactions")
		}
	}
}

// runQuery runs a DDL/DML statement and waits for it to finish.
func runQuery(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, *projectID, *datasetID)

	return runQuery(ctx, client.Query(sql))
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, *projectID, *datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, migration Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, *projectID, *datasetID)

	query := client.Query(sql)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}

	return runQuery(ctx, query)
}

// seedRow streams one transaction record into the collection table.
type seedRow domain.TransactionRecord

// Save implements bigquery.ValueSaver.
func (r seedRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"txn_id":          r.TxnID,
		"product_id":      r.ProductID,
		"product_name":    r.ProductName,
		"card_id":         r.CardID,
		"cardholder_name": r.CardholderName,
		"currency":        r.Currency,
		"status":          r.Status,
		"description":     r.Description,
	}
	// Non-numeric values are left NULL rather than failing the insert.
	for col, v := range map[string]domain.NumericText{"amount": r.Amount, "quantity": r.Quantity, "price": r.Price} {
		if _, ok := v.Float(); ok {
			row[col] = string(v)
		}
	}
	return row, domain.TransactionRecord(r).Key().String(), nil
}

// seed loads <collection>.json from location into the collection table.
func seed(ctx context.Context, log zerolog.Logger, client *bigquery.Client, location, collection string) error {
	var objects source.ObjectReader
	if strings.HasPrefix(location, "gs://") {
		r, err := source.NewGCSObjectReader(ctx)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		defer r.Close()
		objects = r
	}

	records, err := source.NewFileFetcher(location, objects).Fetch(ctx, collection)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	rows := make([]seedRow, len(records))
	for i, rec := range records {
		rows[i] = seedRow(rec)
	}

	inserter := client.Dataset(*datasetID).Table(collection).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("seed: insert rows: %w", err)
	}

	log.Info().Int("rows", len(rows)).Str("table", collection).Msg("Seeded transactions")
	return nil
}
