package source

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// txnRow is the BigQuery shape of a transaction. Numeric columns are cast to
// STRING in the query so NUMERIC, FLOAT64 and STRING schemas all load.
type txnRow struct {
	TxnID          bigquery.NullString `bigquery:"txn_id"`
	ProductID      bigquery.NullString `bigquery:"product_id"`
	ProductName    bigquery.NullString `bigquery:"product_name"`
	CardID         bigquery.NullString `bigquery:"card_id"`
	CardholderName bigquery.NullString `bigquery:"cardholder_name"`
	Amount         bigquery.NullString `bigquery:"amount"`
	Quantity       bigquery.NullString `bigquery:"quantity"`
	Price          bigquery.NullString `bigquery:"price"`
	Currency       bigquery.NullString `bigquery:"currency"`
	Status         bigquery.NullString `bigquery:"status"`
	Description    bigquery.NullString `bigquery:"description"`
}

func (r txnRow) record() domain.TransactionRecord {
	return domain.TransactionRecord{
		TxnID:          r.TxnID.StringVal,
		ProductID:      r.ProductID.StringVal,
		ProductName:    r.ProductName.StringVal,
		CardID:         r.CardID.StringVal,
		CardholderName: r.CardholderName.StringVal,
		Amount:         domain.NumericText(r.Amount.StringVal),
		Quantity:       domain.NumericText(r.Quantity.StringVal),
		Price:          domain.NumericText(r.Price.StringVal),
		Currency:       r.Currency.StringVal,
		Status:         r.Status.StringVal,
		Description:    r.Description.StringVal,
	}
}

// BigQueryFetcher reads collections from a BigQuery dataset where each
// collection is a table or view of the same name.
type BigQueryFetcher struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryFetcher creates a fetcher with its own BigQuery client.
func NewBigQueryFetcher(ctx context.Context, projectID, datasetID string) (*BigQueryFetcher, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryFetcher: creating client: %w", err)
	}
	return &BigQueryFetcher{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (f *BigQueryFetcher) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Fetch implements Fetcher.
func (f *BigQueryFetcher) Fetch(ctx context.Context, collection string) ([]domain.TransactionRecord, error) {
	if err := validateCollection(collection); err != nil {
		return nil, fmt.Errorf("BigQueryFetcher.Fetch: %w: %q", err, collection)
	}

	q := f.client.Query(fmt.Sprintf(`
		SELECT
			txn_id,
			product_id,
			product_name,
			card_id,
			cardholder_name,
			CAST(amount AS STRING) AS amount,
			CAST(quantity AS STRING) AS quantity,
			CAST(price AS STRING) AS price,
			currency,
			status,
			description
		FROM `+"`%s.%s.%s`"+`
	`, f.projectID, f.datasetID, collection))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("BigQueryFetcher.Fetch: query read: %w", err)
	}

	var records []domain.TransactionRecord
	for {
		var r txnRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("BigQueryFetcher.Fetch: iter next: %w", err)
		}
		records = append(records, r.record())
	}

	return records, nil
}

var _ Fetcher = (*BigQueryFetcher)(nil)
