package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/card-txn-console/internal/domain"
)

// ObjectReader reads whole objects from a storage bucket.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSObjectReader reads objects from Google Cloud Storage.
type GCSObjectReader struct {
	client *storage.Client
}

// NewGCSObjectReader creates a reader with its own storage client. It
// assumes Application Default Credentials are configured.
func NewGCSObjectReader(ctx context.Context) (*GCSObjectReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSObjectReader: create storage client: %w", err)
	}
	return &GCSObjectReader{client: client}, nil
}

// Close closes the storage client.
func (g *GCSObjectReader) Close() error {
	return g.client.Close()
}

// ReadObject implements ObjectReader.
func (g *GCSObjectReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadObject: open %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("ReadObject: read %s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// FileFetcher reads JSON exports of collections named <collection>.json from
// a local directory or from a gs://bucket/prefix location.
type FileFetcher struct {
	location string
	objects  ObjectReader
}

// NewFileFetcher creates a fetcher rooted at location. objects is only
// needed for gs:// locations.
func NewFileFetcher(location string, objects ObjectReader) *FileFetcher {
	return &FileFetcher{location: location, objects: objects}
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, collection string) ([]domain.TransactionRecord, error) {
	if err := validateCollection(collection); err != nil {
		return nil, fmt.Errorf("FileFetcher.Fetch: %w: %q", err, collection)
	}

	data, err := f.read(ctx, collection+".json")
	if err != nil {
		return nil, fmt.Errorf("FileFetcher.Fetch: %w", err)
	}

	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("FileFetcher.Fetch: %s: %w", collection, err)
	}
	return records, nil
}

func (f *FileFetcher) read(ctx context.Context, name string) ([]byte, error) {
	if !strings.HasPrefix(f.location, "gs://") {
		return os.ReadFile(filepath.Join(f.location, name))
	}

	if f.objects == nil {
		return nil, fmt.Errorf("no object reader configured for %s", f.location)
	}

	trimmed := strings.TrimPrefix(f.location, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket := parts[0]
	if bucket == "" {
		return nil, fmt.Errorf("invalid GCS location: %s", f.location)
	}
	object := name
	if len(parts) == 2 && parts[1] != "" {
		object = path.Join(parts[1], name)
	}

	return f.objects.ReadObject(ctx, bucket, object)
}

var _ Fetcher = (*FileFetcher)(nil)
