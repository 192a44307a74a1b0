package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
)

// Sink stores rendered documents and returns where they went.
type Sink interface {
	Save(ctx context.Context, doc Document) (string, error)
}

// LocalSink writes documents into a directory.
type LocalSink struct {
	dir string
}

// NewLocalSink creates a sink rooted at dir.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

// Save implements Sink. Names never escape the sink directory.
func (s *LocalSink) Save(ctx context.Context, doc Document) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("LocalSink.Save: create dir %q: %w", s.dir, err)
	}

	dst := filepath.Join(s.dir, filepath.Base(doc.Name))
	if err := os.WriteFile(dst, doc.Data, 0o644); err != nil {
		return "", fmt.Errorf("LocalSink.Save: write %q: %w", dst, err)
	}
	return dst, nil
}

// GCSSink uploads documents to a bucket under a prefix.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink creates a sink with its own storage client. It assumes
// Application Default Credentials are configured.
func NewGCSSink(ctx context.Context, bucket, prefix string) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSSink: create storage client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close closes the storage client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}

// Save implements Sink.
func (s *GCSSink) Save(ctx context.Context, doc Document) (string, error) {
	objectName := path.Join(s.prefix, time.Now().UTC().Format("2006/01/02"), path.Base(doc.Name))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = doc.ContentType

	if _, err := io.Copy(w, bytes.NewReader(doc.Data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("GCSSink.Save: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("GCSSink.Save: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

var (
	_ Sink = (*LocalSink)(nil)
	_ Sink = (*GCSSink)(nil)
)
