// Package archive keeps imported bank statements in a GCS bucket.
// Notion file URLs expire shortly after they are issued, so the bucket
// copy is the only durable one and the source for re-imports.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Store writes and reads statement files in one bucket. Objects are
// keyed as statements/<year>/<month>/<name>.
type Store struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// New creates a Store. It assumes Application Default Credentials are
// configured.
func New(ctx context.Context, bucket string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, now: time.Now}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Upload writes data under the dated object key for name and returns
// the gs:// URI of the stored object.
func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	objectName := s.ObjectName(name)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return URI(s.bucket, objectName), nil
}

// Fetch downloads the statement bytes from the given gs:// URI.
func (s *Store) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := splitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return data, nil
}

// List returns the URIs of archived statements under the given prefix.
// An empty prefix lists the whole archive.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = "statements/"
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var uris []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		uris = append(uris, URI(s.bucket, attrs.Name))
	}
	return uris, nil
}

// ObjectName returns the dated object key for a statement file name.
func (s *Store) ObjectName(name string) string {
	t := s.now().UTC()
	return path.Join("statements", t.Format("2006"), t.Format("01"), path.Base(name))
}

// URI builds the gs:// URI for a bucket and object.
func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// Filename extracts the file name from a storage URI.
// e.g. "gs://bucket/statements/2025/04/april.pdf" becomes "april.pdf".
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// IsURI reports whether the path refers to an archived object rather
// than a local file.
func IsURI(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

func splitURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
