package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectOptions locate a snapshot in S3-compatible storage (R2, MinIO, S3).
type ObjectOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Key       string
}

// ObjectLoader downloads index snapshots from object storage.
type ObjectLoader struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

// NewObjectLoader constructs the loader.
func NewObjectLoader(opts ObjectOptions, logger *slog.Logger) (*ObjectLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       strings.HasPrefix(strings.ToLower(strings.TrimSpace(opts.Endpoint)), "https"),
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return &ObjectLoader{
		client: client,
		bucket: opts.Bucket,
		key:    opts.Key,
		logger: logger.With("component", "vectorindex.object"),
	}, nil
}

// Load fetches and decodes the configured snapshot.
func (l *ObjectLoader) Load(ctx context.Context) (*FlatIndex, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, l.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get snapshot object: %w", err)
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot object %s/%s: %w", l.bucket, l.key, err)
	}
	idx, err := ReadSnapshot(obj)
	if err != nil {
		return nil, err
	}
	l.logger.Info("index snapshot downloaded", "bucket", l.bucket, "key", l.key, "bytes", info.Size, "vectors", idx.Len(), "dim", idx.Dim())
	return idx, nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
