package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/content"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ContentStore serves content from objects in an S3 bucket.
//
// Content IDs map to object keys, optionally under KeyPrefix:
//
//	KeyPrefix "site/" + ID "css/app.css" -> key "site/css/app.css"
//
// Works with AWS S3 and S3-compatible services (MinIO, Localstack) via a
// custom endpoint on the client.
type S3ContentStore struct {
	client    Client
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client.
	Client Client

	// Bucket is the S3 bucket name.
	Bucket string

	// KeyPrefix is prepended to all object keys.
	KeyPrefix string

	// Metrics receives per-operation observations. nil disables them.
	Metrics S3Metrics
}

// NewS3ContentStore creates a store and verifies the bucket is reachable.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	logger.Debug("S3 content store ready (bucket=%s prefix=%q)", cfg.Bucket, cfg.KeyPrefix)
	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   m,
	}, nil
}

func (s *S3ContentStore) objectKey(id content.ContentID) string {
	return s.keyPrefix + string(id)
}

// observe records the outcome of an operation started at start.
func (s *S3ContentStore) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveOperation(operation, time.Since(start), err)
}

// Close is a no-op; the S3 client has no resources to release.
func (s *S3ContentStore) Close() error {
	return nil
}
