package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittohttp/pkg/content"
)

// isNotFound matches both error shapes S3 uses for a missing key: NoSuchKey
// from GetObject and NotFound from HeadObject (which has no body).
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// ReadContent streams the object body.
func (s *S3ContentStore) ReadContent(ctx context.Context, id content.ContentID) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { s.observe("GetObject", start, err) }()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &metricsReadCloser{ReadCloser: result.Body, metrics: s.metrics}, nil
}

// GetContentSize returns the object's Content-Length from a HEAD request.
func (s *S3ContentStore) GetContentSize(ctx context.Context, id content.ContentID) (size uint64, err error) {
	start := time.Now()
	defer func() { s.observe("HeadObject", start, err) }()

	if err = ctx.Err(); err != nil {
		return 0, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	if result.ContentLength == nil {
		return 0, fmt.Errorf("content length not available for %s", id)
	}
	return uint64(*result.ContentLength), nil
}

// ContentExists issues a HEAD request for the object.
func (s *S3ContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
