package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohttp/pkg/content"
)

// WriteContent uploads data as a single PutObject. Static documents are
// small enough that multipart uploads are not worth it.
func (s *S3ContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) (err error) {
	start := time.Now()
	defer func() { s.observe("PutObject", start, err) }()

	if err = ctx.Err(); err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to write object to S3: %w", err)
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Delete removes the object. S3 DeleteObject succeeds for missing keys.
func (s *S3ContentStore) Delete(ctx context.Context, id content.ContentID) (err error) {
	start := time.Now()
	defer func() { s.observe("DeleteObject", start, err) }()

	if err = ctx.Err(); err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}
