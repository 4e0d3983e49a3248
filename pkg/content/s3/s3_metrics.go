package s3

import (
	"io"
	"time"
)

// S3Metrics observes S3 calls made by the store.
//
// pkg/metrics provides the Prometheus implementation.
type S3Metrics interface {
	// ObserveOperation records an S3 operation with its duration and outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred. direction is "read" or "write".
	RecordBytes(direction string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(direction string, bytes int64)                            {}

// metricsReadCloser counts the bytes read from an object body.
type metricsReadCloser struct {
	io.ReadCloser
	metrics S3Metrics
	read    int64
}

func (r *metricsReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.read += int64(n)
	return n, err
}

func (r *metricsReadCloser) Close() error {
	if r.read > 0 {
		r.metrics.RecordBytes("read", r.read)
	}
	return r.ReadCloser.Close()
}
