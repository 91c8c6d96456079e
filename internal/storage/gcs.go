package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSUploader writes export copies to a bucket. Objects keep the bucket's
// default ACL.
type GCSUploader struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSUploader accepts "bucket" or "bucket/prefix".
func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	name, prefix := SplitBucket(bucket)
	if name == "" {
		return nil, fmt.Errorf("empty bucket name")
	}
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSUploader{client: c, bucket: name, prefix: prefix}, nil
}

func (u *GCSUploader) Close() error { return u.client.Close() }

func (u *GCSUploader) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	objectName = path.Join(u.prefix, objectName)
	obj := u.client.Bucket(u.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return ObjectURI(u.bucket, objectName), nil
}

// SplitBucket splits "gs://bucket/some/prefix" or "bucket/some/prefix".
func SplitBucket(s string) (bucket, prefix string) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "gs://")
	s = strings.Trim(s, "/")
	bucket, prefix, _ = strings.Cut(s, "/")
	return bucket, prefix
}

func ObjectURI(bucket, objectName string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, objectName)
}
