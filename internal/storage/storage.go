package storage

import (
	"context"
	"io"
)

// Uploader copies an object to remote storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (uri string, err error)
}
