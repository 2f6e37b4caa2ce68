// Package blob abstracts file storage for uploaded documents.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that no object exists at the given URL.
var ErrNotFound = errors.New("blob: object not found")

// Object describes a stored file.
type Object struct {
	// URL locates the object and is the handle used for deletion.
	URL string
	// Size is the number of bytes written.
	Size int64
}

// Store writes and removes uploaded files. Implementations generate their own
// object keys; callers only keep the returned URL.
type Store interface {
	Put(ctx context.Context, fileName, contentType string, body io.Reader) (Object, error)
	Delete(ctx context.Context, url string) error
}
