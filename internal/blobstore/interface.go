package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted object payload.
type PutResult struct {
	Key       string
	SHA256    string
	SizeBytes int64
}

// ObjectStore is the byte-storage abstraction behind the local photo provider.
type ObjectStore interface {
	Put(ctx context.Context, folder, ext string, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
