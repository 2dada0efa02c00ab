package storage

import (
	"context"
	"io"
)

// ObjectStore persists attachment bytes. Keys are opaque slash-separated
// paths; the store owns a single bucket (or directory) configured at
// construction.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) ([]byte, error)
}
