// Package storage holds uploaded media blobs. Keys are opaque names chosen
// by the caller; URL generation is deferred to render time because signed
// URLs expire and must be minted fresh per view.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrStorage wraps any put/fetch failure against the backing store.
var ErrStorage = errors.New("blob storage error")

// Blobs is the capability set the ingestion pipeline and handlers need.
// Put consumes the local file at srcPath (it is moved, not copied).
type Blobs interface {
	Put(ctx context.Context, srcPath, key string) error
	Fetch(ctx context.Context, key, destPath string) error
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
