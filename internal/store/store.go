package store

import (
	"context"
	"errors"

	"sdcp-backend/internal/models"
)

// ErrNotFound is returned for lookups, updates, and deletes against an id
// that is not in the collection.
var ErrNotFound = errors.New("record not found")

// Store is a named collection of JSON-serializable records. Implementations
// must make Upsert/Delete atomic per record so concurrent writers cannot
// lose each other's updates.
type Store[T any] interface {
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Upsert(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
}

// Stores bundles the per-collection stores the app uses.
type Stores struct {
	Users        Store[models.User]
	Referrals    Store[models.Referral]
	Estimates    Store[models.Estimate]
	Testimonials Store[models.Testimonial]
	Examples     Store[models.Example]
}
