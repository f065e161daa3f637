package calls

import (
	"context"
	"time"
)

// Repository is the persistence contract for calls.
//
// Every read and write except ListActivity is scoped by owner; a row owned by someone else
// must be reported as ErrNotFound.
type Repository interface {
	Insert(ctx context.Context, c Call) (Call, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Summary, error)
	Get(ctx context.Context, ownerID, id string) (Call, error)
	Update(ctx context.Context, ownerID, id string, p Patch, updatedAt time.Time) (Call, error)
	Delete(ctx context.Context, ownerID, id string) error

	// ListActivity returns owner/timestamp pairs for calls created in [from, to).
	ListActivity(ctx context.Context, from, to time.Time) ([]Activity, error)
}
