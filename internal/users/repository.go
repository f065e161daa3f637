package users

import "context"

// Repository persists accounts. Email and username lookups are case-insensitive;
// Create reports ErrConflict when either is taken.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}
