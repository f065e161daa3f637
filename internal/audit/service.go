package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there are no Update/Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, f Filter) ([]Event, error)
}

var (
	ErrInvalidEvent  = errors.New("audit: invalid event")
	ErrInvalidFilter = errors.New("audit: invalid filter")
)

// Service records and reads the audit trail.
// Writers treat Append as best-effort and never fail a user request on its errors.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if e.ActorUserID == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidEvent)
	}
	if !e.Type.IsKnown() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Metadata != "" && !json.Valid([]byte(e.Metadata)) {
		return fmt.Errorf("%w: metadata must be JSON", ErrInvalidEvent)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC().Truncate(time.Microsecond)
	}
	return s.repo.Append(ctx, e)
}

// List returns events newest first. Limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (s *Service) List(ctx context.Context, f Filter) ([]Event, error) {
	if f.ActorUserID != "" {
		if _, err := uuid.Parse(f.ActorUserID); err != nil {
			return nil, fmt.Errorf("%w: user_id must be a uuid", ErrInvalidFilter)
		}
	}
	switch {
	case f.Limit < 0:
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidFilter)
	case f.Limit == 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return s.repo.List(ctx, f)
}
