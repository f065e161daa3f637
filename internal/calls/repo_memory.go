package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local development.
// It enforces owner isolation on reads and writes.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call

	// FailInsert, when set, is returned by Insert without storing anything.
	FailInsert error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{calls: map[string]Call{}} }

func (r *MemoryRepo) Insert(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return Call{}, r.FailInsert
	}
	if _, exists := r.calls[c.ID]; exists {
		return Call{}, errors.New("duplicate call id")
	}
	r.calls[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]Call, 0)
	for _, c := range r.calls {
		if c.OwnerID == ownerID {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	out := make([]Summary, 0, len(rows))
	for _, c := range rows {
		out = append(out, Summary{ID: c.ID, Title: c.Title, Summary: c.Summary, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.OwnerID != ownerID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Update(ctx context.Context, ownerID, id string, p Patch, updatedAt time.Time) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.OwnerID != ownerID {
		return Call{}, ErrNotFound
	}
	p.apply(&c)
	c.UpdatedAt = notBefore(updatedAt, c.UpdatedAt)
	r.calls[id] = c
	return c, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.calls, id)
	return nil
}

func (r *MemoryRepo) ListActivity(ctx context.Context, from, to time.Time) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Activity, 0)
	for _, c := range r.calls {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, Activity{OwnerID: c.OwnerID, CreatedAt: c.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored calls across all owners.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
