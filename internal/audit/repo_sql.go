package audit

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLRepo appends events to the audit_events table. It has no update or delete path;
// the table's triggers reject both anyway.
type SQLRepo struct {
	db *sqlx.DB
}

func NewSQLRepo(db *sqlx.DB) *SQLRepo { return &SQLRepo{db: db} }

const eventColumns = `id, type, actor_user_id, call_id, message, metadata, created_at`

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO audit_events (`+eventColumns+`)
VALUES (:id, :type, :actor_user_id, :call_id, :message, :metadata, :created_at)`, e)
	return err
}

func (r *SQLRepo) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.ActorUserID != "" {
		where = append(where, "actor_user_id = ?")
		args = append(args, f.ActorUserID)
	}
	if f.CallID != "" {
		where = append(where, "call_id = ?")
		args = append(args, f.CallID)
	}

	q := `SELECT ` + eventColumns + ` FROM audit_events`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, f.Limit)

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for i := range events {
		events[i].CreatedAt = events[i].CreatedAt.UTC()
	}
	return events, nil
}
