package calls

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"callnotes/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// SQLRepo stores calls in Postgres or SQLite. Queries are written with `?` placeholders and
// rebound for the connected driver.
//
// Table: calls (see internal/db/migrations).
type SQLRepo struct {
	db *sqlx.DB
}

func NewSQLRepo(db *sqlx.DB) *SQLRepo { return &SQLRepo{db: db} }

const callColumns = `id, owner_id, title, transcript, summary, key_insights, pain_points, next_steps, created_at, updated_at`

func (r *SQLRepo) Insert(ctx context.Context, c Call) (Call, error) {
	var out Call
	err := utils.WithTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		q := tx.Rebind(`
INSERT INTO calls (` + callColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, q,
			c.ID, c.OwnerID, c.Title, c.Transcript,
			c.Summary, c.KeyInsights, c.PainPoints, c.NextSteps,
			c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return err
		}
		var err error
		out, err = getCall(ctx, tx, c.OwnerID, c.ID)
		return err
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

func (r *SQLRepo) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	q := r.db.Rebind(`
SELECT id, title, summary, created_at
FROM calls
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC`)
	out := make([]Summary, 0)
	if err := r.db.SelectContext(ctx, &out, q, ownerID); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func (r *SQLRepo) Get(ctx context.Context, ownerID, id string) (Call, error) {
	return getCall(ctx, r.db, ownerID, id)
}

// getCall runs on either the pool or an open transaction.
func getCall(ctx context.Context, q sqlx.ExtContext, ownerID, id string) (Call, error) {
	query := q.Rebind(`SELECT ` + callColumns + ` FROM calls WHERE owner_id = ? AND id = ?`)
	var c Call
	if err := sqlx.GetContext(ctx, q, &c, query, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return normalize(c), nil
}

// Update sets only the non-nil patch slots plus updated_at, in a fixed column order.
// The row is read and locked first so updated_at never moves backwards.
func (r *SQLRepo) Update(ctx context.Context, ownerID, id string, p Patch, updatedAt time.Time) (Call, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 8)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("title", p.Title)
	add("summary", p.Summary)
	add("key_insights", p.KeyInsights)
	add("pain_points", p.PainPoints)
	add("next_steps", p.NextSteps)
	if len(sets) == 0 {
		return Call{}, ErrInvalidInput
	}
	sets = append(sets, "updated_at = ?")

	var out Call
	err := utils.WithTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		cur, err := lockCall(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		execArgs := append(args, notBefore(updatedAt, cur.UpdatedAt), ownerID, id)

		q := tx.Rebind(`UPDATE calls SET ` + strings.Join(sets, ", ") + ` WHERE owner_id = ? AND id = ?`)
		res, err := tx.ExecContext(ctx, q, execArgs...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		out, err = getCall(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

// lockCall reads the row inside tx. Postgres takes a row lock; SQLite transactions
// already serialise writers.
func lockCall(ctx context.Context, tx *sqlx.Tx, ownerID, id string) (Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE owner_id = ? AND id = ?`
	if tx.DriverName() != "sqlite" {
		query += ` FOR UPDATE`
	}
	var c Call
	if err := tx.GetContext(ctx, &c, tx.Rebind(query), ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return normalize(c), nil
}

func (r *SQLRepo) Delete(ctx context.Context, ownerID, id string) error {
	q := r.db.Rebind(`DELETE FROM calls WHERE owner_id = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, q, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) ListActivity(ctx context.Context, from, to time.Time) ([]Activity, error) {
	q := r.db.Rebind(`
SELECT owner_id, created_at
FROM calls
WHERE created_at >= ? AND created_at < ?
ORDER BY created_at`)
	out := make([]Activity, 0)
	if err := r.db.SelectContext(ctx, &out, q, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func normalize(c Call) Call {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}
