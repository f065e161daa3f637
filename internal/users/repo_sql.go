package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLRepo stores users in Postgres or SQLite.
type SQLRepo struct {
	db *sqlx.DB
}

func NewSQLRepo(db *sqlx.DB) *SQLRepo { return &SQLRepo{db: db} }

const userColumns = `id, first_name, last_name, username, email, password_hash, role, created_at`

func (r *SQLRepo) Create(ctx context.Context, u User) error {
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (:id, :first_name, :last_name, :username, :email, :password_hash, :role, :created_at)`, u)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getWhere(ctx, `id = ?`, id)
}

func (r *SQLRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getWhere(ctx, `lower(email) = lower(?)`, email)
}

func (r *SQLRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getWhere(ctx, `lower(username) = lower(?)`, username)
}

func (r *SQLRepo) getWhere(ctx context.Context, cond string, arg any) (User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + cond)
	var u User
	if err := r.db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// isUniqueViolation recognises unique-constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
