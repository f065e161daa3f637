package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"callnotes/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *SQLRepo {
	t.Helper()
	ctx := context.Background()
	sdb, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdb.Close() })
	_, err = db.Migrate(ctx, sdb)
	require.NoError(t, err)
	return NewSQLRepo(sdb)
}

func sampleCall(owner string, at time.Time) Call {
	return Call{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Title:       "Acme Discovery",
		Transcript:  "We discussed pricing...",
		Summary:     "S",
		KeyInsights: "K",
		PainPoints:  "P",
		NextSteps:   "N",
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestSQLRepo_InsertGetRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 3, 4, 5, 6, 789000, time.UTC)

	in := sampleCall("U1", at)
	out, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	got, err := repo.Get(ctx, "U1", in.ID)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = repo.Get(ctx, "U2", in.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepo_ListOrderingAndScope(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	older := sampleCall("U1", base)
	newer := sampleCall("U1", base.Add(1500*time.Millisecond))
	foreign := sampleCall("U2", base.Add(time.Hour))
	for _, c := range []Call{older, newer, foreign} {
		_, err := repo.Insert(ctx, c)
		require.NoError(t, err)
	}

	list, err := repo.ListByOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, "S", list[0].Summary)
	assert.True(t, list[0].CreatedAt.Equal(newer.CreatedAt))

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLRepo_UpdateSetsOnlyGivenColumns(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	in := sampleCall("U1", at)
	_, err := repo.Insert(ctx, in)
	require.NoError(t, err)

	later := at.Add(time.Minute)
	pp := "new text"
	out, err := repo.Update(ctx, "U1", in.ID, Patch{PainPoints: &pp}, later)
	require.NoError(t, err)
	assert.Equal(t, "new text", out.PainPoints)
	assert.Equal(t, in.Summary, out.Summary)
	assert.Equal(t, in.Title, out.Title)
	assert.True(t, out.UpdatedAt.Equal(later))
	assert.True(t, out.CreatedAt.Equal(at))

	_, err = repo.Update(ctx, "U2", in.ID, Patch{PainPoints: &pp}, later)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, "U1", in.ID, Patch{}, later)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// a writer whose clock lags keeps the stored updated_at
	out, err = repo.Update(ctx, "U1", in.ID, Patch{PainPoints: &pp}, at)
	require.NoError(t, err)
	assert.True(t, out.UpdatedAt.Equal(later), "updated_at went back to %s", out.UpdatedAt)
}

func TestSQLRepo_Delete(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	in := sampleCall("U1", time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC))
	_, err := repo.Insert(ctx, in)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, "U2", in.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "U1", in.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "U1", in.ID), ErrNotFound)

	_, err = repo.Get(ctx, "U1", in.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepo_ListActivityHalfOpenRange(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	for _, c := range []Call{
		sampleCall("U1", day.Add(-time.Second)),
		sampleCall("U1", day),
		sampleCall("U2", day.Add(23*time.Hour)),
		sampleCall("U2", day.Add(24*time.Hour)),
	} {
		_, err := repo.Insert(ctx, c)
		require.NoError(t, err)
	}

	acts, err := repo.ListActivity(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "U1", acts[0].OwnerID)
	assert.Equal(t, "U2", acts[1].OwnerID)
}

func TestSQLRepo_PostgresPlaceholdersAndInsertRollback(t *testing.T) {
	sdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sdb.Close()
	repo := NewSQLRepo(sqlx.NewDb(sdb, "pgx"))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO calls .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = repo.Insert(context.Background(), sampleCall("U1", time.Now().UTC()))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_UpdateBuildsFixedColumnOrder(t *testing.T) {
	sdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sdb.Close()
	repo := NewSQLRepo(sqlx.NewDb(sdb, "pgx"))

	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	title, next := "Renamed", "Send quote"
	stored := at.Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM calls WHERE owner_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("U1", "c1").
		WillReturnRows(callRows().AddRow("c1", "U1", "t", "x", "S", "K", "P", "N", at, stored))
	mock.ExpectExec(`UPDATE calls SET title = \$1, next_steps = \$2, updated_at = \$3 WHERE owner_id = \$4 AND id = \$5`).
		WithArgs(title, next, stored, "U1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM calls WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("U1", "c1").
		WillReturnRows(callRows().AddRow("c1", "U1", title, "x", "S", "K", "P", next, at, stored))
	mock.ExpectCommit()

	out, err := repo.Update(context.Background(), "U1", "c1", Patch{NextSteps: &next, Title: &title}, at)
	require.NoError(t, err)
	assert.Equal(t, title, out.Title)
	assert.True(t, out.UpdatedAt.Equal(stored))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepo_UpdateMissingRowRollsBack(t *testing.T) {
	sdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sdb.Close()
	repo := NewSQLRepo(sqlx.NewDb(sdb, "pgx"))

	next := "Send quote"
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM calls WHERE owner_id = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("U1", "c1").
		WillReturnRows(callRows())
	mock.ExpectRollback()

	_, err = repo.Update(context.Background(), "U1", "c1", Patch{NextSteps: &next}, time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func callRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "title", "transcript", "summary", "key_insights", "pain_points", "next_steps", "created_at", "updated_at",
	})
}
