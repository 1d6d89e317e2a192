package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-countdown/internal/domain"
	"github.com/pkordes/trip-countdown/internal/repo"
	"github.com/pkordes/trip-countdown/testutil"
)

// newTestRepo opens a transaction against the test database and returns a
// TripRepo backed by that transaction. The transaction is rolled back when
// the test finishes, giving free per-test isolation.
func newTestRepo(t *testing.T) repo.TripRepo {
	t.Helper()
	r, _ := newTestRepoTx(t)
	return r
}

// newTestRepoTx is newTestRepo but also returns the transaction so tests can
// adjust server-assigned columns.
func newTestRepoTx(t *testing.T) (repo.TripRepo, pgx.Tx) {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	// Start from an empty table inside the transaction so Latest is deterministic.
	_, err = tx.Exec(context.Background(), `DELETE FROM trips`)
	require.NoError(t, err)

	return repo.NewTripRepo(tx), tx
}

// recordFixture returns a domain.TripRecord with sensible defaults for use in tests.
func recordFixture() domain.TripRecord {
	return domain.TripRecord{
		Destination: "Toledo",
		TargetDate:  time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC),
		Itinerary: []domain.ItineraryItem{
			{ID: "a1", Date: "2025-06-01", Time: "10:00", Activity: "Alcázar", Location: "Cuesta de Carlos V"},
			{ID: "a2", Date: "2025-06-02", Time: "09:00", Activity: "Cathedral"},
		},
	}
}

func TestTripRepo_Insert(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	input := recordFixture()
	got, err := r.Insert(ctx, input)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID, "ID should be DB-generated UUID")
	assert.Equal(t, input.Destination, got.Destination)
	assert.True(t, got.TargetDate.Equal(input.TargetDate), "TargetDate mismatch")
	assert.Equal(t, input.Itinerary, got.Itinerary)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt should be set by DB")
}

func TestTripRepo_Insert_NilItinerary(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	input := recordFixture()
	input.Itinerary = nil

	got, err := r.Insert(ctx, input)

	require.NoError(t, err)
	assert.NotNil(t, got.Itinerary)
	assert.Empty(t, got.Itinerary)
}

func TestTripRepo_Latest_Empty(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.Latest(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_Latest_ReturnsNewest(t *testing.T) {
	r, tx := newTestRepoTx(t)
	ctx := context.Background()

	first := recordFixture()
	first.Destination = "Segovia"
	older, err := r.Insert(ctx, first)
	require.NoError(t, err)

	// now() is frozen inside a transaction, so age the first row explicitly.
	_, err = tx.Exec(ctx, `UPDATE trips SET created_at = created_at - interval '1 hour' WHERE id = $1`, older.ID)
	require.NoError(t, err)

	newer, err := r.Insert(ctx, recordFixture())
	require.NoError(t, err)

	got, err := r.Latest(ctx)

	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "Toledo", got.Destination)
}

func TestTripRepo_List(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Insert(ctx, recordFixture())
		require.NoError(t, err)
	}

	page, total, err := r.List(ctx, domain.PaginationParams{Page: 1, Limit: 2})

	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)

	page, _, err = r.List(ctx, domain.PaginationParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
