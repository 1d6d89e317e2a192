// Package repo contains the remote trip store: an append-only collection of
// trip snapshots. Two implementations satisfy TripRepo, a direct Postgres
// connection (this file) and a PostgREST/Supabase HTTP client (rest.go).
// No business logic lives here, only queries and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-countdown/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the operations on the remote trip store.
// Records are only ever appended; there is no update or delete.
type TripRepo interface {
	// Latest returns the most recently created record.
	// Returns domain.ErrNotFound if the store is empty.
	Latest(ctx context.Context) (domain.TripRecord, error)

	// Insert appends a new snapshot and returns it with the store-assigned
	// id and created_at populated.
	Insert(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error)

	// List returns one page of records, newest first, and the total count.
	List(ctx context.Context, page domain.PaginationParams) ([]domain.TripRecord, int64, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

// Latest selects the newest row by created_at.
func (r *pgTripRepo) Latest(ctx context.Context) (domain.TripRecord, error) {
	const q = `
		SELECT id, destination, target_date, itinerary, created_at
		FROM trips
		ORDER BY created_at DESC
		LIMIT 1`

	result, err := scanTrip(r.db.QueryRow(ctx, q))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRepo.Latest: %w", err)
	}
	return result, nil
}

// Insert appends a trip row and returns the full persisted record.
func (r *pgTripRepo) Insert(ctx context.Context, rec domain.TripRecord) (domain.TripRecord, error) {
	const q = `
		INSERT INTO trips (destination, target_date, itinerary)
		VALUES (@destination, @target_date, @itinerary)
		RETURNING id, destination, target_date, itinerary, created_at`

	items, err := encodeItinerary(rec.Itinerary)
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRepo.Insert: %w", err)
	}

	args := pgx.NamedArgs{
		"destination": rec.Destination,
		"target_date": rec.TargetDate,
		"itinerary":   items,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripRecord{}, fmt.Errorf("repo.TripRepo.Insert: %w", err)
	}
	return result, nil
}

// List returns a page of records ordered by created_at descending.
func (r *pgTripRepo) List(ctx context.Context, page domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	const q = `
		SELECT id, destination, target_date, itinerary, created_at
		FROM trips
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": page.Limit, "offset": page.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	var records []domain.TripRecord
	for rows.Next() {
		rec, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}

	return records, total, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanTrip to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.TripRecord.
func scanTrip(s scanner) (domain.TripRecord, error) {
	var (
		rec   domain.TripRecord
		id    pgtype.UUID
		items []byte
	)

	err := s.Scan(&id, &rec.Destination, &rec.TargetDate, &items, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripRecord{}, domain.ErrNotFound
		}
		return domain.TripRecord{}, err
	}

	rec.ID = uuid.UUID(id.Bytes)
	rec.TargetDate = rec.TargetDate.UTC()
	rec.Itinerary, err = decodeItinerary(items)
	if err != nil {
		return domain.TripRecord{}, err
	}
	return rec, nil
}

// encodeItinerary serializes items for the jsonb column. A nil slice is
// stored as [] so readers never see null.
func encodeItinerary(items []domain.ItineraryItem) ([]byte, error) {
	if items == nil {
		items = []domain.ItineraryItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode itinerary: %w", err)
	}
	return b, nil
}

func decodeItinerary(raw []byte) ([]domain.ItineraryItem, error) {
	items := []domain.ItineraryItem{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}
	return items, nil
}
