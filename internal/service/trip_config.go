// Package service contains the business logic for the trip countdown service.
// Services validate inputs, enforce business rules, and orchestrate the local
// and remote stores. No SQL lives here; services depend on store interfaces.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-countdown/internal/domain"
	"github.com/pkordes/trip-countdown/internal/itinerary"
	"github.com/pkordes/trip-countdown/internal/localstore"
	"github.com/pkordes/trip-countdown/internal/repo"
)

// TripConfigStore owns the trip state. It is the only writer: it loads the
// state at startup, replaces it on every save, and mirrors it to the local
// store (authoritative) and the remote store (best effort).
//
// Readers call Current or Watch. A published TripState is never modified;
// every change swaps in a new value.
type TripConfigStore struct {
	local  localstore.Store
	remote repo.TripRepo // nil when no remote store is configured

	loc   *time.Location
	now   func() time.Time
	newID func() string
	log   *slog.Logger

	// remoteTimeout bounds each remote call; zero means no bound.
	remoteTimeout time.Duration

	state atomic.Pointer[domain.TripState]

	// writeMu orders the memory swap, the local write and the broadcast of
	// each commit so the local store and watchers always end up holding the
	// latest in-memory state.
	writeMu sync.Mutex

	// pending tracks background remote writes.
	pending sync.WaitGroup

	subsMu sync.Mutex
	subs   map[chan domain.TripState]struct{}
}

// Option configures a TripConfigStore.
type Option func(*TripConfigStore)

// WithLocation sets the zone raw date-times are interpreted in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *TripConfigStore) { s.loc = loc }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TripConfigStore) { s.now = now }
}

// WithIDGenerator overrides the generator used for new itinerary ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *TripConfigStore) { s.newID = newID }
}

// WithRemoteTimeout bounds every remote read and write, including background
// replication that has outlived its request.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *TripConfigStore) { s.remoteTimeout = d }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *TripConfigStore) { s.log = l }
}

// NewTripConfigStore constructs a store holding the default trip state.
// Pass a nil remote when no remote store is configured.
func NewTripConfigStore(local localstore.Store, remote repo.TripRepo, opts ...Option) *TripConfigStore {
	s := &TripConfigStore{
		local:  local,
		remote: remote,
		loc:    time.Local,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    slog.Default(),
		subs:   make(map[chan domain.TripState]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := domain.DefaultTripState(s.now(), s.loc)
	s.state.Store(&initial)
	return s
}

// Location returns the zone raw date-times are interpreted in.
func (s *TripConfigStore) Location() *time.Location {
	return s.loc
}

// Current returns a copy of the current trip state.
func (s *TripConfigStore) Current() domain.TripState {
	return s.state.Load().Clone()
}

// Load restores the state at startup: local store first, then the most recent
// remote snapshot if one is reachable. Remote problems are logged and
// otherwise ignored.
func (s *TripConfigStore) Load(ctx context.Context) domain.TripState {
	if _, err := s.LoadLocal(ctx); err != nil {
		s.log.WarnContext(ctx, "local store read failed; using defaults", "error", err)
	}
	s.Resync(ctx)
	return s.Current()
}

// Resync runs SyncFromRemote and logs its outcome: debug when no remote is
// configured, info when it is empty, warn on failure.
func (s *TripConfigStore) Resync(ctx context.Context) {
	if err := s.SyncFromRemote(ctx); err != nil {
		s.logRemote(ctx, "load", err)
	}
}

// LoadLocal replaces the state with what the local store holds. Missing keys
// keep their defaults. A corrupt date or itinerary is logged and replaced by
// the default rather than failing the load.
func (s *TripConfigStore) LoadLocal(ctx context.Context) (domain.TripState, error) {
	next := domain.DefaultTripState(s.now(), s.loc)

	dest, ok, err := s.local.Get(ctx, localstore.KeyDestination)
	if err != nil {
		return s.Current(), fmt.Errorf("service.TripConfigStore.LoadLocal: %w", err)
	}
	if ok {
		next.Destination = dest
	}

	rawDate, ok, err := s.local.Get(ctx, localstore.KeyDate)
	if err != nil {
		return s.Current(), fmt.Errorf("service.TripConfigStore.LoadLocal: %w", err)
	}
	if ok {
		if t, err := domain.ParseInstant(rawDate); err != nil {
			s.log.WarnContext(ctx, "stored trip date is malformed; using default", "value", rawDate, "error", err)
		} else {
			next.TargetInstant = t
		}
	}

	rawItems, ok, err := s.local.Get(ctx, localstore.KeyItinerary)
	if err != nil {
		return s.Current(), fmt.Errorf("service.TripConfigStore.LoadLocal: %w", err)
	}
	if ok {
		if items, err := decodeItinerary(rawItems); err != nil {
			s.log.WarnContext(ctx, "stored itinerary is malformed; using empty itinerary", "error", err)
		} else {
			next.Itinerary = items
		}
	}

	s.writeMu.Lock()
	s.state.Store(&next)
	s.broadcast(next)
	s.writeMu.Unlock()

	return next.Clone(), nil
}

// SyncFromRemote replaces the state with the newest remote snapshot and
// mirrors it into the local store.
//
// Errors: domain.ErrRemoteUnconfigured when there is no remote store,
// domain.ErrNotFound when it holds no snapshots, domain.ErrRemoteRead for
// transport failures. If a save commits while the read is in flight, the
// save wins and the remote snapshot is dropped.
func (s *TripConfigStore) SyncFromRemote(ctx context.Context) error {
	if s.remote == nil {
		return fmt.Errorf("service.TripConfigStore.SyncFromRemote: %w", domain.ErrRemoteUnconfigured)
	}

	before := s.state.Load()

	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	rec, err := s.remote.Latest(rctx)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("service.TripConfigStore.SyncFromRemote: %w", err)
	}
	if err != nil {
		return fmt.Errorf("service.TripConfigStore.SyncFromRemote: %w: %w", domain.ErrRemoteRead, err)
	}

	next := rec.State()

	s.writeMu.Lock()
	if s.state.Load() != before {
		s.writeMu.Unlock()
		s.log.InfoContext(ctx, "remote snapshot superseded by a newer local save", "record_id", rec.ID)
		return nil
	}
	s.state.Store(&next)
	err = s.writeLocal(ctx, next)
	s.broadcast(next)
	s.writeMu.Unlock()

	s.log.InfoContext(ctx, "trip loaded from remote store", "record_id", rec.ID, "destination", next.Destination)

	if err != nil {
		return fmt.Errorf("service.TripConfigStore.SyncFromRemote: mirror to local: %w", err)
	}
	return nil
}

// Save validates the input, then commits it as the new trip state: memory
// first, then the local store, then (in the background) the remote store.
//
// rawLocalDateTime is a wall-clock value such as "2025-06-01T09:00" and is
// read in the store's location. Itinerary items without an id get one.
//
// A returned error is either domain.ErrValidation (nothing was changed) or a
// local store failure (memory already holds the new state). Remote failures
// are never returned; see PushRemote.
func (s *TripConfigStore) Save(ctx context.Context, destination, rawLocalDateTime string, items []domain.ItineraryItem) (domain.TripState, error) {
	dest := strings.TrimSpace(destination)
	if dest == "" {
		return domain.TripState{}, fmt.Errorf("service.TripConfigStore.Save: %w: destination is required", domain.ErrValidation)
	}

	target, err := domain.NormalizeLocalDateTime(rawLocalDateTime, s.loc)
	if err != nil {
		return domain.TripState{}, fmt.Errorf("service.TripConfigStore.Save: %w", err)
	}

	items = itinerary.AssignIDs(items, s.newID)
	if err := itinerary.Validate(items); err != nil {
		return domain.TripState{}, fmt.Errorf("service.TripConfigStore.Save: %w", err)
	}

	next := domain.TripState{
		Destination:   dest,
		TargetInstant: target,
		Itinerary:     items,
	}

	s.writeMu.Lock()
	s.state.Store(&next)
	localErr := s.writeLocal(ctx, next)
	s.broadcast(next)
	s.writeMu.Unlock()

	s.replicate(ctx, next)

	if localErr != nil {
		return next.Clone(), fmt.Errorf("service.TripConfigStore.Save: %w", localErr)
	}
	s.log.InfoContext(ctx, "trip saved",
		"destination", next.Destination,
		"target_date", domain.FormatInstant(next.TargetInstant),
		"items", len(next.Itinerary),
	)
	return next.Clone(), nil
}

// PushRemote appends state to the remote store as a new record.
// Errors: domain.ErrRemoteUnconfigured or domain.ErrRemoteWrite.
func (s *TripConfigStore) PushRemote(ctx context.Context, state domain.TripState) error {
	if s.remote == nil {
		return fmt.Errorf("service.TripConfigStore.PushRemote: %w", domain.ErrRemoteUnconfigured)
	}

	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	rec, err := s.remote.Insert(rctx, domain.TripRecord{
		Destination: state.Destination,
		TargetDate:  state.TargetInstant,
		Itinerary:   state.Itinerary,
	})
	if err != nil {
		return fmt.Errorf("service.TripConfigStore.PushRemote: %w: %w", domain.ErrRemoteWrite, err)
	}

	s.log.DebugContext(ctx, "trip replicated to remote store", "record_id", rec.ID)
	return nil
}

// History lists remote snapshots, newest first.
// Errors: domain.ErrRemoteUnconfigured or domain.ErrRemoteRead.
func (s *TripConfigStore) History(ctx context.Context, page domain.PaginationParams) ([]domain.TripRecord, int64, error) {
	if s.remote == nil {
		return nil, 0, fmt.Errorf("service.TripConfigStore.History: %w", domain.ErrRemoteUnconfigured)
	}

	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	records, total, err := s.remote.List(rctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripConfigStore.History: %w: %w", domain.ErrRemoteRead, err)
	}
	return records, total, nil
}

// Wait blocks until every background remote write started by Save has finished.
func (s *TripConfigStore) Wait() {
	s.pending.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if writes are
// still pending when ctx is done.
func (s *TripConfigStore) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("service.TripConfigStore.WaitContext: %w", ctx.Err())
	}
}

// Watch returns a channel that receives the state after every commit.
// Only the latest state is buffered: a slow reader skips intermediate values.
// The channel is closed when ctx is done.
func (s *TripConfigStore) Watch(ctx context.Context) <-chan domain.TripState {
	ch := make(chan domain.TripState, 1)

	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.subsMu.Unlock()
	}()

	return ch
}

func (s *TripConfigStore) broadcast(state domain.TripState) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- state.Clone():
		default:
			// Drop the stale value; we are the only sender, so the send below cannot block.
			select {
			case <-ch:
			default:
			}
			ch <- state.Clone()
		}
	}
}

// replicate starts a background remote write for state. The caller's
// cancellation does not abort it; the remote timeout bounds it.
func (s *TripConfigStore) replicate(ctx context.Context, state domain.TripState) {
	if s.remote == nil {
		s.log.DebugContext(ctx, "remote store not configured; skipping replication")
		return
	}

	bg := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.PushRemote(bg, state); err != nil {
			s.logRemote(bg, "save", err)
		}
	}()
}

// remoteContext derives the context for one remote call.
func (s *TripConfigStore) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.remoteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.remoteTimeout)
}

func (s *TripConfigStore) writeLocal(ctx context.Context, state domain.TripState) error {
	items, err := encodeItinerary(state.Itinerary)
	if err != nil {
		return fmt.Errorf("write local: %w", err)
	}
	err = s.local.SetMany(ctx, map[string]string{
		localstore.KeyDestination: state.Destination,
		localstore.KeyDate:        domain.FormatInstant(state.TargetInstant),
		localstore.KeyItinerary:   items,
	})
	if err != nil {
		return fmt.Errorf("write local: %w", err)
	}
	return nil
}

// logRemote reduces a remote-store result to a log line at the right level.
func (s *TripConfigStore) logRemote(ctx context.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrRemoteUnconfigured):
		s.log.DebugContext(ctx, "remote store not configured", "op", op)
	case errors.Is(err, domain.ErrNotFound):
		s.log.InfoContext(ctx, "remote store has no trip yet", "op", op)
	default:
		s.log.WarnContext(ctx, "remote store sync failed", "op", op, "error", err)
	}
}

func encodeItinerary(items []domain.ItineraryItem) (string, error) {
	if items == nil {
		items = []domain.ItineraryItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeItinerary(raw string) ([]domain.ItineraryItem, error) {
	items := []domain.ItineraryItem{}
	if strings.TrimSpace(raw) == "" || raw == "null" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ItineraryItem{}
	}
	return items, nil
}
