// Package localstore is the on-device, string-keyed persistent store.
// It is the authoritative copy of the trip for the running session.
package localstore

import "context"

// Keys under which the trip snapshot is stored.
const (
	KeyDestination = "tripDestination"
	KeyDate        = "tripDate"
	KeyItinerary   = "tripItinerary"
)

// Store is a persistent string-to-string map.
type Store interface {
	// Get returns the value for key. ok is false when the key has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetMany writes all entries atomically: either every key is updated or none is.
	SetMany(ctx context.Context, entries map[string]string) error
}
