// Package domain contains the core data types for the trip countdown service.
// This package has no dependencies on other internal packages and is imported
// by every one of them (countdown, itinerary, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripState is the full trip snapshot: where, when, and what is planned.
// It is treated as one atomic unit: the configuration store replaces it
// wholesale and never mutates a published value.
type TripState struct {
	Destination   string          `json:"destination"`
	TargetInstant time.Time       `json:"target_date"`
	Itinerary     []ItineraryItem `json:"itinerary"`
}

// ItineraryItem is one scheduled activity.
// Date is "2006-01-02" and Time is "15:04"; both may be empty while drafting.
type ItineraryItem struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Activity string `json:"activity"`
	Location string `json:"location,omitempty"`
}

// TripRecord is a row in the remote, append-only trip store.
type TripRecord struct {
	ID          uuid.UUID       `json:"id"`
	Destination string          `json:"destination"`
	TargetDate  time.Time       `json:"target_date"`
	Itinerary   []ItineraryItem `json:"itinerary"`
	CreatedAt   time.Time       `json:"created_at"`
}

// State converts a remote record into the in-memory trip state.
func (r TripRecord) State() TripState {
	items := r.Itinerary
	if items == nil {
		items = []ItineraryItem{}
	}
	return TripState{
		Destination:   r.Destination,
		TargetInstant: r.TargetDate.UTC(),
		Itinerary:     items,
	}
}

// DefaultTripState is the state used when nothing has been stored yet:
// no destination, a target of January 1st next year (local midnight), and
// an empty itinerary.
func DefaultTripState(now time.Time, loc *time.Location) TripState {
	local := now.In(loc)
	target := time.Date(local.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
	return TripState{
		TargetInstant: target.UTC(),
		Itinerary:     []ItineraryItem{},
	}
}

// Clone returns a copy whose itinerary does not share backing storage
// with the receiver.
func (s TripState) Clone() TripState {
	items := make([]ItineraryItem, len(s.Itinerary))
	copy(items, s.Itinerary)
	s.Itinerary = items
	return s
}
