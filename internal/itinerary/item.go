package itinerary

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-countdown/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// DefaultTime is the time-of-day given to a freshly drafted item.
	DefaultTime = "12:00"
)

// NewItem returns a blank item for the editor: a fresh id, today's date in
// loc, and DefaultTime.
func NewItem(now time.Time, loc *time.Location) domain.ItineraryItem {
	return domain.ItineraryItem{
		ID:   uuid.NewString(),
		Date: now.In(loc).Format(dateLayout),
		Time: DefaultTime,
	}
}

// AssignIDs returns a copy of items where every missing id has been filled
// in by newID. Existing ids are kept so items stay stable across saves.
func AssignIDs(items []domain.ItineraryItem, newID func() string) []domain.ItineraryItem {
	out := make([]domain.ItineraryItem, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			item.ID = newID()
		}
		out[i] = item
	}
	return out
}

// Validate checks the rules an itinerary must satisfy before it is saved.
// Every violation wraps domain.ErrValidation.
func Validate(items []domain.ItineraryItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Activity) == "" {
			return fmt.Errorf("%w: itinerary item %d: activity is required", domain.ErrValidation, i+1)
		}
		if item.ID != "" {
			if _, dup := seen[item.ID]; dup {
				return fmt.Errorf("%w: itinerary item %d: duplicate id %q", domain.ErrValidation, i+1, item.ID)
			}
			seen[item.ID] = struct{}{}
		}
		if item.Date != "" {
			if _, err := time.Parse(dateLayout, item.Date); err != nil {
				return fmt.Errorf("%w: itinerary item %d: date must be YYYY-MM-DD", domain.ErrValidation, i+1)
			}
		}
		if item.Time != "" {
			if _, err := time.Parse(timeLayout, item.Time); err != nil {
				return fmt.Errorf("%w: itinerary item %d: time must be HH:mm", domain.ErrValidation, i+1)
			}
		}
	}
	return nil
}
