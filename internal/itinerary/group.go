// Package itinerary groups, drafts, and validates itinerary items.
package itinerary

import (
	"sort"

	"github.com/pkordes/trip-countdown/internal/domain"
)

// UndatedKey is the group key for items without a date.
const UndatedKey = "TBD"

// DayGroup is the set of items scheduled on one date, in stored order.
type DayGroup struct {
	Date  string                 `json:"date"`
	Items []domain.ItineraryItem `json:"items"`
}

// GroupByDate partitions items by Date and returns the groups in ascending
// string order of their key. Items keep their relative order within a day;
// they are not sorted by time. Undated items land in the UndatedKey group,
// which sorts like any other key. Empty input returns nil.
func GroupByDate(items []domain.ItineraryItem) []DayGroup {
	if len(items) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []DayGroup
	for _, item := range items {
		key := item.Date
		if key == "" {
			key = UndatedKey
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: key})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Date < groups[b].Date
	})
	return groups
}
