// Package countdown turns a target instant into the days/hours/minutes/seconds
// remaining, and owns the once-per-second refresh loop that keeps it current.
package countdown

import (
	"time"

	"github.com/pkordes/trip-countdown/internal/domain"
)

const (
	msPerDay    = 86_400_000
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1_000
)

// Remaining computes the time left from now until target.
//
// A nil target yields an all-zero, unfinished countdown. A target at or
// before now yields an all-zero, finished countdown.
func Remaining(target *time.Time, now time.Time) domain.CountdownTime {
	if target == nil {
		return domain.CountdownTime{}
	}

	diff := target.Sub(now).Milliseconds()
	if diff <= 0 {
		return domain.CountdownTime{IsFinished: true}
	}

	return domain.CountdownTime{
		Days:    diff / msPerDay,
		Hours:   (diff / msPerHour) % 24,
		Minutes: (diff / msPerMinute) % 60,
		Seconds: (diff / msPerSecond) % 60,
	}
}

// TargetOf returns a pointer to the state's target, or nil when unset.
func TargetOf(s domain.TripState) *time.Time {
	if s.TargetInstant.IsZero() {
		return nil
	}
	t := s.TargetInstant
	return &t
}
