// Package timeutil holds the session time arithmetic shared by the API
// service, the timer daemon, and the stats queries. All functions are pure
// and clamp to non-negative results.
package timeutil

import (
	"math"
	"time"
)

// Snapshot is the subset of a session record needed for time arithmetic.
// Pointer fields are nil when the corresponding timestamp was never set.
type Snapshot struct {
	StartedAt        time.Time
	DurationMinutes  int
	RemainingSeconds *int
	PausedAt         *time.Time
	CompletedAt      *time.Time
	EndedAt          *time.Time
}

// ElapsedSeconds returns whole seconds elapsed between startedAt and now.
// Clock skew producing a negative delta clamps to zero.
func ElapsedSeconds(startedAt, now time.Time) int {
	delta := now.Sub(startedAt)
	if delta < 0 {
		return 0
	}
	return int(delta / time.Second)
}

// Remaining returns the seconds left on a countdown anchored at startedAt
// with the given planned duration. The result is always within
// [0, durationMinutes*60].
func Remaining(startedAt time.Time, durationMinutes int, now time.Time) int {
	if durationMinutes <= 0 {
		return 0
	}
	total := durationMinutes * 60
	left := total - ElapsedSeconds(startedAt, now)
	if left < 0 {
		return 0
	}
	if left > total {
		return total
	}
	return left
}

// EffectiveMinutes computes worked minutes for statistics, distinct from the
// live countdown. The stored RemainingSeconds snapshot wins when present and
// plausible since it is exact for manual stops; otherwise the wall-clock
// interval up to the effective end is used, capped at the planned duration.
func EffectiveMinutes(s Snapshot) int {
	if s.DurationMinutes <= 0 {
		return 0
	}
	plannedSeconds := s.DurationMinutes * 60

	if s.RemainingSeconds != nil && *s.RemainingSeconds >= 0 && *s.RemainingSeconds <= plannedSeconds {
		workedSeconds := plannedSeconds - *s.RemainingSeconds
		worked := int(math.Round(float64(workedSeconds) / 60.0))
		if worked == 0 && workedSeconds > 0 {
			// Any nonzero work counts as at least one minute.
			return 1
		}
		if worked > s.DurationMinutes {
			return s.DurationMinutes
		}
		if worked < 0 {
			return 0
		}
		return worked
	}

	if end, ok := effectiveEnd(s); ok {
		elapsed := ElapsedSeconds(s.StartedAt, end)
		worked := int(math.Round(float64(elapsed) / 60.0))
		if worked == 0 && elapsed > 0 {
			return 1
		}
		if worked > s.DurationMinutes {
			return s.DurationMinutes
		}
		return worked
	}

	return s.DurationMinutes
}

// effectiveEnd picks the timestamp that terminates the worked interval.
// When both a pause and a completion are recorded the earlier one wins, so
// an inconsistent pausedAt after completedAt cannot inflate the result.
func effectiveEnd(s Snapshot) (time.Time, bool) {
	end := s.CompletedAt
	if end == nil {
		end = s.EndedAt
	}

	if s.PausedAt != nil && end != nil {
		if s.PausedAt.Before(*end) {
			return *s.PausedAt, true
		}
		return *end, true
	}
	if s.PausedAt != nil {
		return *s.PausedAt, true
	}
	if end != nil {
		return *end, true
	}
	return time.Time{}, false
}
