package domain

import "time"

const (
	MinETAMinutes = 1
	MaxETAMinutes = 120
)

func ValidateETA(minutes int) error {
	if minutes < MinETAMinutes || minutes > MaxETAMinutes {
		return Invalid("minutes", "must be between 1 and 120")
	}
	return nil
}

// RemainingMinutes counts down from estimated in whole elapsed minutes and
// stops at zero. A baseline in the future counts as no time elapsed.
func RemainingMinutes(estimated int, setAt, now time.Time) int {
	elapsed := now.Sub(setAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := estimated - int(elapsed/time.Minute)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingETA reports false when no estimate was ever set, which is not the
// same as zero minutes left.
func (o Order) RemainingETA(now time.Time) (int, bool) {
	if o.EstimatedMinutes == nil || o.ETASetAt == nil {
		return 0, false
	}
	return RemainingMinutes(*o.EstimatedMinutes, *o.ETASetAt, now), true
}
