package ledger

import "time"

// IsDue reports whether a recurring definition should materialize an
// occurrence on the target date. It is a pure function: the caller supplies
// the target date (resolving "today" is the call site's job), and identical
// inputs always give identical results.
func IsDue(def *RecurringDefinition, target time.Time) bool {
	start, err := ParseDate(def.StartDate)
	if err != nil {
		return false
	}

	// Only the calendar date matters
	target = time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)

	if target.Before(start) {
		return false
	}
	if def.EndDate != "" {
		// End date is inclusive: firing stops once target is strictly past it
		if end, err := ParseDate(def.EndDate); err == nil && target.After(end) {
			return false
		}
	}

	var last time.Time
	hasLast := false
	if def.LastProcessedDate != "" {
		if t, err := ParseDate(def.LastProcessedDate); err == nil {
			last, hasLast = t, true
		}
	}

	switch def.RepeatType {
	case RepeatDaily:
		return !hasLast || target.After(last)

	case RepeatWeekly:
		if def.RepeatDay != nil && int(target.Weekday()) != *def.RepeatDay {
			return false
		}
		if !hasLast {
			return true
		}
		// At least seven elapsed days, not distinct calendar weeks
		return target.Sub(last) >= 7*24*time.Hour

	case RepeatMonthly:
		if def.RepeatDay != nil && target.Day() != *def.RepeatDay {
			return false
		}
		if !hasLast {
			return true
		}
		return target.Year() > last.Year() ||
			(target.Year() == last.Year() && target.Month() > last.Month())

	case RepeatYearly:
		// The start date establishes the anniversary; within any year the
		// definition only becomes due on or after that month and day
		if !onOrAfterAnniversary(target, start) {
			return false
		}
		return !hasLast || target.Year() > last.Year()
	}

	return false
}

func onOrAfterAnniversary(target, start time.Time) bool {
	if target.Month() != start.Month() {
		return target.Month() > start.Month()
	}
	return target.Day() >= start.Day()
}
