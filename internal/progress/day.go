package progress

// DefaultDuration is the length of a sprint when none is recorded.
const DefaultDuration = 30

// CurrentDay returns which day of a sprint today falls on, counting the start
// date itself as day 1. The result is always within [1, duration].
// A zero start is treated as day 1; a duration below 1 means DefaultDuration.
func CurrentDay(start, today Date, duration int) int {
	if duration < 1 {
		duration = DefaultDuration
	}
	if start.IsZero() {
		return 1
	}

	day := DaysBetween(start, today) + 1
	if day < 1 {
		return 1
	}
	if day > duration {
		return duration
	}
	return day
}

// DaysRemaining returns how many sprint days are left after the current day.
func DaysRemaining(start, today Date, duration int) int {
	if duration < 1 {
		duration = DefaultDuration
	}
	return duration - CurrentDay(start, today, duration)
}

// Percent returns completed/duration as a whole percentage, capped at 100.
func Percent(completed, duration int) int {
	if duration < 1 {
		duration = DefaultDuration
	}
	if completed <= 0 {
		return 0
	}
	p := completed * 100 / duration
	if p > 100 {
		return 100
	}
	return p
}
