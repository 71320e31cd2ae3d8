package progress

import "sort"

// Streak is the consecutive-day activity counter for one user.
type Streak struct {
	Current      int
	Longest      int
	LastActivity Date
}

// Transition names the branch Advance took.
type Transition int

const (
	// Started means no streak existed before.
	Started Transition = iota
	// Unchanged means activity was already counted today.
	Unchanged
	// Extended means the last activity was yesterday.
	Extended
	// Reset means the last activity was older, missing or in the future.
	Reset
)

func (t Transition) String() string {
	switch t {
	case Started:
		return "started"
	case Unchanged:
		return "unchanged"
	case Extended:
		return "extended"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Advance applies one day of activity on today to prev. A nil prev means the
// user has no streak yet. The returned streak's Longest never decreases.
func Advance(prev *Streak, today Date) (Streak, Transition) {
	if prev == nil {
		return Streak{Current: 1, Longest: 1, LastActivity: today}, Started
	}

	next := *prev
	switch {
	case prev.LastActivity.Equal(today):
		return next, Unchanged
	case !prev.LastActivity.IsZero() && prev.LastActivity.AddDays(1).Equal(today):
		next.Current = prev.Current + 1
		next.LastActivity = today
		if next.Current > next.Longest {
			next.Longest = next.Current
		}
		return next, Extended
	default:
		next.Current = 1
		next.LastActivity = today
		if next.Longest < 1 {
			next.Longest = 1
		}
		return next, Reset
	}
}

// Active reports whether the streak can still be continued today, i.e. the
// last activity was today or yesterday.
func (s Streak) Active(today Date) bool {
	if s.LastActivity.IsZero() {
		return false
	}
	return s.LastActivity.Equal(today) || s.LastActivity.AddDays(1).Equal(today)
}

// Replay folds a history of activity dates through Advance in calendar order.
// Duplicate dates count once. It returns nil for an empty history.
func Replay(dates []Date) *Streak {
	if len(dates) == 0 {
		return nil
	}

	sorted := make([]Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var s *Streak
	for _, d := range sorted {
		next, _ := Advance(s, d)
		s = &next
	}
	return s
}
