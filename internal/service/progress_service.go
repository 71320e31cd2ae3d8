package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"skillsprint/internal/database"
	"skillsprint/internal/metrics"
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
	"skillsprint/internal/realtime"
	"skillsprint/internal/repository"
	"skillsprint/internal/validation"
)

// StreakWarning is shown when a completion was saved but the streak could not be updated
const StreakWarning = "Your task was saved, but we couldn't update your streak. It will catch up next time."

// maxStreakAttempts bounds the compare-and-swap retries in UpdateStreak
const maxStreakAttempts = 5

// ProgressService records task completions and keeps streaks current
type ProgressService struct {
	db        *database.DB
	sprints   *repository.SprintRepository
	progress  *repository.ProgressRepository
	users     *repository.UserRepository
	publisher realtime.Publisher
	metrics   *metrics.Metrics
	loc       *time.Location
	now       func() time.Time
}

// NewProgressService creates a progress service. loc is the time zone used
// for users without one of their own. publisher and m may be nil.
func NewProgressService(db *database.DB, loc *time.Location, publisher realtime.Publisher, m *metrics.Metrics) *ProgressService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressService{
		db:        db,
		sprints:   repository.NewSprintRepository(db),
		progress:  repository.NewProgressRepository(db),
		users:     repository.NewUserRepository(db),
		publisher: publisher,
		metrics:   m,
		loc:       loc,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by the CLI harness and tests.
func (s *ProgressService) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current calendar day in the user's time zone
func (s *ProgressService) Today(userID int64) (progress.Date, error) {
	loc := s.loc
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return progress.Date{}, persistErr("load user", err)
	}
	if user != nil {
		loc = progress.Location(user.Timezone, s.loc)
	}
	return progress.DateOf(s.now(), loc), nil
}

func (s *ProgressService) visibleSprint(userID, sprintID int64) (*models.Sprint, error) {
	sprint, err := s.sprints.GetSprint(sprintID)
	if err != nil {
		return nil, persistErr("load sprint", err)
	}
	if sprint == nil || !sprint.VisibleTo(userID) {
		return nil, ErrNotFound
	}
	return sprint, nil
}

// StartSprint enrolls a user in a sprint starting today. Starting a sprint
// that is already in progress returns the existing row.
func (s *ProgressService) StartSprint(userID, sprintID int64) (*models.UserProgress, error) {
	if _, err := s.visibleSprint(userID, sprintID); err != nil {
		return nil, err
	}

	existing, err := s.progress.GetProgress(userID, sprintID)
	if err != nil {
		return nil, persistErr("load progress", err)
	}
	if existing != nil {
		return existing, nil
	}

	today, err := s.Today(userID)
	if err != nil {
		return nil, err
	}
	if err := s.progress.UpsertProgress(userID, sprintID, today, 1, false, nil); err != nil {
		return nil, persistErr("start sprint", err)
	}

	p, err := s.progress.GetProgress(userID, sprintID)
	if err != nil {
		return nil, persistErr("load progress", err)
	}
	return p, nil
}

// RecordCompletion marks day of a sprint completed or not completed for a
// user. Repeating a call leaves the same stored state. Nothing is written
// when any step fails.
func (s *ProgressService) RecordCompletion(userID, sprintID int64, day int, completed bool) (*models.UserProgress, error) {
	saved, _, err := s.recordCompletion(userID, sprintID, day, completed)
	return saved, err
}

// recordCompletion also reports whether a new day completion was stored
func (s *ProgressService) recordCompletion(userID, sprintID int64, day int, completed bool) (*models.UserProgress, bool, error) {
	sprint, err := s.visibleSprint(userID, sprintID)
	if err != nil {
		return nil, false, err
	}
	duration := sprint.Duration
	if duration < 1 {
		duration = progress.DefaultDuration
	}
	if day < 1 || day > duration {
		return nil, false, validation.ValidationError{
			Field:   "day",
			Message: fmt.Sprintf("day must be between 1 and %d", duration),
		}
	}

	today, err := s.Today(userID)
	if err != nil {
		return nil, false, err
	}
	now := s.now()

	var saved *models.UserProgress
	var newlyDone bool
	err = s.db.WithTx(func(tx *database.Tx) error {
		repo := s.progress.WithTx(tx)

		var completedDate *time.Time
		if completed {
			completedDate = &now
		}
		if err := repo.UpsertProgress(userID, sprintID, today, day, completed, completedDate); err != nil {
			return err
		}

		if completed {
			inserted, err := repo.MarkDay(userID, sprintID, day, today, now)
			if err != nil {
				return err
			}
			newlyDone = inserted
		} else {
			if _, err := repo.UnmarkDay(userID, sprintID, day); err != nil {
				return err
			}
		}

		p, err := repo.GetProgress(userID, sprintID)
		if err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, false, persistErr("record completion", err)
	}

	s.metrics.TaskCompletion(completed)
	s.publish(realtime.Event{
		Type:      realtime.EventProgress,
		UserID:    userID,
		SprintID:  sprintID,
		Day:       day,
		Completed: completed,
	})
	return saved, newlyDone, nil
}

// UpdateStreak applies today's activity to the user's streak. Concurrent
// callers are serialized by compare-and-swap so a day is never counted twice.
func (s *ProgressService) UpdateStreak(userID int64) (progress.Streak, progress.Transition, error) {
	today, err := s.Today(userID)
	if err != nil {
		return progress.Streak{}, progress.Unchanged, err
	}

	if err := s.progress.EnsureStreak(userID); err != nil {
		return progress.Streak{}, progress.Unchanged, persistErr("create streak", err)
	}

	for attempt := 0; attempt < maxStreakAttempts; attempt++ {
		row, err := s.progress.GetStreak(userID)
		if err != nil {
			return progress.Streak{}, progress.Unchanged, persistErr("load streak", err)
		}
		if row == nil {
			return progress.Streak{}, progress.Unchanged, persistErr("load streak", fmt.Errorf("streak row for user %d missing", userID))
		}

		prev := row.State()
		var prevPtr *progress.Streak
		if prev != (progress.Streak{}) {
			prevPtr = &prev
		}

		next, transition := progress.Advance(prevPtr, today)
		if transition == progress.Unchanged {
			return next, transition, nil
		}

		swapped, err := s.progress.SwapStreak(userID, prev, next)
		if err != nil {
			return progress.Streak{}, progress.Unchanged, persistErr("update streak", err)
		}
		if swapped {
			s.metrics.StreakTransition(transition.String())
			s.publish(realtime.Event{
				Type:   realtime.EventStreak,
				UserID: userID,
				Streak: snapshot(next, transition),
			})
			return next, transition, nil
		}
	}

	return progress.Streak{}, progress.Unchanged, persistErr("update streak",
		fmt.Errorf("gave up after %d concurrent updates", maxStreakAttempts))
}

// CompletionResult is the outcome of CompleteTask
type CompletionResult struct {
	Progress   *models.UserProgress
	Streak     progress.Streak
	Transition progress.Transition
	Warning    string
}

// CompleteTask records a completion and, when a day not already done was
// completed, updates the streak. A streak failure does not undo the
// completion; it is reported through Warning instead.
func (s *ProgressService) CompleteTask(userID, sprintID int64, day int, completed bool) (*CompletionResult, error) {
	saved, newlyDone, err := s.recordCompletion(userID, sprintID, day, completed)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Progress: saved, Transition: progress.Unchanged}
	if newlyDone {
		streak, transition, err := s.UpdateStreak(userID)
		if err != nil {
			log.Printf("Streak update failed for user %d: %v", userID, err)
			result.Warning = StreakWarning
		} else {
			result.Streak = streak
			result.Transition = transition
		}
		return result, nil
	}

	streak, _, err := s.Streak(userID)
	if err != nil {
		log.Printf("Failed to load streak for user %d: %v", userID, err)
	} else {
		result.Streak = streak
	}
	return result, nil
}

// Streak returns the stored streak and whether it can still be continued today
func (s *ProgressService) Streak(userID int64) (progress.Streak, bool, error) {
	row, err := s.progress.GetStreak(userID)
	if err != nil {
		return progress.Streak{}, false, persistErr("load streak", err)
	}
	if row == nil {
		return progress.Streak{}, false, nil
	}
	today, err := s.Today(userID)
	if err != nil {
		return progress.Streak{}, false, err
	}
	state := row.State()
	return state, state.Active(today), nil
}

// RecomputeStreak rebuilds a user's streak from their completion history.
// The stored longest streak is kept if it is higher than the replayed one.
func (s *ProgressService) RecomputeStreak(userID int64) (progress.Streak, error) {
	dates, err := s.progress.CompletionDates(userID)
	if err != nil {
		return progress.Streak{}, persistErr("load completion history", err)
	}

	var rebuilt progress.Streak
	if replayed := progress.Replay(dates); replayed != nil {
		rebuilt = *replayed
	}

	existing, err := s.progress.GetStreak(userID)
	if err != nil {
		return progress.Streak{}, persistErr("load streak", err)
	}
	if existing != nil && existing.LongestStreak > rebuilt.Longest {
		rebuilt.Longest = existing.LongestStreak
	}

	if err := s.progress.PutStreak(userID, rebuilt); err != nil {
		return progress.Streak{}, persistErr("store streak", err)
	}
	return rebuilt, nil
}

// RecomputeAllStreaks runs RecomputeStreak for every user with history
func (s *ProgressService) RecomputeAllStreaks() (int, error) {
	ids, err := s.progress.UsersWithCompletions()
	if err != nil {
		return 0, persistErr("list users", err)
	}
	for _, id := range ids {
		if _, err := s.RecomputeStreak(id); err != nil {
			return 0, fmt.Errorf("user %d: %w", id, err)
		}
	}
	return len(ids), nil
}

// RepairStartDate replaces a missing or malformed start date with today and
// returns the updated row. Valid start dates are left alone.
func (s *ProgressService) RepairStartDate(userID, sprintID int64) (*models.UserProgress, error) {
	p, err := s.progress.GetProgress(userID, sprintID)
	if err != nil {
		return nil, persistErr("load progress", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if !p.StartDate.IsZero() {
		return p, nil
	}

	today, err := s.Today(userID)
	if err != nil {
		return nil, err
	}
	log.Printf("Repairing start date for user %d sprint %d (was %q)", userID, sprintID, p.RawStartDate)
	if err := s.progress.SetStartDate(userID, sprintID, today); err != nil {
		return nil, persistErr("repair start date", err)
	}
	p.StartDate = today
	p.RawStartDate = ""
	return p, nil
}

// Enrollment describes a user's standing in one sprint
type Enrollment struct {
	Progress      *models.UserProgress
	CompletedDays map[int]bool
	CurrentDay    int
	DaysRemaining int
	PercentDone   int
}

// Enrollment returns the user's progress in sprint, or nil if not enrolled.
// A bad stored start date is repaired on the way.
func (s *ProgressService) Enrollment(userID int64, sprint *models.Sprint) (*Enrollment, error) {
	p, err := s.progress.GetProgress(userID, sprint.ID)
	if err != nil {
		return nil, persistErr("load progress", err)
	}
	if p == nil {
		return nil, nil
	}
	if p.StartDate.IsZero() {
		if p, err = s.RepairStartDate(userID, sprint.ID); err != nil {
			return nil, err
		}
	}

	days, err := s.progress.CompletedDays(userID, sprint.ID)
	if err != nil {
		return nil, persistErr("load completed days", err)
	}
	today, err := s.Today(userID)
	if err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(days))
	for _, d := range days {
		done[d] = true
	}
	return &Enrollment{
		Progress:      p,
		CompletedDays: done,
		CurrentDay:    progress.CurrentDay(p.StartDate, today, sprint.Duration),
		DaysRemaining: progress.DaysRemaining(p.StartDate, today, sprint.Duration),
		PercentDone:   progress.Percent(len(days), sprint.Duration),
	}, nil
}

// Dashboard is everything the dashboard page shows
type Dashboard struct {
	Today        progress.Date
	Streak       progress.Streak
	StreakActive bool
	Sprints      []models.ActiveSprint
}

// Dashboard gathers a user's streak and enrolled sprints
func (s *ProgressService) Dashboard(userID int64) (*Dashboard, error) {
	today, err := s.Today(userID)
	if err != nil {
		return nil, err
	}
	streak, active, err := s.Streak(userID)
	if err != nil {
		return nil, err
	}

	list, err := s.progress.ListProgress(userID)
	if err != nil {
		return nil, persistErr("list progress", err)
	}

	d := &Dashboard{Today: today, Streak: streak, StreakActive: active}
	for _, p := range list {
		sprint, err := s.sprints.GetSprint(p.SprintID)
		if err != nil {
			return nil, persistErr("load sprint", err)
		}
		if sprint == nil {
			continue
		}
		e, err := s.Enrollment(userID, sprint)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		d.Sprints = append(d.Sprints, models.ActiveSprint{
			Sprint:         *sprint,
			Progress:       *e.Progress,
			CompletedDays:  len(e.CompletedDays),
			CurrentDay:     e.CurrentDay,
			DaysRemaining:  e.DaysRemaining,
			PercentDone:    e.PercentDone,
			TodayCompleted: e.CompletedDays[e.CurrentDay],
		})
	}
	return d, nil
}

func (s *ProgressService) publish(e realtime.Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("Failed to publish %s event for user %d: %v", e.Type, e.UserID, err)
	}
}

func snapshot(st progress.Streak, t progress.Transition) *realtime.StreakSnapshot {
	return &realtime.StreakSnapshot{
		Current:          st.Current,
		Longest:          st.Longest,
		LastActivityDate: st.LastActivity.String(),
		Transition:       t.String(),
	}
}
