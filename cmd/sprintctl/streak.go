package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skillsprint/internal/progress"
	"skillsprint/internal/ui"
)

func (a *app) streakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Inspect and repair activity streaks",
	}
	cmd.AddCommand(a.streakSimulateCmd(), a.streakRecomputeCmd(), a.streakShowCmd())
	return cmd
}

// simulateStep is one row of a streak simulation
type simulateStep struct {
	Date       progress.Date
	Transition progress.Transition
	Streak     progress.Streak
}

// simulateStreak applies each activity date in the order given
func simulateStreak(dates []progress.Date) []simulateStep {
	var steps []simulateStep
	var prev *progress.Streak
	for _, d := range dates {
		next, transition := progress.Advance(prev, d)
		steps = append(steps, simulateStep{Date: d, Transition: transition, Streak: next})
		prev = &next
	}
	return steps
}

func (a *app) streakSimulateCmd() *cobra.Command {
	var dates []string
	var today string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay activity dates through the streak rules without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dates) == 0 {
				return errors.New("--dates is required")
			}
			parsed := make([]progress.Date, 0, len(dates))
			for _, s := range dates {
				d, err := progress.ParseDate(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, d)
			}

			steps := simulateStreak(parsed)
			rows := make([][]string, 0, len(steps))
			for _, s := range steps {
				rows = append(rows, []string{
					s.Date.String(),
					s.Transition.String(),
					fmt.Sprint(s.Streak.Current),
					fmt.Sprint(s.Streak.Longest),
				})
			}
			a.out.Table([]string{"Date", "Transition", "Current", "Longest"}, rows)

			final := steps[len(steps)-1].Streak
			asOf := progress.DateOf(time.Now(), time.Local)
			if today != "" {
				d, err := progress.ParseDate(today)
				if err != nil {
					return err
				}
				asOf = d
			}
			a.out.Kv("Active on "+asOf.String(), fmt.Sprint(final.Active(asOf)))
			a.out.Kv("Streak", ui.StreakBar(final.Current, final.Longest))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&dates, "dates", nil, "activity dates as YYYY-MM-DD, comma separated, in the order they happen")
	cmd.Flags().StringVar(&today, "today", "", "date to check whether the streak is still active (default today)")
	return cmd
}

func (a *app) streakRecomputeCmd() *cobra.Command {
	var email string
	var all bool

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild stored streaks from completion history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (email != "") {
				return errors.New("pass exactly one of --user or --all")
			}
			db, err := a.open()
			if err != nil {
				return err
			}
			svc, err := a.progressService(db)
			if err != nil {
				return err
			}

			if all {
				n, err := svc.RecomputeAllStreaks()
				if err != nil {
					return err
				}
				a.out.Ok("Recomputed streaks for %d users", n)
				return nil
			}

			user, err := a.lookupUser(db, email)
			if err != nil {
				return err
			}
			streak, err := svc.RecomputeStreak(user.ID)
			if err != nil {
				return err
			}
			a.out.Ok("Recomputed streak for %s", user.Email)
			a.printStreak(streak)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user to recompute")
	cmd.Flags().BoolVar(&all, "all", false, "recompute every user with completion history")
	return cmd
}

func (a *app) streakShowCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's stored streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			user, err := a.lookupUser(db, email)
			if err != nil {
				return err
			}
			svc, err := a.progressService(db)
			if err != nil {
				return err
			}
			streak, active, err := svc.Streak(user.ID)
			if err != nil {
				return err
			}
			a.out.Header(user.Email)
			a.printStreak(streak)
			a.out.Kv("Active", fmt.Sprint(active))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	return cmd
}

func (a *app) printStreak(s progress.Streak) {
	last := "never"
	if !s.LastActivity.IsZero() {
		last = s.LastActivity.String()
	}
	a.out.Kv("Current", fmt.Sprint(s.Current))
	a.out.Kv("Longest", fmt.Sprint(s.Longest))
	a.out.Kv("Last activity", last)
	a.out.Kv("Streak", ui.StreakBar(s.Current, s.Longest))
}
