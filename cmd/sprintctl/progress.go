package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skillsprint/internal/progress"
)

func (a *app) progressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect sprint progress",
	}
	cmd.AddCommand(a.currentDayCmd(), a.progressShowCmd(), a.progressCompleteCmd(), a.progressRepairCmd())
	return cmd
}

func (a *app) currentDayCmd() *cobra.Command {
	var start, today string
	var duration int

	cmd := &cobra.Command{
		Use:   "current-day",
		Short: "Compute the sprint day for a start date without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := progress.ParseDate(start)
			if err != nil {
				return err
			}
			asOf := progress.DateOf(time.Now(), time.Local)
			if today != "" {
				if asOf, err = progress.ParseDate(today); err != nil {
					return err
				}
			}

			day := progress.CurrentDay(startDate, asOf, duration)
			a.out.Kv("Start", valueOr(startDate.String(), "unset"))
			a.out.Kv("Today", asOf.String())
			a.out.Kv("Current day", fmt.Sprint(day))
			a.out.Kv("Days remaining", fmt.Sprint(progress.DaysRemaining(startDate, asOf, duration)))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "sprint start date as YYYY-MM-DD")
	cmd.Flags().IntVar(&duration, "duration", progress.DefaultDuration, "sprint length in days")
	cmd.Flags().StringVar(&today, "today", "", "date to evaluate (default today)")
	return cmd
}

func (a *app) progressShowCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List a user's enrolled sprints",
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
			dash, err := svc.Dashboard(user.ID)
			if err != nil {
				return err
			}

			a.out.Header(fmt.Sprintf("%s on %s", user.Email, dash.Today))
			if len(dash.Sprints) == 0 {
				a.out.Warn("Not enrolled in any sprint")
				return nil
			}
			rows := make([][]string, 0, len(dash.Sprints))
			for _, s := range dash.Sprints {
				rows = append(rows, []string{
					fmt.Sprint(s.Sprint.ID),
					s.Sprint.Title,
					fmt.Sprintf("%d/%d", s.CurrentDay, s.Sprint.Duration),
					fmt.Sprintf("%d%%", s.PercentDone),
					fmt.Sprint(s.TodayCompleted),
				})
			}
			a.out.Table([]string{"ID", "Sprint", "Day", "Done", "Today"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	return cmd
}

func (a *app) progressCompleteCmd() *cobra.Command {
	var email string
	var sprintID int64
	var day int
	var undo bool

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a sprint day completed for a user, updating the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sprintID < 1 || day < 1 {
				return errors.New("--sprint and --day are required")
			}
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

			result, err := svc.CompleteTask(user.ID, sprintID, day, !undo)
			if err != nil {
				return err
			}
			if undo {
				a.out.Ok("Day %d of sprint %d marked not completed", day, sprintID)
			} else {
				a.out.Ok("Day %d of sprint %d completed (%s)", day, sprintID, result.Transition)
			}
			if result.Warning != "" {
				a.out.Warn("%s", result.Warning)
			}
			a.printStreak(result.Streak)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	cmd.Flags().Int64Var(&sprintID, "sprint", 0, "sprint ID (required)")
	cmd.Flags().IntVar(&day, "day", 0, "sprint day (required)")
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the day not completed instead")
	return cmd
}

func (a *app) progressRepairCmd() *cobra.Command {
	var email string
	var sprintID int64

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Reset a missing or malformed sprint start date to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sprintID < 1 {
				return errors.New("--sprint is required")
			}
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
			p, err := svc.RepairStartDate(user.ID, sprintID)
			if err != nil {
				return err
			}
			a.out.Ok("Start date for sprint %d is %s", sprintID, p.StartDate)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	cmd.Flags().Int64Var(&sprintID, "sprint", 0, "sprint ID (required)")
	return cmd
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
