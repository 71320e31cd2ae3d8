package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"skillsprint/internal/database"
	"skillsprint/internal/models"
	"skillsprint/internal/repository"
	"skillsprint/internal/service"
	"skillsprint/internal/vault"
)

func (a *app) sprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "List, extend and generate sprints",
	}
	cmd.AddCommand(a.sprintListCmd(), a.sprintExtendCmd(), a.sprintGenerateCmd())
	return cmd
}

func (a *app) sprintListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			sprints, err := service.NewSprintService(db, nil).ListAll()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sprints))
			for _, s := range sprints {
				visibility := "public"
				if !s.IsPublic {
					visibility = "private"
				}
				rows = append(rows, []string{fmt.Sprint(s.ID), s.Title, s.Source, visibility, fmt.Sprint(s.Duration)})
			}
			a.out.Table([]string{"ID", "Title", "Source", "Visibility", "Days"}, rows)
			return nil
		},
	}
}

func (a *app) sprintExtendCmd() *cobra.Command {
	var id int64
	var days, current int

	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Append challenge days to a sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id < 1 {
				return errors.New("--id is required")
			}
			db, err := a.open()
			if err != nil {
				return err
			}
			result, err := service.NewSprintService(db, nil).ExtendSprint(id, current, days)
			if err != nil {
				return err
			}
			a.out.Ok("%s now runs %d days", result.Sprint.Title, result.Sprint.Duration)
			a.out.Kv("Inserted", fmt.Sprint(result.Inserted))
			a.out.Kv("Already present", fmt.Sprint(result.Skipped))
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "sprint ID (required)")
	cmd.Flags().IntVar(&days, "days", 0, "number of days to add")
	cmd.Flags().IntVar(&current, "current", 0, "current duration to extend from (default the stored duration)")
	return cmd
}

func (a *app) sprintGenerateCmd() *cobra.Command {
	var skill, difficulty, email string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a private 30-day sprint for a skill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			owner, err := a.sprintOwner(db, email)
			if err != nil {
				return err
			}

			sprint, err := service.NewSprintService(db, nil).GenerateSprint(owner.ID, skill, difficulty)
			if err != nil {
				return err
			}
			svc, err := a.progressService(db)
			if err != nil {
				return err
			}
			if _, err := svc.StartSprint(owner.ID, sprint.ID); err != nil {
				return err
			}
			a.out.Ok("Created sprint %d %q for %s", sprint.ID, sprint.Title, owner.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&skill, "skill", "", "skill to build the sprint around (required)")
	cmd.Flags().StringVar(&difficulty, "difficulty", models.DifficultyBeginner, "Beginner, Intermediate or Advanced")
	cmd.Flags().StringVar(&email, "user", "", "owner email (default the first admin)")
	return cmd
}

// sprintOwner resolves --user, falling back to the first admin account
func (a *app) sprintOwner(db *database.DB, email string) (*models.User, error) {
	if email != "" {
		return a.lookupUser(db, email)
	}
	users, err := repository.NewUserRepository(db).GetAllUsers()
	if err != nil {
		return nil, err
	}
	var owner *models.User
	for i := range users {
		if users[i].IsAdmin && (owner == nil || users[i].ID < owner.ID) {
			owner = &users[i]
		}
	}
	if owner == nil {
		return nil, errors.New("no admin account found; pass --user")
	}
	return owner, nil
}

func (a *app) reportCmd() *cobra.Command {
	var email, output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a user's PDF progress report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
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
			reports := service.NewReportService(repository.NewUserRepository(db), svc)

			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			err = vault.WriteFileAtomic(output, 0644, func(w io.Writer) error {
				return reports.WriteProgressReport(w, user.ID)
			})
			if err != nil {
				return err
			}
			a.out.Ok("Report for %s written to %s", user.Email, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PDF file to write (required)")
	return cmd
}
