package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skillsprint/internal/repository"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(a.userListCmd(), a.userAdminCmd(), a.userDeleteCmd())
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			users, err := repository.NewUserRepository(db).GetAllUsers()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				login := "password"
				if u.OAuthProvider != "" {
					login = u.OAuthProvider
				}
				rows = append(rows, []string{fmt.Sprint(u.ID), u.Email, u.Name, login, fmt.Sprint(u.IsAdmin)})
			}
			a.out.Table([]string{"ID", "Email", "Name", "Login", "Admin"}, rows)
			return nil
		},
	}
}

func (a *app) userAdminCmd() *cobra.Command {
	var email string
	var revoke bool

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Grant or revoke admin rights",
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
			if err := repository.NewUserRepository(db).SetAdmin(user.ID, !revoke); err != nil {
				return err
			}
			if revoke {
				a.out.Ok("%s is no longer an admin", user.Email)
			} else {
				a.out.Ok("%s is now an admin", user.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove admin rights instead of granting them")
	return cmd
}

func (a *app) userDeleteCmd() *cobra.Command {
	var email string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account with its sessions and progress",
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

			if !yes {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete %s and all of their data? Type 'yes' to confirm: ", user.Email)
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(line) != "yes" {
					a.out.Warn("Delete cancelled")
					return nil
				}
			}

			if err := repository.NewUserRepository(db).DeleteUser(user.ID); err != nil {
				return err
			}
			a.out.Ok("Deleted %s", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "user", "", "email of the user (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
