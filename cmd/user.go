package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

var userEmail string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userAddRun(args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username|id>",
	Short: "Delete a user",
	Long: `Delete a user. Issues they reported and comments they wrote are deleted
with them; issues assigned to them become unassigned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userDeleteRun(args[0])
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Email address")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}

func userAddRun(username string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would create user %q", username)
		return nil
	}
	u, err := svc.CreateUser(context.Background(), username, userEmail)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(u)
	}
	ui.Success("Created user %d: %s", u.ID, u.Username)
	return nil
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	users, err := s.ListUsers(context.Background())
	if err != nil {
		return err
	}
	if jsonOut {
		return ui.PrintJSON(users)
	}
	if len(users) == 0 {
		ui.Info("No users found.")
		return nil
	}
	table := ui.Table([]string{"ID", "Username", "Email"})
	for _, u := range users {
		_ = table.Append([]string{strconv.FormatInt(u.ID, 10), u.Username, u.Email})
	}
	_ = table.Render()
	return nil
}

func userDeleteRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	u, err := resolveUser(ctx, svc.Store(), ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete user %s", u.Username)
		return nil
	}
	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		return describeError(err)
	}
	ui.Success("Deleted user %s", u.Username)
	return nil
}
