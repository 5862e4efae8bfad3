package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

var labelSearch string

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelListRun()
	},
}

var labelCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelCreateRun(args[0])
	},
}

var labelListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List labels",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelListRun()
	},
}

var labelRenameCmd = &cobra.Command{
	Use:   "rename <label-id> <new-name>",
	Short: "Rename a label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelRenameRun(args[0], args[1])
	},
}

var labelDeleteCmd = &cobra.Command{
	Use:   "delete <label-id>",
	Short: "Delete a label and remove it from every issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelDeleteRun(args[0])
	},
}

func init() {
	labelListCmd.Flags().StringVar(&labelSearch, "search", "", "Case-insensitive name filter")

	labelCmd.AddCommand(labelCreateCmd)
	labelCmd.AddCommand(labelListCmd)
	labelCmd.AddCommand(labelRenameCmd)
	labelCmd.AddCommand(labelDeleteCmd)
	rootCmd.AddCommand(labelCmd)
}

func labelCreateRun(name string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would create label %q", name)
		return nil
	}
	l, err := svc.CreateLabel(context.Background(), name)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(l)
	}
	ui.Success("Created label %d: %s", l.ID, l.Name)
	return nil
}

func labelListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	labels, err := s.ListLabels(context.Background(), labelSearch)
	if err != nil {
		return err
	}
	if jsonOut {
		return ui.PrintJSON(labels)
	}
	if len(labels) == 0 {
		ui.Info("No labels found.")
		return nil
	}
	table := ui.Table([]string{"ID", "Name"})
	for _, l := range labels {
		_ = table.Append([]string{strconv.FormatInt(l.ID, 10), l.Name})
	}
	_ = table.Render()
	return nil
}

func labelRenameRun(ref, name string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	id, err := parseID(ref, "label")
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would rename label %d to %q", id, name)
		return nil
	}
	l, err := svc.RenameLabel(context.Background(), id, name)
	if err != nil {
		return describeError(err)
	}
	ui.Success("Renamed label %d to %s", l.ID, l.Name)
	return nil
}

func labelDeleteRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	id, err := parseID(ref, "label")
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete label %d", id)
		return nil
	}
	if err := svc.DeleteLabel(context.Background(), id); err != nil {
		return describeError(err)
	}
	ui.Success("Deleted label %d", id)
	return nil
}
