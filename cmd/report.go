package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/output"
	"github.com/joescharf/tracker/internal/report"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate reports over issues",
}

var reportTopAssigneesCmd = &cobra.Command{
	Use:   "top-assignees",
	Short: "Users with the most assigned issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportTopAssigneesRun()
	},
}

var reportLatencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Average hours to resolution, and current age of open work",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportLatencyRun()
	},
}

func init() {
	reportTopAssigneesCmd.Flags().IntVar(&reportLimit, "limit", report.DefaultTopAssigneesLimit, "Number of assignees (1-100)")

	reportCmd.AddCommand(reportTopAssigneesCmd)
	reportCmd.AddCommand(reportLatencyCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportTopAssigneesRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	limit := reportLimit
	if limit == 0 {
		// 0 would otherwise select the default.
		limit = -1
	}
	rows, err := report.New(s).TopAssignees(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOut {
		return ui.PrintJSON(rows)
	}
	if len(rows) == 0 {
		ui.Info("No assigned issues.")
		return nil
	}
	table := ui.Table([]string{"Assignee", "Username", "Issues"})
	for _, r := range rows {
		_ = table.Append([]string{
			strconv.FormatInt(r.AssigneeID, 10),
			r.Username,
			strconv.Itoa(r.IssueCount),
		})
	}
	_ = table.Render()
	return nil
}

func reportLatencyRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	rows, err := report.New(s).Latency(context.Background())
	if err != nil {
		return err
	}
	if jsonOut {
		return ui.PrintJSON(rows)
	}
	table := ui.Table([]string{"Status", "Avg hours", "Issues"})
	for _, r := range rows {
		_ = table.Append([]string{
			statusText(r.Status),
			output.HoursColor(r.AvgResolutionHours),
			strconv.Itoa(r.IssueCount),
		})
	}
	_ = table.Render()
	return nil
}
