package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/importer"
	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

var (
	issueTitle    string
	issueDesc     string
	issueStatus   string
	issueReporter string
	issueAssignee string
	issueActor    string
	issueAuthor   string
	issueBody     string
	issueSearch   string
	issueOrdering string
	issueLabels   []string
	issueVersion  int
	issueLimit    int
	issueUnassign bool
	issueNewestFirst    bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, update, comment on and label issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an issue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Update an issue",
	Long: `Update an issue's title, description, status or assignee.

--version is the version the change was based on. When omitted the issue's
current version is used, so the update only fails if another writer gets
in between the read and the write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := updateInputFromFlags(cmd)
		if err != nil {
			return err
		}
		return issueUpdateRun(args[0], in)
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete <issue-id>",
	Short: "Delete an issue with its comments and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <issue-id>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCommentRun(args[0])
	},
}

var issueLabelsCmd = &cobra.Command{
	Use:   "labels <issue-id>",
	Short: "Replace an issue's labels",
	Long:  "Replace the full label set of an issue. Pass no --label to clear it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueLabelsRun(args[0])
	},
}

var issueTimelineCmd = &cobra.Command{
	Use:   "timeline <issue-id>",
	Short: "Show an issue's change history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueTimelineRun(args[0])
	},
}

var issueBulkStatusCmd = &cobra.Command{
	Use:   "bulk-status <issue-id>...",
	Short: "Set the status of several issues at once",
	Long:  "Set the status of several issues atomically. Either every issue is updated or none is.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueBulkStatusRun(args)
	},
}

var issueImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import issues from a CSV file",
	Long: `Import issues from CSV. Required columns: title, reporter_username.
Optional columns: description, status, assignee_username.
Each row is created independently; bad rows are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(args[0])
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	issueAddCmd.Flags().StringVar(&issueStatus, "status", "open", "Status: open, in_progress, resolved, closed")
	issueAddCmd.Flags().StringVar(&issueReporter, "reporter", "", "Reporter username or id (required)")
	issueAddCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Assignee username or id")
	issueAddCmd.Flags().StringSliceVar(&issueLabels, "label", nil, "Label name or id (repeatable)")
	_ = issueAddCmd.MarkFlagRequired("title")
	_ = issueAddCmd.MarkFlagRequired("reporter")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status")
	issueListCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Filter by assignee username or id")
	issueListCmd.Flags().StringVar(&issueReporter, "reporter", "", "Filter by reporter username or id")
	issueListCmd.Flags().StringVar(&issueSearch, "search", "", "Match title or description")
	issueListCmd.Flags().StringVar(&issueOrdering, "ordering", "", "created_at, updated_at or status; prefix - for descending")
	issueListCmd.Flags().IntVar(&issueLimit, "limit", 50, "Maximum issues to show")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status")
	issueUpdateCmd.Flags().StringVar(&issueAssignee, "assignee", "", "New assignee username or id")
	issueUpdateCmd.Flags().BoolVar(&issueUnassign, "unassign", false, "Clear the assignee")
	issueUpdateCmd.Flags().IntVar(&issueVersion, "version", 0, "Expected version (default: current)")
	issueUpdateCmd.Flags().StringVar(&issueActor, "actor", "", "User making the change")
	issueUpdateCmd.MarkFlagsMutuallyExclusive("assignee", "unassign")

	issueCommentCmd.Flags().StringVar(&issueAuthor, "author", "", "Comment author username or id (required)")
	issueCommentCmd.Flags().StringVar(&issueBody, "body", "", "Comment text (required)")
	_ = issueCommentCmd.MarkFlagRequired("author")
	_ = issueCommentCmd.MarkFlagRequired("body")

	issueLabelsCmd.Flags().StringSliceVar(&issueLabels, "label", nil, "Label name or id (repeatable)")
	issueLabelsCmd.Flags().StringVar(&issueActor, "actor", "", "User making the change")

	issueTimelineCmd.Flags().BoolVar(&issueNewestFirst, "desc", false, "Newest first")

	issueBulkStatusCmd.Flags().StringVar(&issueStatus, "status", "", "Target status (required)")
	issueBulkStatusCmd.Flags().StringVar(&issueActor, "actor", "", "User making the change")
	_ = issueBulkStatusCmd.MarkFlagRequired("status")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	issueCmd.AddCommand(issueCommentCmd)
	issueCmd.AddCommand(issueLabelsCmd)
	issueCmd.AddCommand(issueTimelineCmd)
	issueCmd.AddCommand(issueBulkStatusCmd)
	issueCmd.AddCommand(issueImportCmd)
	rootCmd.AddCommand(issueCmd)
}

// issueUpdate carries the update flags that were explicitly set.
type issueUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Assignee    *string // username or id; "" unassigns
	Version     int
	Actor       string
}

func updateInputFromFlags(cmd *cobra.Command) (issueUpdate, error) {
	in := issueUpdate{Version: issueVersion, Actor: issueActor}
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title = &issueTitle
	}
	if flags.Changed("desc") {
		in.Description = &issueDesc
	}
	if flags.Changed("status") {
		in.Status = &issueStatus
	}
	if flags.Changed("assignee") {
		in.Assignee = &issueAssignee
	}
	if issueUnassign {
		empty := ""
		in.Assignee = &empty
	}
	if in.Title == nil && in.Description == nil && in.Status == nil && in.Assignee == nil {
		return in, fmt.Errorf("no updates specified (use --title, --desc, --status, --assignee or --unassign)")
	}
	return in, nil
}

func issueAddRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	s := svc.Store()
	ctx := context.Background()

	reporter, err := resolveUser(ctx, s, issueReporter)
	if err != nil {
		return err
	}
	assigneeID, err := resolveUserID(ctx, s, issueAssignee)
	if err != nil {
		return err
	}
	labelIDs, err := resolveLabels(ctx, s, issueLabels)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create issue %q reported by %s", issueTitle, reporter.Username)
		return nil
	}

	issue, err := svc.CreateIssue(ctx, tracker.CreateIssueInput{
		Title:       issueTitle,
		Description: issueDesc,
		Status:      models.IssueStatus(issueStatus),
		ReporterID:  reporter.ID,
		AssigneeID:  assigneeID,
		LabelIDs:    labelIDs,
	})
	if err != nil {
		return describeError(err)
	}

	if jsonOut {
		return ui.PrintJSON(issue)
	}
	ui.Success("Created issue %s: %s", cyanID(issue.ID), issue.Title)
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.IssueListFilter{
		Status:   models.IssueStatus(issueStatus),
		Search:   issueSearch,
		Ordering: issueOrdering,
		Limit:    issueLimit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid status %q", issueStatus)
	}
	if !store.ValidOrdering(filter.Ordering) {
		return fmt.Errorf("unsupported ordering %q", issueOrdering)
	}
	if issueAssignee != "" {
		u, err := resolveUser(ctx, s, issueAssignee)
		if err != nil {
			return err
		}
		filter.AssigneeID = u.ID
	}
	if issueReporter != "" {
		u, err := resolveUser(ctx, s, issueReporter)
		if err != nil {
			return err
		}
		filter.ReporterID = u.ID
	}

	issues, total, err := s.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	if jsonOut {
		return ui.PrintJSON(issues)
	}
	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	names := usernames(ctx, s)
	table := ui.Table([]string{"ID", "Title", "Status", "Assignee", "Labels", "Ver", "Updated"})
	for _, issue := range issues {
		_ = table.Append([]string{
			cyanID(issue.ID),
			issue.Title,
			statusText(issue.Status),
			displayUser(names, issue.AssigneeID),
			strings.Join(issue.LabelNames(), ", "),
			strconv.Itoa(issue.Version),
			issue.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	if total > len(issues) {
		ui.Info("Showing %d of %d issues (use --limit to see more)", len(issues), total)
	}
	return nil
}

func issueShowRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return describeError(err)
	}
	comments, err := s.ListComments(ctx, store.CommentListFilter{IssueID: id})
	if err != nil {
		return err
	}

	if jsonOut {
		return ui.PrintJSON(struct {
			*models.Issue
			Comments []*models.Comment `json:"comments"`
		}{issue, comments})
	}

	names := usernames(ctx, s)
	fmt.Fprintf(ui.Out, "%s  %s\n", cyanID(issue.ID), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", statusText(issue.Status))
	fmt.Fprintf(ui.Out, "  Version:    %d\n", issue.Version)
	fmt.Fprintf(ui.Out, "  Reporter:   %s\n", displayUser(names, &issue.ReporterID))
	fmt.Fprintf(ui.Out, "  Assignee:   %s\n", displayUser(names, issue.AssigneeID))
	if len(issue.Labels) > 0 {
		fmt.Fprintf(ui.Out, "  Labels:     %s\n", strings.Join(issue.LabelNames(), ", "))
	}
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", issue.Description)
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", issue.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", issue.UpdatedAt.Format(time.RFC3339))
	if issue.ResolvedAt != nil {
		fmt.Fprintf(ui.Out, "  Resolved:   %s\n", issue.ResolvedAt.Format(time.RFC3339))
	}

	if len(comments) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Comments (%d):\n", len(comments))
		for _, c := range comments {
			fmt.Fprintf(ui.Out, "    [%s] %s: %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"),
				displayUser(names, &c.AuthorID), c.Body)
		}
	}
	return nil
}

func issueUpdateRun(ref string, upd issueUpdate) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	s := svc.Store()
	ctx := context.Background()

	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}

	in := tracker.UpdateIssueInput{
		Version:     upd.Version,
		Title:       upd.Title,
		Description: upd.Description,
	}
	if in.Version == 0 {
		current, err := s.GetIssue(ctx, id)
		if err != nil {
			return describeError(err)
		}
		in.Version = current.Version
	}
	if upd.Status != nil {
		st := models.IssueStatus(*upd.Status)
		in.Status = &st
	}
	if upd.Assignee != nil {
		if *upd.Assignee == "" {
			in.Assignee = tracker.ClearID()
		} else {
			u, err := resolveUser(ctx, s, *upd.Assignee)
			if err != nil {
				return err
			}
			in.Assignee = tracker.SetID(u.ID)
		}
	}
	if in.ActorID, err = resolveUserID(ctx, s, upd.Actor); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would update issue %s at version %d", cyanID(id), in.Version)
		return nil
	}

	issue, err := svc.UpdateIssue(ctx, id, in)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(issue)
	}
	ui.Success("Updated issue %s (version %d)", cyanID(issue.ID), issue.Version)
	return nil
}

func issueDeleteRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete issue %s", cyanID(id))
		return nil
	}
	if err := svc.DeleteIssue(context.Background(), id); err != nil {
		return describeError(err)
	}
	ui.Success("Deleted issue %s", cyanID(id))
	return nil
}

func issueCommentRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}
	author, err := resolveUser(ctx, svc.Store(), issueAuthor)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would comment on issue %s as %s", cyanID(id), author.Username)
		return nil
	}

	c, err := svc.AddComment(ctx, id, tracker.AddCommentInput{Body: issueBody, AuthorID: author.ID})
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(c)
	}
	ui.Success("Added comment %d to issue %s", c.ID, cyanID(id))
	return nil
}

func issueLabelsRun(ref string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	s := svc.Store()
	ctx := context.Background()

	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}
	labelIDs, err := resolveLabels(ctx, s, issueLabels)
	if err != nil {
		return err
	}
	actorID, err := resolveUserID(ctx, s, issueActor)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would set labels of issue %s to %v", cyanID(id), issueLabels)
		return nil
	}

	labels, err := svc.ReplaceLabels(ctx, id, labelIDs, actorID)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(labels)
	}
	if len(labels) == 0 {
		ui.Success("Cleared labels on issue %s", cyanID(id))
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	ui.Success("Issue %s labels: %s", cyanID(id), strings.Join(names, ", "))
	return nil
}

func issueTimelineRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	id, err := parseID(ref, "issue")
	if err != nil {
		return err
	}
	if _, err := s.GetIssue(ctx, id); err != nil {
		return describeError(err)
	}
	events, err := s.ListHistory(ctx, id, !issueNewestFirst)
	if err != nil {
		return err
	}

	if jsonOut {
		return ui.PrintJSON(events)
	}
	if len(events) == 0 {
		ui.Info("No history for issue %s.", cyanID(id))
		return nil
	}

	names := usernames(ctx, s)
	table := ui.Table([]string{"When", "Change", "By", "Old", "New"})
	for _, e := range events {
		_ = table.Append([]string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.ChangeType),
			displayUser(names, e.ChangedBy),
			derefOr(e.OldValue, ""),
			derefOr(e.NewValue, ""),
		})
	}
	_ = table.Render()
	return nil
}

func issueBulkStatusRun(args []string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	ids, err := parseIDs(args, "issue")
	if err != nil {
		return err
	}
	actorID, err := resolveUserID(ctx, svc.Store(), issueActor)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would set %d issue(s) to %s", len(ids), issueStatus)
		return nil
	}

	n, err := svc.BulkUpdateStatus(ctx, tracker.BulkStatusInput{
		IssueIDs: ids,
		Status:   models.IssueStatus(issueStatus),
		ActorID:  actorID,
	})
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return ui.PrintJSON(map[string]any{
			"message":       fmt.Sprintf("Successfully updated %d issues", n),
			"updated_count": n,
		})
	}
	ui.Success("Successfully updated %d issues", n)
	return nil
}

func issueImportRun(path string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if dryRun {
		ui.DryRunMsg("Would import issues from %s", path)
		return nil
	}

	result, err := importer.New(s, newLogger(os.Stderr)).Import(context.Background(), f)
	if err != nil {
		return describeError(err)
	}

	if jsonOut {
		return ui.PrintJSON(result)
	}
	ui.Info("Rows: %d, imported: %d, failed: %d", result.TotalRows, result.Successful, result.Failed)
	if len(result.Errors) > 0 {
		table := ui.Table([]string{"Row", "Error"})
		for _, re := range result.Errors {
			_ = table.Append([]string{strconv.Itoa(re.Row), re.Error})
		}
		_ = table.Render()
	}
	if result.Successful == 0 && result.TotalRows > 0 {
		return errors.New("no issues were imported")
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
