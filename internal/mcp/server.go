package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/report"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

// Server exposes the tracker use-cases as MCP tools.
type Server struct {
	svc     *tracker.Service
	store   store.Store
	reports *report.Reporter
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(svc *tracker.Service, version string) *Server {
	return &Server{
		svc:     svc,
		store:   svc.Store(),
		reports: report.New(svc.Store()),
		version: version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tracker", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.replaceLabelsTool())
	srv.AddTool(s.bulkStatusTool())
	srv.AddTool(s.timelineTool())
	srv.AddTool(s.topAssigneesTool())
	srv.AddTool(s.latencyTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

var statusEnum = mcp.Enum(
	string(models.IssueStatusOpen),
	string(models.IssueStatusInProgress),
	string(models.IssueStatusResolved),
	string(models.IssueStatusClosed),
)

// jsonResult marshals v as the tool's text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns a service error into a tool error result. Version
// conflicts name the current version so the caller can re-read and retry.
func toolError(action string, err error) (*mcp.CallToolResult, error) {
	var conflict *store.VersionConflictError
	if errors.As(err, &conflict) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s: version conflict, current version is %d; re-read the issue and retry", action, conflict.Current)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err)), nil
}

// optionalID reads an optional numeric id argument.
func optionalID(request mcp.CallToolRequest, key string) *int64 {
	v := request.GetInt(key, 0)
	if v <= 0 {
		return nil
	}
	id := int64(v)
	return &id
}

func toIDs(ints []int) []int64 {
	ids := make([]int64, len(ints))
	for i, v := range ints {
		ids[i] = int64(v)
	}
	return ids
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// tracker_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_list_issues",
		mcp.WithDescription("List issues, newest first. Returns {count, results} where results carry id, title, status, version and labels."),
		mcp.WithString("status", mcp.Description("Filter by status"), statusEnum),
		mcp.WithNumber("assignee_id", mcp.Description("Filter by assignee user id")),
		mcp.WithString("search", mcp.Description("Substring of title or description")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)"), mcp.Min(1), mcp.Max(100)),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.IssueListFilter{
		Status: models.IssueStatus(request.GetString("status", "")),
		Search: request.GetString("search", ""),
		Limit:  request.GetInt("limit", 20),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", filter.Status)), nil
	}
	if id := optionalID(request, "assignee_id"); id != nil {
		filter.AssigneeID = *id
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	issues, total, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return toolError("failed to list issues", err)
	}
	return jsonResult(map[string]any{"count": total, "results": issues})
}

// tracker_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_get_issue",
		mcp.WithDescription("Get one issue with its labels and comments. The version field is required for updates."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	issue, err := s.store.GetIssue(ctx, int64(id))
	if err != nil {
		return toolError("issue not found", err)
	}
	comments, err := s.store.ListComments(ctx, store.CommentListFilter{IssueID: issue.ID})
	if err != nil {
		return toolError("failed to list comments", err)
	}
	return jsonResult(struct {
		*models.Issue
		Comments []*models.Comment `json:"comments"`
	}{issue, comments})
}

// tracker_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_create_issue",
		mcp.WithDescription("Create an issue. Returns the created issue as JSON, starting at version 1."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithNumber("reporter_id", mcp.Required(), mcp.Description("Reporter user id")),
		mcp.WithString("description", mcp.Description("Issue description")),
		mcp.WithString("status", mcp.Description("Initial status (default open)"), statusEnum),
		mcp.WithNumber("assignee_id", mcp.Description("Assignee user id")),
		mcp.WithArray("label_ids", mcp.Description("Label ids to attach"), mcp.WithNumberItems()),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	reporterID, err := request.RequireInt("reporter_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: reporter_id"), nil
	}

	issue, err := s.svc.CreateIssue(ctx, tracker.CreateIssueInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Status:      models.IssueStatus(request.GetString("status", "")),
		ReporterID:  int64(reporterID),
		AssigneeID:  optionalID(request, "assignee_id"),
		LabelIDs:    toIDs(request.GetIntSlice("label_ids", nil)),
	})
	if err != nil {
		return toolError("failed to create issue", err)
	}
	return jsonResult(issue)
}

// tracker_update_issue
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_update_issue",
		mcp.WithDescription("Update an issue. The version must equal the issue's current version or the update is rejected. Returns the updated issue."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithNumber("version", mcp.Required(), mcp.Description("Expected current version")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status"), statusEnum),
		mcp.WithNumber("assignee_id", mcp.Description("New assignee user id; 0 unassigns")),
		mcp.WithNumber("actor_id", mcp.Description("User making the change")),
	)
	return tool, s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	version, err := request.RequireInt("version")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: version"), nil
	}

	in := tracker.UpdateIssueInput{Version: version, ActorID: optionalID(request, "actor_id")}
	args := request.GetArguments()
	if _, ok := args["title"]; ok {
		title := request.GetString("title", "")
		in.Title = &title
	}
	if _, ok := args["description"]; ok {
		desc := request.GetString("description", "")
		in.Description = &desc
	}
	if _, ok := args["status"]; ok {
		status := models.IssueStatus(request.GetString("status", ""))
		in.Status = &status
	}
	if raw, ok := args["assignee_id"]; ok {
		if assignee := optionalID(request, "assignee_id"); raw != nil && assignee != nil {
			in.Assignee = tracker.SetID(*assignee)
		} else {
			in.Assignee = tracker.ClearID()
		}
	}

	issue, err := s.svc.UpdateIssue(ctx, int64(id), in)
	if err != nil {
		return toolError("failed to update issue", err)
	}
	return jsonResult(issue)
}

// tracker_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_add_comment",
		mcp.WithDescription("Add a comment to an issue. Blank bodies are rejected."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithNumber("author_id", mcp.Required(), mcp.Description("Author user id")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Comment text")),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	authorID, err := request.RequireInt("author_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: author_id"), nil
	}
	body := request.GetString("body", "")

	comment, err := s.svc.AddComment(ctx, int64(id), tracker.AddCommentInput{Body: body, AuthorID: int64(authorID)})
	if err != nil {
		return toolError("failed to add comment", err)
	}
	return jsonResult(comment)
}

// tracker_replace_labels
func (s *Server) replaceLabelsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_replace_labels",
		mcp.WithDescription("Replace an issue's whole label set. If any label id is unknown nothing changes."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithArray("label_ids", mcp.Required(), mcp.Description("Label ids; empty clears all labels"), mcp.WithNumberItems()),
		mcp.WithNumber("actor_id", mcp.Description("User making the change")),
	)
	return tool, s.handleReplaceLabels
}

func (s *Server) handleReplaceLabels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	labelIDs, err := request.RequireIntSlice("label_ids")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: label_ids"), nil
	}

	labels, err := s.svc.ReplaceLabels(ctx, int64(id), toIDs(labelIDs), optionalID(request, "actor_id"))
	if err != nil {
		return toolError("failed to replace labels", err)
	}
	return jsonResult(labels)
}

// tracker_bulk_status
func (s *Server) bulkStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_bulk_status",
		mcp.WithDescription("Move several issues to one status atomically. Closed issues cannot be reopened; any failure leaves every issue untouched. Returns {updated_count}."),
		mcp.WithArray("issue_ids", mcp.Required(), mcp.Description("Issue ids"), mcp.WithNumberItems()),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status"), statusEnum),
		mcp.WithNumber("actor_id", mcp.Description("User making the change")),
	)
	return tool, s.handleBulkStatus
}

func (s *Server) handleBulkStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := request.RequireIntSlice("issue_ids")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_ids"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	n, err := s.svc.BulkUpdateStatus(ctx, tracker.BulkStatusInput{
		IssueIDs: toIDs(ids),
		Status:   models.IssueStatus(status),
		ActorID:  optionalID(request, "actor_id"),
	})
	if err != nil {
		return toolError("bulk status update failed", err)
	}
	return jsonResult(map[string]int{"updated_count": n})
}

// tracker_timeline
func (s *Server) timelineTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_timeline",
		mcp.WithDescription("List an issue's history events, newest first unless order is asc."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("order", mcp.Description("desc (default) or asc"), mcp.Enum("desc", "asc")),
	)
	return tool, s.handleTimeline
}

func (s *Server) handleTimeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	if _, err := s.store.GetIssue(ctx, int64(id)); err != nil {
		return toolError("issue not found", err)
	}
	events, err := s.store.ListHistory(ctx, int64(id), request.GetString("order", "desc") == "asc")
	if err != nil {
		return toolError("failed to list history", err)
	}
	return jsonResult(events)
}

// tracker_top_assignees
func (s *Server) topAssigneesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_top_assignees",
		mcp.WithDescription("Rank assignees by number of assigned issues."),
		mcp.WithNumber("limit", mcp.Description("Number of assignees (default 10)"), mcp.Min(1), mcp.Max(100)),
	)
	return tool, s.handleTopAssignees
}

func (s *Server) handleTopAssignees(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, err := s.reports.TopAssignees(ctx, request.GetInt("limit", report.DefaultTopAssigneesLimit))
	if err != nil {
		return toolError("failed to build report", err)
	}
	return jsonResult(top)
}

// tracker_latency
func (s *Server) latencyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tracker_latency",
		mcp.WithDescription("Average hours to resolution, plus the average age of open and in-progress issues."),
	)
	return tool, s.handleLatency
}

func (s *Server) handleLatency(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.reports.Latency(ctx)
	if err != nil {
		return toolError("failed to build report", err)
	}
	return jsonResult(rows)
}
