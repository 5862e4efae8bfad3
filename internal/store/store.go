package store

import (
	"context"
	"time"

	"github.com/joescharf/tracker/internal/models"
)

// IssueListFilter specifies filters, ordering and paging for listing issues.
type IssueListFilter struct {
	Status     models.IssueStatus
	AssigneeID int64
	ReporterID int64
	Search     string // substring of title or description
	Ordering   string // created_at, updated_at, status; "-" prefix for descending
	Limit      int
	Offset     int
}

// CommentListFilter specifies filters for listing comments.
type CommentListFilter struct {
	IssueID  int64
	AuthorID int64
}

// IssueTiming carries the timestamps the latency report aggregates over.
type IssueTiming struct {
	Status     models.IssueStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Store defines the persistence interface for the tracker.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// Issues
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)
	ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, int, error)
	DeleteIssue(ctx context.Context, id int64) error

	// Labels
	CreateLabel(ctx context.Context, l *models.Label) error
	GetLabel(ctx context.Context, id int64) (*models.Label, error)
	ListLabels(ctx context.Context, search string) ([]*models.Label, error)
	RenameLabel(ctx context.Context, id int64, name string) (*models.Label, error)
	DeleteLabel(ctx context.Context, id int64) error

	// Comments
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error)

	// History
	ListHistory(ctx context.Context, issueID int64, ascending bool) ([]*models.HistoryEvent, error)

	// Reports
	TopAssignees(ctx context.Context, limit int) ([]*models.AssigneeCount, error)
	ListIssueTimings(ctx context.Context) ([]IssueTiming, error)

	// WithTx runs fn inside a single write transaction. Any error returned by
	// fn rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a write transaction.
type Tx interface {
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)
	// LockIssues reads the given issues in ascending id order for update.
	// Missing ids are simply absent from the result.
	LockIssues(ctx context.Context, ids []int64) ([]*models.Issue, error)
	CreateIssue(ctx context.Context, issue *models.Issue) error
	// CheckAndAdvance is the version guard. It fails with ErrNotFound when the
	// issue is absent and with *VersionConflictError when expectedVersion is
	// stale; otherwise it applies mutate, bumps the version by one, refreshes
	// updated_at and stamps resolved_at on the first resolve.
	CheckAndAdvance(ctx context.Context, id int64, expectedVersion int, mutate func(*models.Issue) error) (*models.Issue, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetLabelsByID(ctx context.Context, ids []int64) ([]*models.Label, error)
	GetIssueLabels(ctx context.Context, issueID int64) ([]*models.Label, error)
	SetIssueLabels(ctx context.Context, issueID int64, labelIDs []int64) error

	CreateComment(ctx context.Context, c *models.Comment) error
	AppendHistory(ctx context.Context, e *models.HistoryEvent) error
}
