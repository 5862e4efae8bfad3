package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/output"
	"github.com/joescharf/tracker/internal/store"
)

// describeError rewrites service errors into messages suited to a terminal.
func describeError(err error) error {
	var conflict *store.VersionConflictError
	switch {
	case errors.As(err, &conflict):
		return fmt.Errorf("issue #%d was changed by someone else (you had version %d, current is %d); re-run with --version %d after reviewing it",
			conflict.IssueID, conflict.Expected, conflict.Current, conflict.Current)
	case errors.Is(err, store.ErrTransient):
		return fmt.Errorf("database is busy, try again: %w", err)
	default:
		return err
	}
}

func cyanID(id int64) string {
	return output.Cyan("#" + strconv.FormatInt(id, 10))
}

func statusText(s models.IssueStatus) string {
	return output.StatusColor(string(s))
}
