package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// parseID parses a positive numeric id argument.
func parseID(arg, kind string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

// parseIDs parses every argument with parseID.
func parseIDs(args []string, kind string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a, kind)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// resolveUser accepts a numeric user id or a username.
func resolveUser(ctx context.Context, s store.Store, ref string) (*models.User, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		u, err := s.GetUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %d not found", id)
		}
		return u, err
	}
	u, err := s.GetUserByUsername(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", ref)
	}
	return u, err
}

// resolveUserID is resolveUser for optional flags: an empty ref yields nil.
func resolveUserID(ctx context.Context, s store.Store, ref string) (*int64, error) {
	if ref == "" {
		return nil, nil
	}
	u, err := resolveUser(ctx, s, ref)
	if err != nil {
		return nil, err
	}
	return &u.ID, nil
}

// resolveLabels maps label ids or exact, case-sensitive names to ids.
func resolveLabels(ctx context.Context, s store.Store, refs []string) ([]int64, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	all, err := s.ListLabels(ctx, "")
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(all))
	for _, l := range all {
		byName[l.Name] = l.ID
	}

	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if id, ok := byName[ref]; ok {
			ids = append(ids, id)
			continue
		}
		// Unknown numeric ids are passed through so the service reports them.
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("label %q not found", ref)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// usernames returns an id to username lookup for display.
func usernames(ctx context.Context, s store.Store) map[int64]string {
	names := make(map[int64]string)
	users, err := s.ListUsers(ctx)
	if err != nil {
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

func displayUser(names map[int64]string, id *int64) string {
	if id == nil {
		return "-"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}
