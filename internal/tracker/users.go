package tracker

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// CreateUser adds a user to the directory. Usernames must be unique.
func (s *Service) CreateUser(ctx context.Context, username, email string) (user *models.User, err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "This field may not be blank.")
	}
	user = &models.User{Username: username, Email: strings.TrimSpace(email)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, invalid("username", "A user with that username already exists.")
		}
		return nil, err
	}
	s.logger.Debug("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// DeleteUser removes a user. Their reported issues and comments go with them;
// assignments and history attributions are cleared.
func (s *Service) DeleteUser(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteUser", attribute.Int64("user_id", id))
	defer func() { endSpan(span, err) }()

	return s.store.DeleteUser(ctx, id)
}
