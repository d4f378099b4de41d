// Package service holds the application operations behind the HTTP handlers:
// authentication, password recovery, todos and profiles.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/queue"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByExternalID(ctx context.Context, provider domain.AuthOrigin, subject string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
}

type ResetCodeStore interface {
	SetResetCode(ctx context.Context, userID int64, code string, expiry time.Time) error
	// ConsumeResetCode clears and returns the user when code matches and
	// now is before the stored expiry.
	ConsumeResetCode(ctx context.Context, email, code string, now time.Time) (*domain.User, error)
}

// GrantStore keeps the short-lived reset grants handed out after a verified OTP.
type GrantStore interface {
	SaveResetGrant(ctx context.Context, tokenHash, email string, ttl time.Duration) error
	ConsumeResetGrant(ctx context.Context, tokenHash string) (string, error)
}

type TodoStore interface {
	CreateTodo(ctx context.Context, t *domain.Todo) error
	FindTodo(ctx context.Context, ownerID, id int64) (*domain.Todo, error)
	UpdateTodo(ctx context.Context, t *domain.Todo) error
	DeleteTodo(ctx context.Context, ownerID, id int64) error
	ListTodos(ctx context.Context, ownerID int64, q domain.ListQuery) ([]domain.Todo, int64, error)
}

type TokenIssuer interface {
	Issue(uid int64, email string) (string, error)
}

// Events publishes domain events. Delivery is best effort: failures are
// logged and never fail the calling operation.
type Events struct {
	Pub      queue.Publisher
	Exchange string
}

func (e Events) publish(ctx context.Context, key string, ev any) {
	if e.Pub == nil {
		return
	}
	if err := e.Pub.Publish(ctx, e.Exchange, key, ev, log.RequestID(ctx)); err != nil {
		log.Ctx(ctx).Warn("publish event failed", zap.String("key", key), zap.Error(err))
	}
}

const minPasswordLen = 6

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return domain.E(domain.ErrValidation, "Password must be at least 6 characters")
	}
	return nil
}

var errUserNotFound = domain.E(domain.ErrNotFound, "User not found")

// findUser maps a missing user to the user-facing NotFound error.
func findUser(ctx context.Context, users UserStore, id int64) (*domain.User, error) {
	u, err := users.FindUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return u, nil
}
