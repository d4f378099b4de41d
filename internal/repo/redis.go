package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tazhibayda/todo-service/internal/domain"
)

const resetGrantPrefix = "reset_grant:"

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// SaveResetGrant stores the hashed reset token for email; Redis expires it.
func (r *Redis) SaveResetGrant(ctx context.Context, tokenHash, email string, ttl time.Duration) error {
	if err := r.C.Set(ctx, resetGrantPrefix+tokenHash, email, ttl).Err(); err != nil {
		return fmt.Errorf("save reset grant: %w", err)
	}
	return nil
}

// ConsumeResetGrant returns the email bound to the grant and deletes it.
func (r *Redis) ConsumeResetGrant(ctx context.Context, tokenHash string) (string, error) {
	email, err := r.C.GetDel(ctx, resetGrantPrefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidOrExpired
	}
	if err != nil {
		return "", fmt.Errorf("consume reset grant: %w", err)
	}
	return email, nil
}
