package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) (err error) {
	sp, ctx := startSpan(ctx, "mongo.users.insert", tracer.Tag("auth_type", string(u.AuthType)))
	defer func() { finish(sp, err) }()

	id, err := s.nextID(ctx, "users")
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err = s.colUsers.InsertOne(ctx, u); err != nil {
		if IsDup(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (u *domain.User, err error) {
	sp, ctx := startSpan(ctx, op)
	defer func() { finish(sp, err) }()

	var out domain.User
	if err = s.colUsers.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &out, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.findUser(ctx, "mongo.users.find_by_id", bson.M{"_id": id})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return s.findUser(ctx, "mongo.users.find_by_email", bson.M{"email": email})
}

func (s *Store) FindUserByExternalID(ctx context.Context, provider domain.AuthOrigin, subject string) (*domain.User, error) {
	field := domain.ExternalIDField(provider)
	if field == "" || subject == "" {
		return nil, domain.ErrNotFound
	}
	return s.findUser(ctx, "mongo.users.find_by_"+field, bson.M{field: subject})
}

// UpdateUser replaces the stored document; cleared optional fields disappear.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) (err error) {
	sp, ctx := startSpan(ctx, "mongo.users.replace", tracer.Tag("user_id", u.ID))
	defer func() { finish(sp, err) }()

	u.UpdatedAt = time.Now().UTC()
	res, err := s.colUsers.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if IsDup(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetResetCode(ctx context.Context, userID int64, code string, expiry time.Time) (err error) {
	sp, ctx := startSpan(ctx, "mongo.users.set_reset_code", tracer.Tag("user_id", userID))
	defer func() { finish(sp, err) }()

	res, err := s.colUsers.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"reset_code":        code,
		"reset_code_expiry": expiry.UTC(),
		"updated_at":        time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumeResetCode clears the code if it matches and has not expired at now.
// Match and clear happen in one FindOneAndUpdate so a code works only once.
func (s *Store) ConsumeResetCode(ctx context.Context, email, code string, now time.Time) (u *domain.User, err error) {
	sp, ctx := startSpan(ctx, "mongo.users.consume_reset_code")
	defer func() { finish(sp, err) }()

	var out domain.User
	err = s.colUsers.FindOneAndUpdate(ctx,
		bson.M{
			"email":             email,
			"reset_code":        code,
			"reset_code_expiry": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$unset": bson.M{"reset_code": "", "reset_code_expiry": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("consume reset code: %w", err)
	}
	return &out, nil
}
