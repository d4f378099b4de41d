package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/domain"
)

type Store struct {
	Client      *mongo.Client
	DB          *mongo.Database
	colUsers    *mongo.Collection
	colTodos    *mongo.Collection
	colCounters *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:      cli,
		DB:          db,
		colUsers:    db.Collection("users"),
		colTodos:    db.Collection("todos"),
		colCounters: db.Collection("counters"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

// EnsureIndexes creates the indexes the store relies on. The unique email
// index is the only guard against two concurrent registrations.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// GitHub accounts without a public email have no email field at all.
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email").
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetSparse(true).SetName("google_id")},
		{Keys: bson.D{{Key: "github_id", Value: 1}}, Options: options.Index().SetSparse(true).SetName("github_id")},
		{Keys: bson.D{{Key: "facebook_id", Value: 1}}, Options: options.Index().SetSparse(true).SetName("facebook_id")},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.colTodos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("owner_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("owner_due"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetName("owner_title"),
		},
	})
	if err != nil {
		return fmt.Errorf("todos indexes: %w", err)
	}
	return nil
}

// nextID hands out sequential numeric ids per collection.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.colCounters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

func startSpan(ctx context.Context, op string, opts ...ddtrace.StartSpanOption) (ddtrace.Span, context.Context) {
	opts = append(opts, tracer.SpanType("mongodb"), tracer.ServiceName("todo-mongo"))
	return tracer.StartSpanFromContext(ctx, op, opts...)
}

func finish(sp ddtrace.Span, err error) {
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) &&
		!errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidOrExpired) {
		sp.Finish(tracer.WithError(err))
		return
	}
	sp.Finish()
}
