package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/domain"
)

var sortColumns = map[domain.SortField]string{
	domain.SortCreatedAt: "created_at",
	domain.SortDueDate:   "due_date",
	domain.SortTitle:     "title",
}

func (s *Store) CreateTodo(ctx context.Context, t *domain.Todo) (err error) {
	sp, ctx := startSpan(ctx, "mongo.todos.insert", tracer.Tag("owner_id", t.OwnerID))
	defer func() { finish(sp, err) }()

	id, err := s.nextID(ctx, "todos")
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.ID = id
	t.CreatedAt, t.UpdatedAt = now, now
	if _, err = s.colTodos.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// FindTodo returns ErrNotFound for missing todos and for todos of other owners alike.
func (s *Store) FindTodo(ctx context.Context, ownerID, id int64) (t *domain.Todo, err error) {
	sp, ctx := startSpan(ctx, "mongo.todos.find", tracer.Tag("owner_id", ownerID))
	defer func() { finish(sp, err) }()

	var out domain.Todo
	if err = s.colTodos.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &out, nil
}

func (s *Store) UpdateTodo(ctx context.Context, t *domain.Todo) (err error) {
	sp, ctx := startSpan(ctx, "mongo.todos.replace", tracer.Tag("owner_id", t.OwnerID))
	defer func() { finish(sp, err) }()

	t.UpdatedAt = time.Now().UTC()
	res, err := s.colTodos.ReplaceOne(ctx, bson.M{"_id": t.ID, "owner_id": t.OwnerID}, t)
	if err != nil {
		return fmt.Errorf("replace todo: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTodo(ctx context.Context, ownerID, id int64) (err error) {
	sp, ctx := startSpan(ctx, "mongo.todos.delete", tracer.Tag("owner_id", ownerID))
	defer func() { finish(sp, err) }()

	res, err := s.colTodos.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func todoFilter(ownerID int64, search string) bson.M {
	filter := bson.M{"owner_id": ownerID}
	if search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}
	}
	return filter
}

// ListTodos returns one page of the owner's todos and the total match count.
func (s *Store) ListTodos(ctx context.Context, ownerID int64, q domain.ListQuery) (items []domain.Todo, total int64, err error) {
	sp, ctx := startSpan(ctx, "mongo.todos.list",
		tracer.Tag("owner_id", ownerID),
		tracer.Tag("sort", string(q.SortBy)),
	)
	defer func() { finish(sp, err) }()

	filter := todoFilter(ownerID, q.Search)
	total, err = s.colTodos.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count todos: %w", err)
	}

	dir := -1
	if q.Order == domain.OrderAsc {
		dir = 1
	}
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	opts := options.Find().SetSort(bson.D{{Key: col, Value: dir}, {Key: "_id", Value: dir}})
	if !q.All {
		opts.SetSkip(int64(q.Offset())).SetLimit(int64(q.Limit))
	}

	cur, err := s.colTodos.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find todos: %w", err)
	}
	defer cur.Close(ctx)

	items = []domain.Todo{}
	for cur.Next(ctx) {
		var t domain.Todo
		if err = cur.Decode(&t); err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, cur.Err()
}
