package service

import (
	"context"
	"strings"
	"time"

	"github.com/tazhibayda/todo-service/internal/domain"
)

var errTodoNotFound = domain.E(domain.ErrNotFound, "Todo not found")

type TodoService struct {
	Todos TodoStore
}

func NewTodoService(todos TodoStore) *TodoService { return &TodoService{Todos: todos} }

type NewTodo struct {
	Title       string
	Description string
	DueDate     *time.Time
}

type TodoPage struct {
	Todos      []domain.Todo     `json:"todos"`
	Pagination domain.Pagination `json:"pagination"`
}

func (s *TodoService) Create(ctx context.Context, ownerID int64, in NewTodo) (*domain.Todo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.E(domain.ErrValidation, "Title is required")
	}
	t := &domain.Todo{
		OwnerID:     ownerID,
		Title:       title,
		Description: in.Description,
		DueDate:     in.DueDate,
	}
	if err := s.Todos.CreateTodo(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TodoService) List(ctx context.Context, ownerID int64, q domain.ListQuery) (*TodoPage, error) {
	items, total, err := s.Todos.ListTodos(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Todo{}
	}
	return &TodoPage{Todos: items, Pagination: q.Paginate(total)}, nil
}

func (s *TodoService) Get(ctx context.Context, ownerID, id int64) (*domain.Todo, error) {
	t, err := s.Todos.FindTodo(ctx, ownerID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errTodoNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TodoService) Update(ctx context.Context, ownerID, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.E(domain.ErrValidation, "Title cannot be empty")
		}
		patch.Title = &title
	}
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(t)
	if err := s.Todos.UpdateTodo(ctx, t); err != nil {
		if isNotFound(err) {
			return nil, errTodoNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.Todos.DeleteTodo(ctx, ownerID, id); err != nil {
		if isNotFound(err) {
			return errTodoNotFound
		}
		return err
	}
	return nil
}
