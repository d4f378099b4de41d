// Package memory is an in-process store with the same contract as the Mongo
// store. It backs STORE_DRIVER=memory and the HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tazhibayda/todo-service/internal/domain"
)

type grant struct {
	email   string
	expires time.Time
}

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	users  map[int64]domain.User
	todos  map[int64]domain.Todo
	grants map[string]grant

	userSeq int64
	todoSeq int64
}

func New() *Store {
	return &Store{
		now:    time.Now,
		users:  map[int64]domain.User{},
		todos:  map[int64]domain.Todo{},
		grants: map[string]grant{},
	}
}

// WithClock replaces the store clock (timestamps and grant expiry).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) emailTaken(email string, except int64) bool {
	if email == "" {
		return false
	}
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(u.Email, 0) {
		return domain.ErrConflict
	}
	s.userSeq++
	now := s.now().UTC()
	u.ID = s.userSeq
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *Store) findBy(match func(domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return s.findBy(func(u domain.User) bool { return u.Email == email })
}

func (s *Store) FindUserByExternalID(_ context.Context, provider domain.AuthOrigin, subject string) (*domain.User, error) {
	if subject == "" {
		return nil, domain.ErrNotFound
	}
	return s.findBy(func(u domain.User) bool { return u.ExternalID(provider) == subject })
}

func (s *Store) UpdateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return domain.ErrConflict
	}
	u.UpdatedAt = s.now().UTC()
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *Store) SetResetCode(_ context.Context, userID int64, code string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	exp := expiry.UTC()
	u.ResetCode, u.ResetCodeExpiry = code, &exp
	s.users[userID] = u
	return nil
}

func (s *Store) ConsumeResetCode(_ context.Context, email, code string, now time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email != email {
			continue
		}
		if u.ResetCode == "" || u.ResetCode != code || u.ResetCodeExpiry == nil || !now.Before(*u.ResetCodeExpiry) {
			return nil, domain.ErrInvalidOrExpired
		}
		u.ClearResetCode()
		u.UpdatedAt = s.now().UTC()
		s.users[id] = u
		out := cloneUser(u)
		return &out, nil
	}
	return nil, domain.ErrInvalidOrExpired
}

func (s *Store) SaveResetGrant(_ context.Context, tokenHash, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[tokenHash] = grant{email: email, expires: s.now().Add(ttl)}
	return nil
}

func (s *Store) ConsumeResetGrant(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[tokenHash]
	delete(s.grants, tokenHash)
	if !ok || !s.now().Before(g.expires) {
		return "", domain.ErrInvalidOrExpired
	}
	return g.email, nil
}

func (s *Store) CreateTodo(_ context.Context, t *domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todoSeq++
	now := s.now().UTC()
	t.ID = s.todoSeq
	t.CreatedAt, t.UpdatedAt = now, now
	s.todos[t.ID] = cloneTodo(*t)
	return nil
}

func (s *Store) FindTodo(_ context.Context, ownerID, id int64) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	out := cloneTodo(t)
	return &out, nil
}

func (s *Store) UpdateTodo(_ context.Context, t *domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.todos[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return domain.ErrNotFound
	}
	t.UpdatedAt = s.now().UTC()
	s.todos[t.ID] = cloneTodo(*t)
	return nil
}

func (s *Store) DeleteTodo(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok || t.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}

func (s *Store) ListTodos(_ context.Context, ownerID int64, q domain.ListQuery) ([]domain.Todo, int64, error) {
	s.mu.Lock()
	matched := []domain.Todo{}
	needle := strings.ToLower(q.Search)
	for _, t := range s.todos {
		if t.OwnerID != ownerID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		matched = append(matched, cloneTodo(t))
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		c := compareTodos(matched[i], matched[j], q.SortBy)
		if c == 0 {
			c = cmpInt(matched[i].ID, matched[j].ID)
		}
		if q.Order == domain.OrderAsc {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(matched))
	if q.All {
		return matched, total, nil
	}
	off := q.Offset()
	if off < 0 || off >= len(matched) {
		return []domain.Todo{}, total, nil
	}
	end := off + q.Limit
	if end < off || end > len(matched) {
		end = len(matched)
	}
	return matched[off:end], total, nil
}

// compareTodos orders missing due dates first, as Mongo does.
func compareTodos(a, b domain.Todo, field domain.SortField) int {
	switch field {
	case domain.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case domain.SortDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return -1
		case b.DueDate == nil:
			return 1
		}
		return a.DueDate.Compare(*b.DueDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneUser(u domain.User) domain.User {
	if u.ResetCodeExpiry != nil {
		e := *u.ResetCodeExpiry
		u.ResetCodeExpiry = &e
	}
	return u
}

func cloneTodo(t domain.Todo) domain.Todo {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}
