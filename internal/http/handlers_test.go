package http_test

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/tazhibayda/todo-service/docs"
	"github.com/tazhibayda/todo-service/internal/domain"
	api "github.com/tazhibayda/todo-service/internal/http"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/service"
)

func Test_Register_Login_Me(t *testing.T) {
	env := newTestEnv(t)
	env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "john@example.com", "password": "StrongP@ss1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[tokenBody](t, w).Token

	w = env.do(http.MethodGet, "/api/users/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[map[string]any](t, w)
	assert.Equal(t, "John", me["name"])
	assert.Equal(t, "john@example.com", me["email"])
	assert.Equal(t, "local", me["authType"])
	assert.Equal(t, true, me["passwordSet"])
	assert.NotContains(t, me, "password_hash")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func Test_Register_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/users/register", "", map[string]string{"name": "J", "email": "john@example.com", "password": "whatever1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode[messageBody](t, w).Message)
}

func Test_Login_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "john@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credentials", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPost, "/api/users/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode[messageBody](t, w).Message)
}

func Test_Protected_RequiresToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/users/me", "/api/todos", "/api/todos/1"} {
		w := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		w = env.do(http.MethodGet, path, "not.a.jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func Test_Google_Then_SetPassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/google", "", map[string]string{"credential": "header.payload.sig"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Success bool
		Token   string
		User    struct{ Email, Name, Picture string }
	}](t, w)
	assert.True(t, body.Success)
	assert.Equal(t, "gina@example.com", body.User.Email)

	w = env.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "gina@example.com", "password": "anything"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please login with Google or set a password", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPost, "/api/users/set-password", body.Token, map[string]string{"password": "gina-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/api/users/set-password", body.Token, map[string]string{"password": "gina-pass2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/users/me", body.Token, nil)
	assert.Equal(t, "google+local", decode[map[string]any](t, w)["authType"])
}

func Test_OAuth_Failures(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/google", "", map[string]string{"credential": "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Google authentication failed", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPost, "/api/auth/github", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No code provided", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPost, "/api/auth/facebook", "", map[string]string{"code": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "facebook is not configured here")

	w = env.do(http.MethodPost, "/api/auth/github", "", map[string]string{"code": "gh-code"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func Test_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/users/change-password", tok, map[string]string{"currentPassword": "bad", "newPassword": "next-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Current password is incorrect", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPost, "/api/users/change-password", tok, map[string]string{"currentPassword": "StrongP@ss1", "newPassword": "next-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "john@example.com", "password": "next-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_UpdateMe(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register("John", "john@example.com", "StrongP@ss1")
	env.register("Jane", "jane@example.com", "StrongP@ss1")

	w := env.do(http.MethodPut, "/api/users/me", tok, map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode[messageBody](t, w).Message)

	w = env.do(http.MethodPut, "/api/users/me", tok, map[string]string{"name": "Johnny"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]string](t, w)
	assert.Equal(t, "Profile updated", got["message"])
	assert.Equal(t, "Johnny", got["name"])
	assert.Equal(t, "john@example.com", got["email"])
}

func Test_PasswordRecovery(t *testing.T) {
	env := newTestEnv(t)
	env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/users/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/users/forgot-password", "", map[string]string{"email": "john@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := env.Mail.lastCode(t)

	w = env.do(http.MethodPost, "/api/users/verify-otp", "", map[string]string{"email": "john@example.com", "otp": "not-it"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/users/verify-otp", "", map[string]string{"email": "john@example.com", "otp": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resetToken := decode[map[string]string](t, w)["resetToken"]
	require.NotEmpty(t, resetToken)

	w = env.do(http.MethodPost, "/api/users/reset-password", "", map[string]string{"email": "john@example.com", "newPassword": "fresh-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "reset without the token is refused")

	w = env.do(http.MethodPost, "/api/users/reset-password", "", map[string]string{
		"email": "john@example.com", "newPassword": "fresh-pass", "resetToken": resetToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "john@example.com", "password": "fresh-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func Test_UploadProfilePic(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register("John", "john@example.com", "StrongP@ss1")
	env.register("Jane", "jane@example.com", "StrongP@ss1")

	me := decode[map[string]any](t, env.do(http.MethodGet, "/api/users/me", tok, nil))
	id := int64(me["id"].(float64))
	path := fmt.Sprintf("/api/users/upload-profile-pic/%d", id)

	w := env.upload(path, tok, "me.png", "image/png", pngData)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pic := decode[map[string]string](t, w)["profilePic"]
	require.True(t, strings.HasPrefix(pic, "/uploads/"))

	_, err := os.Stat(filepath.Join(env.UploadDir, strings.TrimPrefix(pic, "/uploads/")))
	require.NoError(t, err)

	w = env.do(http.MethodGet, pic, "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "served statically")

	w = env.upload(fmt.Sprintf("/api/users/upload-profile-pic/%d", id+1), tok, "me.png", "image/png", pngData)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.upload(path, tok, "me.gif", "image/gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, path, tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No image uploaded", decode[messageBody](t, w).Message)
}

type todoEnvelope struct {
	Message string      `json:"message"`
	Todo    domain.Todo `json:"todo"`
}

func Test_Todo_CRUD(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register("John", "john@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/todos", tok, map[string]any{"title": "X"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[todoEnvelope](t, w).Todo
	assert.Equal(t, "Todo created successfully", decode[todoEnvelope](t, w).Message)
	path := fmt.Sprintf("/api/todos/%d", created.ID)

	w = env.do(http.MethodGet, path, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw := decode[map[string]any](t, w)
	assert.Equal(t, "X", raw["title"])
	assert.Equal(t, false, raw["is_completed"])
	assert.Nil(t, raw["due_date"])

	w = env.do(http.MethodPut, path, tok, map[string]any{"is_completed": true, "due_date": "2026-05-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upd := decode[todoEnvelope](t, w).Todo
	assert.True(t, upd.IsCompleted)
	require.NotNil(t, upd.DueDate)
	assert.Equal(t, "2026-05-01", upd.DueDate.Format("2006-01-02"))

	w = env.do(http.MethodPut, path, tok, `{"due_date": null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[todoEnvelope](t, w).Todo.DueDate)

	w = env.do(http.MethodPut, path, tok, map[string]any{"due_date": "next tuesday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, path, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, path, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Todo not found", decode[messageBody](t, w).Message)

	w = env.do(http.MethodGet, "/api/todos/abc", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/todos", tok, map[string]any{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_Todo_OwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	a := env.register("Ann", "ann@example.com", "StrongP@ss1")
	b := env.register("Bob", "bob@example.com", "StrongP@ss1")

	w := env.do(http.MethodPost, "/api/todos", a, map[string]any{"title": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/api/todos/%d", decode[todoEnvelope](t, w).Todo.ID)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, b, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, path, b, map[string]any{"title": "mine"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, b, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, a, nil).Code)
}

func Test_Todo_ListPagination(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register("John", "john@example.com", "StrongP@ss1")
	for i := 0; i < 23; i++ {
		w := env.do(http.MethodPost, "/api/todos", tok, map[string]any{"title": fmt.Sprintf("task %02d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(http.MethodGet, "/api/todos?page=3&limit=10&sortBy=title&order=asc", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[service.TodoPage](t, w)
	assert.Len(t, page.Todos, 3)
	assert.Equal(t, "task 20", page.Todos[0].Title)
	assert.Equal(t, int64(23), page.Pagination.TotalTodos)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 3, page.Pagination.CurrentPage)
	assert.EqualValues(t, 10, page.Pagination.Limit)

	w = env.do(http.MethodGet, "/api/todos?limit=all", tok, nil)
	all := decode[service.TodoPage](t, w)
	assert.Len(t, all.Todos, 23)
	assert.Equal(t, 1, all.Pagination.TotalPages)
	assert.Equal(t, "all", all.Pagination.Limit)

	w = env.do(http.MethodGet, "/api/todos?sortBy=malicious_field&order=drop", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[service.TodoPage](t, w).Todos, 10)

	w = env.do(http.MethodGet, "/api/todos?search=TASK%2021", tok, nil)
	found := decode[service.TodoPage](t, w)
	require.Len(t, found.Todos, 1)
	assert.Equal(t, "task 21", found.Todos[0].Title)

	for _, q := range []string{"page=9223372036854775807&limit=2", "page=4611686018427387905&limit=2"} {
		w = env.do(http.MethodGet, "/api/todos?"+q, tok, nil)
		require.Equal(t, http.StatusOK, w.Code, q)
		assert.Empty(t, decode[service.TodoPage](t, w).Todos, q)
	}
}

func Test_Ops(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	w = env.do(http.MethodGet, "/.well-known/jwks.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keys":[]}`, w.Body.String())
}

func Test_MetricsAndDocs(t *testing.T) {
	metrics.MustRegister()
	env := newTestEnv(t, func(rc *api.RouterConfig) {
		rc.Metrics = true
		rc.Docs = true
	})

	env.do(http.MethodGet, "/healthz", "", nil)
	w := env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"}`)

	w = env.do(http.MethodGet, "/docs/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/todos")
}
