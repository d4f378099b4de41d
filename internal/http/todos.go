package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/service"
)

var errTodoNotFound = domain.E(domain.ErrNotFound, "Todo not found")

// todoReq is shared by create and update. DueDate stays raw so that an
// explicit null can clear the date.
type todoReq struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     json.RawMessage `json:"due_date" swaggertype:"string" example:"2026-05-01"`
	IsCompleted *bool           `json:"is_completed"`
	IsRead      *bool           `json:"is_read"`
}

// parseDue accepts YYYY-MM-DD or RFC 3339. clearDue is true for null or "".
func parseDue(raw json.RawMessage) (due *time.Time, clearDue bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, domain.E(domain.ErrValidation, "due_date must be a date string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, false, nil
		}
	}
	return nil, false, domain.E(domain.ErrValidation, "due_date must be YYYY-MM-DD or RFC 3339")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type todoResp struct {
	Message string       `json:"message"`
	Todo    *domain.Todo `json:"todo"`
}

// CreateTodo godoc
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body todoReq true "todo"
// @Success 201 {object} todoResp
// @Failure 400 {object} messageResp
// @Router /api/todos [post]
func (h *Handler) CreateTodo(c *gin.Context) {
	var in todoReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	due, _, err := parseDue(in.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}
	t, err := h.Todos.Create(c.Request.Context(), uid(c), service.NewTodo{
		Title:       deref(in.Title),
		Description: deref(in.Description),
		DueDate:     due,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todoResp{Message: "Todo created successfully", Todo: t})
}

// ListTodos godoc
// @Summary List the caller's todos
// @Tags todos
// @Produce json
// @Security BearerAuth
// @Param search query string false "substring of title or description"
// @Param page query int false "page, from 1"
// @Param limit query string false "page size or all"
// @Param sortBy query string false "createdAt | due_date | title"
// @Param order query string false "ASC | DESC"
// @Success 200 {object} service.TodoPage
// @Router /api/todos [get]
func (h *Handler) ListTodos(c *gin.Context) {
	q := domain.ParseListQuery(c.Query("search"), c.Query("page"), c.Query("limit"), c.Query("sortBy"), c.Query("order"))
	page, err := h.Todos.List(c.Request.Context(), uid(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetTodo godoc
// @Summary Get one todo
// @Tags todos
// @Produce json
// @Security BearerAuth
// @Param id path int true "todo id"
// @Success 200 {object} domain.Todo
// @Failure 404 {object} messageResp
// @Router /api/todos/{id} [get]
func (h *Handler) GetTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		writeError(c, errTodoNotFound)
		return
	}
	t, err := h.Todos.Get(c.Request.Context(), uid(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTodo godoc
// @Summary Update fields of a todo
// @Tags todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "todo id"
// @Param payload body todoReq true "fields to change"
// @Success 200 {object} todoResp
// @Failure 400 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/todos/{id} [put]
func (h *Handler) UpdateTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		writeError(c, errTodoNotFound)
		return
	}
	var in todoReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c)
		return
	}
	due, clearDue, err := parseDue(in.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}
	t, err := h.Todos.Update(c.Request.Context(), uid(c), id, domain.TodoPatch{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     due,
		ClearDue:    clearDue,
		IsCompleted: in.IsCompleted,
		IsRead:      in.IsRead,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todoResp{Message: "Todo updated successfully", Todo: t})
}

// DeleteTodo godoc
// @Summary Delete a todo
// @Tags todos
// @Produce json
// @Security BearerAuth
// @Param id path int true "todo id"
// @Success 200 {object} messageResp
// @Failure 404 {object} messageResp
// @Router /api/todos/{id} [delete]
func (h *Handler) DeleteTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		writeError(c, errTodoNotFound)
		return
	}
	if err := h.Todos.Delete(c.Request.Context(), uid(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResp{Message: "Todo deleted successfully"})
}
