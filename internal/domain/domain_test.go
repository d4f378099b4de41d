package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q := ParseListQuery("", "", "", "", "")
	assert.Equal(t, ListQuery{Page: 1, Limit: DefaultPageSize, SortBy: SortCreatedAt, Order: OrderDesc}, q)
	assert.Equal(t, 0, q.Offset())
}

func TestParseListQuery(t *testing.T) {
	cases := []struct {
		name                           string
		search, page, limit, sort, ord string
		want                           ListQuery
	}{
		{"explicit", " milk ", "3", "5", "title", "asc",
			ListQuery{Search: "milk", Page: 3, Limit: 5, SortBy: SortTitle, Order: OrderAsc}},
		{"bad numbers", "", "-2", "zero", "due_date", "DESC",
			ListQuery{Page: 1, Limit: 10, SortBy: SortDueDate, Order: OrderDesc}},
		{"unknown sort", "", "1", "10", "password_hash", "sideways",
			ListQuery{Page: 1, Limit: 10, SortBy: SortCreatedAt, Order: OrderDesc}},
		{"all", "", "4", "ALL", "", "",
			ListQuery{Page: 1, Limit: 10, All: true, SortBy: SortCreatedAt, Order: OrderDesc}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ParseListQuery(c.search, c.page, c.limit, c.sort, c.ord))
		})
	}
}

func TestParseListQuery_HugeNumbersStayInRange(t *testing.T) {
	for _, c := range []struct{ page, limit string }{
		{"9223372036854775807", "2"},
		{"4611686018427387905", "2"},
		{"9223372036854775807", "9223372036854775807"},
		{"2", "9223372036854775807"},
	} {
		q := ParseListQuery("", c.page, c.limit, "", "")
		assert.GreaterOrEqual(t, q.Offset(), 0, "page=%s limit=%s", c.page, c.limit)
		assert.LessOrEqual(t, q.Offset(), math.MaxInt32, "page=%s limit=%s", c.page, c.limit)
		assert.GreaterOrEqual(t, q.Offset()+q.Limit, q.Offset())
	}
}

func TestPaginate(t *testing.T) {
	q := ParseListQuery("", "2", "10", "", "")
	assert.Equal(t, 10, q.Offset())
	for total, pages := range map[int64]int{0: 0, 1: 1, 10: 1, 11: 2, 95: 10} {
		p := q.Paginate(total)
		assert.Equal(t, pages, p.TotalPages, "total=%d", total)
		assert.Equal(t, 2, p.CurrentPage)
		assert.Equal(t, 10, p.Limit)
	}

	all := ParseListQuery("", "", "all", "", "").Paginate(42)
	assert.Equal(t, Pagination{TotalTodos: 42, TotalPages: 1, CurrentPage: 1, Limit: "all"}, all)
}

func TestWithLocal(t *testing.T) {
	assert.Equal(t, OriginLocal, AuthOrigin("").WithLocal())
	assert.Equal(t, OriginLocal, OriginLocal.WithLocal())
	assert.Equal(t, AuthOrigin("google+local"), OriginGoogle.WithLocal())
	assert.Equal(t, AuthOrigin("google+local"), AuthOrigin("google+local").WithLocal())
}

func TestUserExternalIDs(t *testing.T) {
	var u User
	for _, p := range []AuthOrigin{OriginGoogle, OriginGitHub, OriginFacebook} {
		u.SetExternalID(p, string(p)+"-id")
		assert.Equal(t, string(p)+"-id", u.ExternalID(p))
		assert.NotEmpty(t, ExternalIDField(p))
	}
	assert.Empty(t, u.ExternalID(OriginLocal))
	assert.Empty(t, ExternalIDField(OriginLocal))

	assert.False(t, u.CanPasswordLogin())
	u.PasswordHash = "x"
	assert.False(t, u.CanPasswordLogin(), "hash without password_set")
	u.PasswordSet = true
	assert.True(t, u.CanPasswordLogin())
}

func TestTodoPatch(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	title, done := "new", true
	td := Todo{Title: "old", Description: "keep"}

	TodoPatch{Title: &title, DueDate: &due, IsCompleted: &done}.Apply(&td)
	assert.Equal(t, "new", td.Title)
	assert.Equal(t, "keep", td.Description)
	assert.True(t, td.IsCompleted)
	assert.Equal(t, due, *td.DueDate)

	TodoPatch{ClearDue: true}.Apply(&td)
	assert.Nil(t, td.DueDate)
}

func TestError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Wrap(ErrUpstream, "Google authentication failed", errors.New("bad aud")))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Google authentication failed", MessageOf(err, "x"))
	assert.Contains(t, err.Error(), "bad aud")

	assert.Equal(t, "fallback", MessageOf(errors.New("plain"), "fallback"))
}
