package domain

import (
	"math"
	"strconv"
	"strings"
)

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortDueDate   SortField = "due_date"
	SortTitle     SortField = "title"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

const DefaultPageSize = 10

// maxOffset bounds page and limit so (page-1)*limit never overflows.
const maxOffset = math.MaxInt32

// ListQuery is the validated form of the todo list parameters.
type ListQuery struct {
	Search string
	Page   int
	Limit  int  // ignored when All is set
	All    bool // limit=all
	SortBy SortField
	Order  SortOrder
}

// ParseListQuery normalises raw query-string values. Unknown sort fields and
// orders fall back to createdAt DESC instead of failing.
func ParseListQuery(search, page, limit, sortBy, order string) ListQuery {
	q := ListQuery{
		Search: strings.TrimSpace(search),
		Page:   1,
		Limit:  DefaultPageSize,
		SortBy: SortCreatedAt,
		Order:  OrderDesc,
	}
	if p, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && p > 0 {
		q.Page = p
	}
	switch l := strings.TrimSpace(limit); {
	case strings.EqualFold(l, "all"):
		q.All = true
	default:
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			q.Limit = n
		}
	}
	switch SortField(sortBy) {
	case SortCreatedAt, SortDueDate, SortTitle:
		q.SortBy = SortField(sortBy)
	}
	if strings.EqualFold(strings.TrimSpace(order), string(OrderAsc)) {
		q.Order = OrderAsc
	}
	if q.Limit > maxOffset {
		q.Limit = maxOffset
	}
	if last := maxOffset/q.Limit + 1; q.Page > last {
		q.Page = last
	}
	if q.All {
		q.Page = 1
	}
	return q
}

func (q ListQuery) Offset() int {
	if q.All {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

type Pagination struct {
	TotalTodos  int64 `json:"totalTodos"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       any   `json:"limit"` // int or "all"
}

func (q ListQuery) Paginate(total int64) Pagination {
	if q.All {
		return Pagination{TotalTodos: total, TotalPages: 1, CurrentPage: 1, Limit: "all"}
	}
	return Pagination{
		TotalTodos:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(q.Limit))),
		CurrentPage: q.Page,
		Limit:       q.Limit,
	}
}
