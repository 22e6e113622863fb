package service

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Paging limits applied to QueryOptions.
const (
	DefaultTake = 50
	MaxTake     = 200
)

// QueryOptions is the filter a listing accepts. SortBy is checked against a
// per-entity whitelist; no query builder leaves the store.
type QueryOptions struct {
	Search   string
	SortBy   string
	SortDesc bool
	Skip     int
	Take     int
}

// Page is one slice of a listing plus the total match count.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Take  int   `json:"take"`
}

// listSpec describes how an entity is searched and sorted.
type listSpec struct {
	searchColumns []string
	sortColumns   map[string]string
	defaultSort   string
}

func (o QueryOptions) normalized() QueryOptions {
	if o.Skip < 0 {
		o.Skip = 0
	}
	if o.Take <= 0 {
		o.Take = DefaultTake
	}
	if o.Take > MaxTake {
		o.Take = MaxTake
	}
	o.Search = strings.TrimSpace(o.Search)
	return o
}

// filter narrows q to rows matching the search term.
func (s listSpec) filter(q *gorm.DB, opts QueryOptions) *gorm.DB {
	if opts.Search == "" {
		return q
	}
	pattern := "%" + strings.ToLower(opts.Search) + "%"
	clauses := make([]string, 0, len(s.searchColumns))
	args := make([]any, 0, len(s.searchColumns))
	for _, col := range s.searchColumns {
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ?", col))
		args = append(args, pattern)
	}
	return q.Where(strings.Join(clauses, " OR "), args...)
}

// order resolves the ORDER BY expression for opts.
func (s listSpec) order(opts QueryOptions) (string, error) {
	column := s.defaultSort
	if opts.SortBy != "" {
		c, ok := s.sortColumns[opts.SortBy]
		if !ok {
			return "", &ValidationError{Message: fmt.Sprintf("cannot sort by %q", opts.SortBy)}
		}
		column = c
	}
	if opts.SortDesc {
		return column + " DESC", nil
	}
	return column + " ASC", nil
}

// list runs a paged listing. q must already carry Model and base conditions.
func list[T any](q *gorm.DB, spec listSpec, opts QueryOptions) (*Page[T], error) {
	opts = opts.normalized()
	orderBy, err := spec.order(opts)
	if err != nil {
		return nil, err
	}
	q = spec.filter(q, opts)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if err := q.Order(orderBy).Offset(opts.Skip).Limit(opts.Take).Find(&items).Error; err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Total: total, Skip: opts.Skip, Take: opts.Take}, nil
}
