package services

import (
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListQuery is the common search and pagination input of list operations.
// Page is 1-based.
type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

func (q ListQuery) normalized() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Page is one page of a list result.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// likePattern builds a case-insensitive LIKE pattern, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// search restricts tx to rows where any column contains q. LOWER/LIKE keeps
// it portable between Postgres and SQLite.
func search(tx *gorm.DB, q string, columns ...string) *gorm.DB {
	if q == "" || len(columns) == 0 {
		return tx
	}
	pattern := likePattern(q)
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = "LOWER(" + c + `) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return tx.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// paginate counts the filtered rows and loads the requested page with the
// given associations preloaded.
func paginate[T any](tx *gorm.DB, q ListQuery, order string, preloads ...string) (Page[T], error) {
	q = q.normalized()
	out := Page[T]{Items: []T{}, Page: q.Page, Limit: q.Limit}
	if err := tx.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return out, err
	}
	if out.Total == 0 {
		return out, nil
	}
	find := tx.Order(order).Limit(q.Limit).Offset((q.Page - 1) * q.Limit)
	for _, p := range preloads {
		find = find.Preload(p)
	}
	err := find.Find(&out.Items).Error
	return out, err
}
