// Package orm wraps GORM queries used by the ledger with pagination.
package orm

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// ErrNotFound is returned by First when no row matches.
var ErrNotFound = errors.New("orm: record not found")

// Pagination describes one page of a result set.
type Pagination struct {
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// Query is an immutable builder; every method returns a new Query.
type Query struct {
	db    *gorm.DB
	table string
}

// New starts a query against table on db, bound to ctx.
func New(ctx context.Context, db *gorm.DB, model any) *Query {
	q := db.WithContext(ctx).Model(model)
	table := "unknown"
	if stmt := q.Statement; stmt != nil {
		if err := stmt.Parse(model); err == nil && stmt.Schema != nil {
			table = stmt.Schema.Table
		}
	}
	return &Query{db: q.Session(&gorm.Session{}), table: table}
}

func (q *Query) Where(query string, args ...any) *Query {
	return &Query{db: q.db.Where(query, args...), table: q.table}
}

func (q *Query) Order(order string) *Query {
	return &Query{db: q.db.Order(order), table: q.table}
}

func (q *Query) Get(dest any) error {
	defer metrics.ObserveStore(q.table, "find", time.Now())
	return q.db.Find(dest).Error
}

func (q *Query) First(dest any) error {
	defer metrics.ObserveStore(q.table, "find_one", time.Now())
	err := q.db.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Paginate loads page (1-based) of perPage rows into dest and counts the total.
func (q *Query) Paginate(dest any, page, perPage int) (Pagination, error) {
	defer metrics.ObserveStore(q.table, "paginate", time.Now())

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}

	var total int64
	if err := q.db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	if err := q.db.Session(&gorm.Session{}).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	return Pagination{
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		LastPage: int(math.Max(1, math.Ceil(float64(total)/float64(perPage)))),
	}, nil
}
