package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/shelfrank/internal/db"
	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// DefaultQueryTimeout bounds a single catalog query.
const DefaultQueryTimeout = 15 * time.Second

const selectItems = `SELECT p.id_producto, p.nombre, p.precio, p.cantidad, COALESCE(c.nombre, ''), p.imagen
FROM productos p
LEFT JOIN categorias c ON c.id_categoria = p.id_categoria`

// Repo implements read-only catalog lookups (feed.CatalogReader, search.CatalogReader).
type Repo struct {
	store   db.Querier
	timeout time.Duration
}

// New creates a catalog repository.
func New(store db.Querier) *Repo {
	return &Repo{store: store, timeout: DefaultQueryTimeout}
}

// WithTimeout overrides the per-query timeout.
func (r *Repo) WithTimeout(d time.Duration) *Repo {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// GetByIDs returns the catalog rows for ids in a single query. Missing ids
// are simply absent from the result; order is unspecified.
func (r *Repo) GetByIDs(ctx context.Context, ids []int64) ([]domain.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	query := selectItems + " WHERE p.id_producto IN (" + placeholders[:len(placeholders)-1] + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return r.query(ctx, query, args...)
}

// List returns an unranked catalog page ordered by product id.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]domain.CatalogItem, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return r.query(ctx, selectItems+" ORDER BY p.id_producto LIMIT ? OFFSET ?", limit, offset)
}

func (r *Repo) query(ctx context.Context, query string, args ...any) ([]domain.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, &db.Error{Op: db.OpScan, Err: err})
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (domain.CatalogItem, error) {
	var (
		it    domain.CatalogItem
		image sql.NullString
	)
	if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Stock, &it.CategoryName, &image); err != nil {
		return domain.CatalogItem{}, err
	}
	if it.Stock < 0 {
		it.Stock = 0
	}
	if image.Valid && image.String != "" {
		img := image.String
		it.ImageRef = &img
	}
	return it, nil
}
