package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *bun.DB
}

// NewPgStore creates a new instance of ProductStore on top of a pgx connection pool.
// The pool stays owned by the caller.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	sqldb := stdlib.OpenDBFromPool(pool)
	return &PgStore{
		db: bun.NewDB(sqldb, pgdialect.New()),
	}
}

// Close releases the database/sql handle wrapping the pool.
func (p *PgStore) Close() error {
	return p.db.Close()
}

// where renders the filter as a bun condition with its arguments.
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.ProductCode != "" {
		conds = append(conds, "product_code = ?")
		args = append(args, f.ProductCode)
	}
	if f.Location != "" {
		conds = append(conds, "location = ?")
		args = append(args, f.Location)
	}
	return strings.Join(conds, " AND "), args
}

func (o SortOrder) clause() string {
	if o == SortDesc {
		return "id DESC"
	}
	return "id ASC"
}

// Find retrieves the products matching filter ordered by id.
func (p *PgStore) Find(ctx context.Context, filter Filter, order SortOrder) ([]Product, error) {
	products := make([]Product, 0)
	q := p.db.NewSelect().Model(&products).Order(order.clause())
	if !filter.IsEmpty() {
		cond, args := filter.where()
		q = q.Where(cond, args...)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// Create inserts product and fills in its generated ID.
func (p *PgStore) Create(ctx context.Context, product *Product) error {
	if _, err := p.db.NewInsert().Model(product).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies patch to the products matching filter.
func (p *PgStore) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if filter.IsEmpty() {
		return 0, perrors.ErrEmptyFilter
	}
	if patch.IsEmpty() {
		return 0, nil
	}
	q := p.db.NewUpdate().Model((*Product)(nil))
	if patch.Location != nil {
		q = q.Set("location = ?", *patch.Location)
	}
	if patch.Price != nil {
		q = q.Set("price = ?", *patch.Price)
	}
	cond, args := filter.where()
	res, err := q.Where(cond, args...).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to update products: %w", err)
	}
	return rowsAffected(res)
}

// FindOne retrieves the product with the lowest id matching filter.
func (p *PgStore) FindOne(ctx context.Context, filter Filter) (*Product, error) {
	product := new(Product)
	q := p.db.NewSelect().Model(product).Order(SortAsc.clause()).Limit(1)
	if !filter.IsEmpty() {
		cond, args := filter.where()
		q = q.Where(cond, args...)
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

// Delete removes the products matching filter.
func (p *PgStore) Delete(ctx context.Context, filter Filter) (int64, error) {
	if filter.IsEmpty() {
		return 0, perrors.ErrEmptyFilter
	}
	cond, args := filter.where()
	res, err := p.db.NewDelete().Model((*Product)(nil)).Where(cond, args...).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
