package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"storefront/mirror/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository wraps a pool opened by database.OpenPostgres
func NewPostgresRepository(db *pgxpool.Pool) ProductRepository {
	return &postgresRepository{
		db: db,
	}
}

func (r *postgresRepository) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	query := `
	INSERT INTO products (` + productCols + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id)
	DO UPDATE SET ean = $2, display_name = $3, thumbnail = $4, unit_price = $5, share_url = $6`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(query, p.ID, p.EAN, p.DisplayName, p.ThumbnailURL, p.UnitPrice, p.ShareURL)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert products: %w", err)
	}

	return len(products), nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) Search(ctx context.Context, words []string, rawQuery string) ([]domain.Product, error) {
	if len(words) == 0 {
		return []domain.Product{}, nil
	}

	query, args := searchQuery(words, rawQuery, func(n int) string { return "$" + strconv.Itoa(n) }, "display_name", "ILIKE")
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *postgresRepository) Close() error {
	r.db.Close()
	return nil
}
