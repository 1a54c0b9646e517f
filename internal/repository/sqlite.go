package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/mirror/internal/domain"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps a database opened by database.OpenSQLite
func NewSQLiteRepository(db *sql.DB) ProductRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO products (`+productCols+`, name_folded)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id)
	DO UPDATE SET ean = excluded.ean, display_name = excluded.display_name, thumbnail = excluded.thumbnail,
		unit_price = excluded.unit_price, share_url = excluded.share_url, name_folded = excluded.name_folded`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.EAN, p.DisplayName, p.ThumbnailURL, p.UnitPrice, p.ShareURL, foldName(p.DisplayName)); err != nil {
			return 0, fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return len(products), nil
}

func (r *sqliteRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

func (r *sqliteRepository) Search(ctx context.Context, words []string, rawQuery string) ([]domain.Product, error) {
	if len(words) == 0 {
		return []domain.Product{}, nil
	}

	folded := make([]string, len(words))
	for i, word := range words {
		folded[i] = foldName(word)
	}

	query, args := searchQuery(folded, rawQuery, func(int) string { return "?" }, "name_folded", "LIKE")
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *sqliteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}
