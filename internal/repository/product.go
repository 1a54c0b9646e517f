package repository

import (
	"context"
	"fmt"
	"strings"

	"storefront/mirror/internal/domain"
)

// ProductRepository is the local catalog store
type ProductRepository interface {
	// UpsertBatch writes every record in one transaction, replacing all
	// columns of rows whose id already exists.
	UpsertBatch(ctx context.Context, products []domain.Product) (int, error)
	// FindByID returns nil, nil when the product is not stored.
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// Search matches rows whose display_name contains every word
	// (case-insensitive) or whose ean or id equals rawQuery. No words, no rows.
	Search(ctx context.Context, words []string, rawQuery string) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

const productCols = `id, ean, display_name, thumbnail, unit_price, share_url`

// searchQuery builds the WHERE clause shared by both backends. placeholder
// renders the n-th (1-based) bind parameter; nameColumn LIKE-matched with
// likeOp must be case-insensitive for the words given.
func searchQuery(words []string, rawQuery string, placeholder func(n int) string, nameColumn, likeOp string) (string, []any) {
	conditions := make([]string, 0, len(words))
	args := make([]any, 0, len(words)+2)

	for _, word := range words {
		args = append(args, "%"+escapeLike(word)+"%")
		conditions = append(conditions, fmt.Sprintf(`%s %s %s ESCAPE '\'`, nameColumn, likeOp, placeholder(len(args))))
	}

	args = append(args, rawQuery)
	eanArg := placeholder(len(args))
	args = append(args, rawQuery)
	idArg := placeholder(len(args))

	query := fmt.Sprintf(`SELECT %s FROM products WHERE (%s) OR ean = %s OR id = %s ORDER BY display_name ASC, id ASC`,
		productCols, strings.Join(conditions, " AND "), eanArg, idArg)
	return query, args
}

// foldName is the case folding applied to names and words where the
// database only folds ASCII
func foldName(s string) string {
	return strings.ToLower(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanProduct(scanner interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := scanner.Scan(&p.ID, &p.EAN, &p.DisplayName, &p.ThumbnailURL, &p.UnitPrice, &p.ShareURL)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
