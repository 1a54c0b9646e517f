package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/mirror/internal/client"
	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/repository"
)

// CatalogService serves the read side: browsing goes straight to the upstream
// catalog, search runs against the local store.
type CatalogService struct {
	client     client.CatalogClient
	repository repository.ProductRepository
}

func NewCatalogService(client client.CatalogClient, repository repository.ProductRepository) *CatalogService {
	return &CatalogService{
		client:     client,
		repository: repository,
	}
}

func (s *CatalogService) Categories(ctx context.Context) (*domain.CategoryTree, error) {
	return s.client.FetchCategoryTree(ctx)
}

func (s *CatalogService) Category(ctx context.Context, categoryID int) (*domain.CategoryDetail, error) {
	return s.client.FetchCategoryDetail(ctx, categoryID)
}

func (s *CatalogService) Product(ctx context.Context, productID string) (*domain.ProductDetail, error) {
	return s.client.FetchProductDetail(ctx, productID)
}

// Search splits the query on whitespace. A product matches when its name
// contains every word, or when its ean or id equals the trimmed query.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	raw := strings.TrimSpace(query)
	words := strings.Fields(raw)
	if len(words) == 0 {
		return []domain.Product{}, nil
	}

	products, err := s.repository.Search(ctx, words, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// Stored reports how many products the local store holds
func (s *CatalogService) Stored(ctx context.Context) (int, error) {
	return s.repository.Count(ctx)
}

func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}
