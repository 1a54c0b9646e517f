package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"storefront/mirror/internal/database"
	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/repository"
)

// fakeCatalog serves canned upstream responses. Missing entries are 404s.
type fakeCatalog struct {
	tree       *domain.CategoryTree
	treeErr    error
	categories map[int]*domain.CategoryDetail
	catErrs    map[int]error
	products   map[string]*domain.ProductDetail
	prodErrs   map[string]error

	// blockTree, when set, holds FetchCategoryTree until closed
	blockTree chan struct{}
	entered   chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeCatalog) record(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
}

func (f *fakeCatalog) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeCatalog) FetchCategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	f.record("tree")
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.blockTree != nil {
		<-f.blockTree
	}
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	return f.tree, nil
}

func (f *fakeCatalog) FetchCategoryDetail(ctx context.Context, categoryID int) (*domain.CategoryDetail, error) {
	f.record(fmt.Sprintf("category/%d", categoryID))
	if err, ok := f.catErrs[categoryID]; ok {
		return nil, err
	}
	if c, ok := f.categories[categoryID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("categories %d: %w", categoryID, domain.ErrNotFound)
}

func (f *fakeCatalog) FetchProductDetail(ctx context.Context, productID string) (*domain.ProductDetail, error) {
	f.record("product/" + productID)
	if err, ok := f.prodErrs[productID]; ok {
		return nil, err
	}
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("products %s: %w", productID, domain.ErrNotFound)
}

func (f *fakeCatalog) Close() error {
	return nil
}

func tree(groups ...[]int) *domain.CategoryTree {
	t := &domain.CategoryTree{}
	for i, ids := range groups {
		main := domain.MainCategory{ID: 100 + i, Name: fmt.Sprintf("main %d", i)}
		for _, id := range ids {
			main.Categories = append(main.Categories, domain.SubCategory{ID: id, Name: fmt.Sprintf("sub %d", id)})
		}
		t.Results = append(t.Results, main)
	}
	return t
}

func category(id int, productIDs ...string) *domain.CategoryDetail {
	section := domain.SubCategoryWithProducts{ID: id * 10, Name: "section"}
	for _, pid := range productIDs {
		section.Products = append(section.Products, domain.ProductStub{ID: pid})
	}
	return &domain.CategoryDetail{ID: id, Categories: []domain.SubCategoryWithProducts{section}}
}

func strPtr(s string) *string {
	return &s
}

func product(id, name, price string) *domain.ProductDetail {
	return &domain.ProductDetail{
		ID:                   strPtr(id),
		EAN:                  strPtr("84" + id),
		DisplayName:          strPtr(name),
		Thumbnail:            strPtr("https://img/" + id + ".jpg"),
		Photos:               []domain.Photo{},
		Details:              &domain.ProductInfo{Suppliers: []domain.Supplier{}},
		PriceInstructions:    &domain.PriceInstructions{UnitPrice: strPtr(price)},
		NutritionInformation: &domain.NutritionInformation{},
		ShareURL:             strPtr("https://share/" + id),
	}
}

func setupRepository(t *testing.T) repository.ProductRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	repo := repository.NewSQLiteRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedProducts(t *testing.T, repo repository.ProductRepository, products ...domain.Product) {
	t.Helper()
	if _, err := repo.UpsertBatch(context.Background(), products); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// failingRepository rejects every write
type failingRepository struct {
	repository.ProductRepository
}

func (failingRepository) UpsertBatch(context.Context, []domain.Product) (int, error) {
	return 0, fmt.Errorf("disk full")
}
