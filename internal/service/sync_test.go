package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/governor"
	"storefront/mirror/internal/repository"
	"storefront/mirror/internal/state"
)

func newTestSynchronizer(catalog *fakeCatalog, repo repository.ProductRepository) (*Synchronizer, state.RunRecorder) {
	recorder := state.NewMemoryRunRecorder()
	gov := governor.New(governor.Config{MaxConcurrency: 3})
	return NewSynchronizer(catalog, repo, gov, recorder, nil), recorder
}

func TestUniqueProductIDs(t *testing.T) {
	stubs := func(ids ...string) []domain.ProductStub {
		out := make([]domain.ProductStub, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.ProductStub{ID: id})
		}
		return out
	}

	tests := []struct {
		name  string
		lists [][]domain.ProductStub
		want  []string
	}{
		{"empty", nil, []string{}},
		{"failed category contributes nothing", [][]domain.ProductStub{nil, stubs("A")}, []string{"A"}},
		{"first seen order", [][]domain.ProductStub{stubs("B", "A"), stubs("A", "C", "B")}, []string{"B", "A", "C"}},
		{"duplicates within a category", [][]domain.ProductStub{stubs("A", "A", "A")}, []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniqueProductIDs(tt.lists)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UniqueProductIDs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunMixedResults(t *testing.T) {
	catalog := &fakeCatalog{
		tree: tree([]int{1, 2}, []int{2, 3}),
		categories: map[int]*domain.CategoryDetail{
			1: category(1, "A", "B"),
			2: category(2, "B", "C", "D", "E"),
		},
		catErrs: map[int]error{3: &domain.UpstreamError{StatusCode: 500, Status: "500 Internal Server Error"}},
		products: map[string]*domain.ProductDetail{
			"A": product("A", "Aceite", "3,95 €"),
			"E": product("E", "Espárragos", "1,20 €"),
		},
		prodErrs: map[string]error{
			"C": &domain.UpstreamError{StatusCode: 502, Status: "502 Bad Gateway"},
			"D": &domain.ValidationError{Entity: "product", ID: "D", Err: errors.New("ean is required")},
		},
	}
	repo := setupRepository(t)
	sync, recorder := newTestSynchronizer(catalog, repo)
	ctx := context.Background()

	run, err := sync.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if run.Outcome != domain.SyncSucceeded {
		t.Errorf("outcome = %s, want succeeded", run.Outcome)
	}
	if run.Subcategories != 3 {
		t.Errorf("subcategories = %d, want 3", run.Subcategories)
	}
	if run.ProductIDs != 5 {
		t.Errorf("product ids = %d, want 5", run.ProductIDs)
	}
	if run.DetailsFetched != 2 || run.Persisted != 2 {
		t.Errorf("fetched/persisted = %d/%d, want 2/2", run.DetailsFetched, run.Persisted)
	}

	// subcategory 2 appears twice in the tree and B in two categories: one fetch each
	if n := catalog.callCount("category/2"); n != 1 {
		t.Errorf("category 2 fetched %d times", n)
	}
	if n := catalog.callCount("product/B"); n != 1 {
		t.Errorf("product B fetched %d times", n)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("stored %d products, want 2", count)
	}

	a, err := repo.FindByID(ctx, "A")
	if err != nil || a == nil {
		t.Fatalf("find A: %v %v", a, err)
	}
	want := domain.Product{ID: "A", EAN: "84A", DisplayName: "Aceite", ThumbnailURL: "https://img/A.jpg", UnitPrice: "3,95 €", ShareURL: "https://share/A"}
	if *a != want {
		t.Errorf("stored A = %+v, want %+v", *a, want)
	}

	last, err := recorder.LastRun(ctx)
	if err != nil || last == nil {
		t.Fatalf("last run: %v %v", last, err)
	}
	if last.Outcome != domain.SyncSucceeded || last.Persisted != 2 {
		t.Errorf("recorded run = %+v", last)
	}
}

func TestRunTreeFailureLeavesStoreUntouched(t *testing.T) {
	repo := setupRepository(t)
	seedProducts(t, repo,
		domain.Product{ID: "3400", EAN: "8480000340009", DisplayName: "Café Molido Natural", UnitPrice: "2,50 €"},
	)

	catalog := &fakeCatalog{treeErr: errors.New("connection refused")}
	sync, recorder := newTestSynchronizer(catalog, repo)
	ctx := context.Background()

	run, err := sync.Run(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if run.Outcome != domain.SyncFailed {
		t.Errorf("outcome = %s, want failed", run.Outcome)
	}
	if run.Error == "" {
		t.Error("failed run carries no error message")
	}

	results, err := repo.Search(ctx, []string{"café"}, "café")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "3400" {
		t.Errorf("search after failed run = %+v", results)
	}

	last, _ := recorder.LastRun(ctx)
	if last == nil || last.Outcome != domain.SyncFailed {
		t.Errorf("recorded run = %+v", last)
	}
}

func TestRunPersistFailure(t *testing.T) {
	catalog := &fakeCatalog{
		tree:       tree([]int{1}),
		categories: map[int]*domain.CategoryDetail{1: category(1, "A")},
		products:   map[string]*domain.ProductDetail{"A": product("A", "Aceite", "3,95 €")},
	}
	sync, _ := newTestSynchronizer(catalog, failingRepository{setupRepository(t)})

	run, err := sync.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if run.Outcome != domain.SyncFailed {
		t.Errorf("outcome = %s, want failed", run.Outcome)
	}
	if run.DetailsFetched != 1 || run.Persisted != 0 {
		t.Errorf("fetched/persisted = %d/%d, want 1/0", run.DetailsFetched, run.Persisted)
	}
}

func TestRunEmptyCatalog(t *testing.T) {
	catalog := &fakeCatalog{tree: tree()}
	sync, _ := newTestSynchronizer(catalog, setupRepository(t))

	run, err := sync.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Outcome != domain.SyncSucceeded || run.Persisted != 0 {
		t.Errorf("run = %+v", run)
	}
}

func TestSingleFlight(t *testing.T) {
	catalog := &fakeCatalog{
		tree:       tree([]int{1}),
		categories: map[int]*domain.CategoryDetail{1: category(1, "A")},
		products:   map[string]*domain.ProductDetail{"A": product("A", "Aceite", "3,95 €")},
		blockTree:  make(chan struct{}),
		entered:    make(chan struct{}, 1),
	}
	sync, _ := newTestSynchronizer(catalog, setupRepository(t))
	ctx := context.Background()

	if !sync.Trigger() {
		t.Fatal("first trigger rejected")
	}

	select {
	case <-catalog.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("background run never started")
	}

	status, err := sync.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != domain.SyncStateRunning {
		t.Errorf("state = %s, want running", status.State)
	}

	if sync.Trigger() {
		t.Error("second trigger accepted while running")
	}
	run, err := sync.Run(ctx)
	if !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("Run err = %v, want ErrSyncInProgress", err)
	}
	if run.Outcome != domain.SyncSkipped {
		t.Errorf("outcome = %s, want skipped", run.Outcome)
	}

	close(catalog.blockTree)
	sync.Wait()

	if n := catalog.callCount("tree"); n != 1 {
		t.Errorf("tree fetched %d times, want 1", n)
	}

	status, err = sync.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != domain.SyncStateIdle {
		t.Errorf("state = %s, want idle", status.State)
	}
	if status.LastRun == nil || status.LastRun.Outcome != domain.SyncSucceeded {
		t.Errorf("last run = %+v", status.LastRun)
	}

	// idle again: a new trigger is accepted
	catalog.blockTree = nil
	catalog.entered = nil
	if !sync.Trigger() {
		t.Error("trigger after completion rejected")
	}
	sync.Wait()
}

func TestTriggerSurvivesPanic(t *testing.T) {
	catalog := &fakeCatalog{
		tree:       tree([]int{1}),
		categories: map[int]*domain.CategoryDetail{1: category(1, "A")},
		products:   map[string]*domain.ProductDetail{"A": product("A", "Aceite", "3,95 €")},
	}
	sync, recorder := newTestSynchronizer(catalog, panickingRepository{})

	if !sync.Trigger() {
		t.Fatal("trigger rejected")
	}
	sync.Wait()

	last, err := recorder.LastRun(context.Background())
	if err != nil || last == nil {
		t.Fatalf("last run: %v %v", last, err)
	}
	if last.Outcome != domain.SyncFailed {
		t.Errorf("outcome = %s, want failed", last.Outcome)
	}

	status, _ := sync.Status(context.Background())
	if status.State != domain.SyncStateIdle {
		t.Errorf("state = %s after panic, want idle", status.State)
	}
}

type panickingRepository struct {
	repository.ProductRepository
}

func (panickingRepository) UpsertBatch(context.Context, []domain.Product) (int, error) {
	panic("boom")
}
