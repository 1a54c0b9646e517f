package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"storefront/mirror/internal/client"
	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/governor"
	"storefront/mirror/internal/metrics"
	"storefront/mirror/internal/repository"
	"storefront/mirror/internal/state"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrSyncInProgress = errors.New("catalog synchronization already in progress")

const (
	phaseCategories = "categories"
	phaseDetails    = "details"
	phasePersist    = "persist"
)

// Synchronizer mirrors the upstream catalog into the local store in three
// phases: category expansion, detail fetch and bulk persist. At most one run
// is in flight at any time.
type Synchronizer struct {
	client     client.CatalogClient
	repository repository.ProductRepository
	governor   *governor.Governor
	recorder   state.RunRecorder
	metrics    *metrics.Metrics

	running    atomic.Bool
	background sync.WaitGroup
}

func NewSynchronizer(
	client client.CatalogClient,
	repository repository.ProductRepository,
	governor *governor.Governor,
	recorder state.RunRecorder,
	metrics *metrics.Metrics,
) *Synchronizer {
	return &Synchronizer{
		client:     client,
		repository: repository,
		governor:   governor,
		recorder:   recorder,
		metrics:    metrics,
	}
}

// Trigger starts a run in the background and returns immediately. It
// returns false, and starts nothing, when a run is already in flight.
func (s *Synchronizer) Trigger() bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Info("⏳ Catalog sync already running, trigger ignored")
		return false
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		// detached from the caller: a finished request must not cancel the run
		s.execute(context.Background())
	}()
	return true
}

// Run executes a run synchronously
func (s *Synchronizer) Run(ctx context.Context) (domain.SyncRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		now := time.Now()
		return domain.SyncRun{Outcome: domain.SyncSkipped, StartedAt: now, FinishedAt: now}, ErrSyncInProgress
	}

	run := s.execute(ctx)
	if run.Outcome == domain.SyncFailed {
		return run, fmt.Errorf("catalog sync failed: %s", run.Error)
	}
	return run, nil
}

// Wait blocks until every background run has finished
func (s *Synchronizer) Wait() {
	s.background.Wait()
}

func (s *Synchronizer) Status(ctx context.Context) (domain.SyncStatus, error) {
	status := domain.SyncStatus{State: domain.SyncStateIdle}
	if s.running.Load() {
		status.State = domain.SyncStateRunning
	}

	last, err := s.recorder.LastRun(ctx)
	if err != nil {
		return status, err
	}
	status.LastRun = last
	return status, nil
}

// execute must only be called by the goroutine that set running.
func (s *Synchronizer) execute(ctx context.Context) (run domain.SyncRun) {
	defer s.running.Store(false)

	s.metrics.SetSyncRunning(true)
	defer s.metrics.SetSyncRunning(false)

	run.StartedAt = time.Now()
	defer func() {
		if r := recover(); r != nil {
			run.Outcome = domain.SyncFailed
			run.Error = fmt.Sprintf("panic: %v", r)
		}
		run.FinishedAt = time.Now()
		s.finish(run)
	}()

	log.Info("🔄 Starting catalog synchronization...")

	if err := s.sync(ctx, &run); err != nil {
		run.Outcome = domain.SyncFailed
		run.Error = err.Error()
		return run
	}

	run.Outcome = domain.SyncSucceeded
	return run
}

func (s *Synchronizer) sync(ctx context.Context, run *domain.SyncRun) error {
	// Phase 1: category tree -> unique product ids
	start := time.Now()
	log.Info("📂 Phase 1: fetching category tree...")

	tree, err := governor.Call(ctx, s.governor, s.client.FetchCategoryTree)
	if err != nil {
		return fmt.Errorf("failed to fetch category tree: %w", err)
	}

	subcategoryIDs := tree.SubcategoryIDs()
	run.Subcategories = len(subcategoryIDs)
	log.Infof("📂 Phase 1: expanding %d subcategories...", len(subcategoryIDs))

	productIDs := s.collectProductIDs(ctx, subcategoryIDs)
	run.ProductIDs = len(productIDs)
	s.metrics.ObservePhase(phaseCategories, time.Since(start))
	log.Infof("✅ Phase 1 completed: %d unique products found", len(productIDs))

	// Phase 2: product details
	start = time.Now()
	log.Infof("📦 Phase 2: fetching details of %d products...", len(productIDs))

	details := s.fetchDetails(ctx, productIDs)
	run.DetailsFetched = len(details)
	s.metrics.ObservePhase(phaseDetails, time.Since(start))
	log.Infof("✅ Phase 2 completed: %d of %d products resolved", len(details), len(productIDs))

	// Phase 3: persist
	start = time.Now()
	log.Infof("💾 Phase 3: saving %d products...", len(details))

	persisted, err := s.persist(ctx, details)
	s.metrics.ObservePhase(phasePersist, time.Since(start))
	if err != nil {
		return err
	}
	run.Persisted = persisted

	return nil
}

// collectProductIDs fetches every subcategory concurrently and reduces the
// embedded stubs to unique ids. A failing subcategory contributes nothing.
func (s *Synchronizer) collectProductIDs(ctx context.Context, subcategoryIDs []int) []string {
	stubLists := make([][]domain.ProductStub, len(subcategoryIDs))

	errGroup := new(errgroup.Group)
	for i, categoryID := range subcategoryIDs {
		errGroup.Go(func() error {
			defer absorbPanic("category", categoryID)

			detail, err := governor.Call(ctx, s.governor, func(ctx context.Context) (*domain.CategoryDetail, error) {
				return s.client.FetchCategoryDetail(ctx, categoryID)
			})
			if err != nil {
				log.Warnf("⚠️ Skipping products of category %d: %v", categoryID, err)
				return nil
			}

			stubLists[i] = detail.Stubs()
			return nil
		})
	}
	_ = errGroup.Wait()

	return UniqueProductIDs(stubLists)
}

// fetchDetails resolves every id concurrently. Ids that are absent upstream or
// fail to fetch are dropped; the rest keep the order of ids.
func (s *Synchronizer) fetchDetails(ctx context.Context, productIDs []string) []domain.ProductDetail {
	results := make([]*domain.ProductDetail, len(productIDs))

	errGroup := new(errgroup.Group)
	for i, productID := range productIDs {
		errGroup.Go(func() error {
			defer absorbPanic("product", productID)

			detail, err := governor.Call(ctx, s.governor, func(ctx context.Context) (*domain.ProductDetail, error) {
				return s.client.FetchProductDetail(ctx, productID)
			})
			switch {
			case errors.Is(err, domain.ErrNotFound):
				log.Debugf("Product %s no longer exists upstream", productID)
				return nil
			case err != nil:
				log.Warnf("⚠️ Skipping details of product %s: %v", productID, err)
				return nil
			}

			results[i] = detail
			return nil
		})
	}
	_ = errGroup.Wait()

	details := make([]domain.ProductDetail, 0, len(results))
	for _, d := range results {
		if d != nil {
			details = append(details, *d)
		}
	}
	return details
}

func (s *Synchronizer) persist(ctx context.Context, details []domain.ProductDetail) (int, error) {
	products := make([]domain.Product, 0, len(details))
	for i := range details {
		products = append(products, details[i].Flatten())
	}

	n, err := s.repository.UpsertBatch(ctx, products)
	if err != nil {
		return 0, &domain.PersistError{Records: len(products), Err: err}
	}
	return n, nil
}

func (s *Synchronizer) finish(run domain.SyncRun) {
	switch run.Outcome {
	case domain.SyncSucceeded:
		log.Infof("🎉 Catalog sync completed in %v: %d products saved", run.Duration().Round(time.Second), run.Persisted)
	default:
		log.Errorf("❌ Catalog sync failed after %v: %s", run.Duration().Round(time.Second), run.Error)
	}

	s.metrics.ObserveRun(string(run.Outcome), run.Persisted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.SaveRun(ctx, run); err != nil {
		log.Errorf("❌ Failed to record sync run: %v", err)
	}
}

// UniqueProductIDs flattens stub lists into ids, keeping the first occurrence of each
func UniqueProductIDs(stubLists [][]domain.ProductStub) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, stubs := range stubLists {
		for _, stub := range stubs {
			if _, ok := seen[stub.ID]; ok {
				continue
			}
			seen[stub.ID] = struct{}{}
			ids = append(ids, stub.ID)
		}
	}
	return ids
}

func absorbPanic(entity string, id any) {
	if r := recover(); r != nil {
		log.Errorf("❌ Fetching %s %v panicked: %v", entity, id, r)
	}
}
