package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"storefront/mirror/internal/client"
	"storefront/mirror/internal/config"
	"storefront/mirror/internal/database"
	"storefront/mirror/internal/governor"
	"storefront/mirror/internal/httpserver"
	"storefront/mirror/internal/metrics"
	"storefront/mirror/internal/proxy"
	"storefront/mirror/internal/repository"
	"storefront/mirror/internal/service"
	"storefront/mirror/internal/session"
	"storefront/mirror/internal/state"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.CatalogClient
	Repository repository.ProductRepository
	Sessions   session.Store
	Recorder   state.RunRecorder
	Metrics    *metrics.Metrics

	Catalog      *service.CatalogService
	Cart         *service.CartService
	Synchronizer *service.Synchronizer
	Server       *httpserver.Server

	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = metrics.New(registry)

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	container.Repository = repo

	if cfg.Session.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.Sessions = session.NewRedisStore(rdb, cfg.Session.TTL())
		container.Recorder = state.NewRedisRunRecorder(rdb)
	} else {
		container.Sessions = session.NewMemoryStore()
		container.Recorder = state.NewMemoryRunRecorder()
	}

	container.Client = client.NewCatalogClient(cfg.Catalog, newProxySupplier(ctx, cfg.Catalog), container.Metrics)

	gov := governor.New(governor.Config{
		MaxConcurrency:       cfg.Sync.MaxConcurrency,
		MinDelay:             cfg.Sync.MinDelay(),
		MaxDelay:             cfg.Sync.MaxDelay(),
		MaxRequestsPerSecond: cfg.Sync.MaxRequestsPerSecond,
	})

	container.Catalog = service.NewCatalogService(container.Client, repo)
	container.Cart = service.NewCartService(container.Sessions, repo)
	container.Synchronizer = service.NewSynchronizer(container.Client, repo, gov, container.Recorder, container.Metrics)

	server, err := httpserver.New(
		cfg.Server,
		cfg.Session,
		container.Catalog,
		container.Cart,
		container.Synchronizer,
		container.Metrics,
		registry,
	)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Server = server

	return container, nil
}

// newProxySupplier returns nil when no proxies are configured
func newProxySupplier(ctx context.Context, cfg config.CatalogConfig) proxy.ProxySupplier {
	switch {
	case len(cfg.Proxies) == 0:
		return nil
	case !cfg.CheckProxies:
		log.Infof("🔗 Using %d proxies without checking them", len(cfg.Proxies))
		return proxy.NewStaticSupplier(cfg.Proxies)
	default:
		return proxy.NewProxySupplier(ctx, cfg.Proxies, cfg.BaseURL+"/categories/", cfg.UserAgent)
	}
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository.ProductRepository, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres catalog store: %w", err)
		}
		log.Infof("✅ Connected to PostgreSQL %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
		return repository.NewPostgresRepository(pool), nil
	default:
		db, err := database.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite catalog store: %w", err)
		}
		log.Infof("✅ Opened SQLite catalog store at %s", cfg.Path)
		return repository.NewSQLiteRepository(db), nil
	}
}

// Run serves HTTP until ctx is cancelled. When enabled, a sync is started
// in the background if the catalog store is empty.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpserver.Run(ctx, c.Config.Server.Addr(), c.Server.Handler())
	})

	if c.Config.Sync.OnStartup {
		g.Go(func() error {
			c.syncIfEmpty(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (c *Container) syncIfEmpty(ctx context.Context) {
	stored, err := c.Repository.Count(ctx)
	if err != nil {
		log.Errorf("❌ Failed to count stored products: %v", err)
		return
	}
	if stored > 0 {
		log.Infof("📦 Catalog store holds %d products, skipping startup sync", stored)
		return
	}

	log.Info("📭 Catalog store is empty, starting initial sync")
	c.Synchronizer.Trigger()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Client != nil {
		if err := c.Client.Close(); err != nil {
			log.Warnf("⚠️ Failed to close catalog client: %v", err)
		}
	}
	if c.Repository != nil {
		if err := c.Repository.Close(); err != nil {
			log.Warnf("⚠️ Failed to close catalog store: %v", err)
		}
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Info("Container shut down successfully")
	return nil
}
