// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vouch/internal/api"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/backend/postgrest"
	"github.com/starford/vouch/internal/backend/sqlstore"
	"github.com/starford/vouch/internal/cache"
	"github.com/starford/vouch/internal/mcpserver"
	"github.com/starford/vouch/internal/requestservice"
	"github.com/starford/vouch/internal/seed"
	"github.com/starford/vouch/internal/sse"
	"github.com/starford/vouch/internal/taxonomy"
)

// components is everything the serve and mcp commands share.
type components struct {
	backend backend.Backend
	seeder  backend.Seeder
	tax     *taxonomy.Store
	svc     *requestservice.Service
	closers []func() error
}

func (c *components) close(logger *slog.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

func openBackend(cfg BackendConfig) (backend.Backend, backend.Seeder, error) {
	switch cfg.Driver {
	case backend.DriverPostgREST:
		return postgrest.New(postgrest.Config{
			URL:               cfg.URL,
			APIKey:            cfg.APIKey,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}), nil, nil
	default:
		s, err := sqlstore.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func openCache(ctx context.Context, cfg CacheConfig, logger *slog.Logger) (cache.Cache[taxonomy.Snapshot], func() error) {
	if cfg.Driver != CacheRedis {
		return cache.NewMemory[taxonomy.Snapshot](), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	// Cache failures only cost a backend round trip, so an unreachable redis
	// is not fatal.
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, taxonomy reads will hit the backend",
			slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
	}
	return cache.NewRedis[taxonomy.Snapshot](client, cfg.Redis.KeyPrefix), client.Close
}

func build(ctx context.Context, cfg *Config, logger *slog.Logger, publisher *sse.Broker) (*components, error) {
	c := &components{}

	b, seeder, err := openBackend(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	c.backend, c.seeder = b, seeder
	c.closers = append(c.closers, b.Close)

	store, closeCache := openCache(ctx, cfg.Cache, logger)
	c.closers = append(c.closers, closeCache)

	taxOpts := []taxonomy.Option{
		taxonomy.WithCache(store),
		taxonomy.WithListOptions(cfg.Taxonomy.Options()),
		taxonomy.WithFetchTimeout(cfg.Cache.FetchTimeout),
		taxonomy.WithLogger(logger),
	}
	svcOpts := []requestservice.Option{
		requestservice.WithLogger(logger),
		requestservice.WithPublicURL(cfg.App.PublicURL),
	}
	if publisher != nil {
		taxOpts = append(taxOpts, taxonomy.WithInvalidateHook(publisher.PublishTaxonomyInvalidated))
		svcOpts = append(svcOpts, requestservice.WithPublisher(publisher))
	}
	c.tax = taxonomy.NewStore(b, taxOpts...)

	c.svc = requestservice.NewService(b, c.tax,
		taxonomy.NewAreaCreator(b, c.tax, logger),
		taxonomy.NewSubcategoryCreator(b, c.tax, logger),
		svcOpts...,
	)
	return c, nil
}

// syncSeed applies the seed file when one is configured and drops cached
// lists if it changed anything.
func syncSeed(ctx context.Context, cfg SeedConfig, c *components, logger *slog.Logger) (bool, error) {
	if cfg.Path == "" || c.seeder == nil {
		return false, nil
	}
	applied, err := seed.Sync(ctx, c.seeder, cfg.Path, logger)
	if err != nil || !applied {
		return false, err
	}
	return true, c.tax.InvalidateAll(ctx)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Backend.Driver),
		slog.String("cache", cfg.Cache.Driver),
		slog.String("seed_path", cfg.Seed.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.App.FeedThrottle)
	defer broker.Close()

	c, err := build(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.close(logger)

	// Run initial seed sync.
	if _, err := syncSeed(ctx, cfg.Seed, c, logger); err != nil {
		logger.Warn("initial seed failed", slog.String("error", err.Error()))
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Mount("/api", api.NewRouter(c.tax, c.svc, broker))
	r.Mount("/", api.NewSiteRouter(c.svc, c.backend, cfg.App.PublicURL))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Re-seed on file changes.
	if cfg.Seed.Watch && c.seeder != nil {
		g.Go(func() error {
			return seed.Watch(gCtx, c.seeder, cfg.Seed.Path, logger, func() {
				if err := c.tax.InvalidateAll(gCtx); err != nil {
					logger.Warn("invalidate after seed failed", slog.String("error", err.Error()))
				}
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watcher too when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup once the server has been shut down.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	c, err := build(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.close(logger)

	logger.Info("MCP server starting on stdio", slog.String("backend", app.config.Backend.Driver))
	return mcpserver.New(c.tax, c.svc).ServeStdio()
}

// RunSeed applies the seed file once and exits. Cached lists are dropped so
// running servers sharing the cache see the change.
func RunSeed(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if cfg.Seed.Path == "" {
		return fmt.Errorf("seed.path is not configured")
	}

	c, err := build(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer c.close(logger)
	if c.seeder == nil {
		return fmt.Errorf("backend %q cannot be seeded", cfg.Backend.Driver)
	}

	applied, err := syncSeed(ctx, cfg.Seed, c, logger)
	if err != nil {
		return err
	}
	if !applied {
		logger.Info("seed already up to date", slog.String("path", cfg.Seed.Path))
	}
	return nil
}
