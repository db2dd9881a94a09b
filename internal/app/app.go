// Package app wires the long-lived collaborators shared by the commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sneakersync/internal/catalog"
	"sneakersync/internal/config"
	"sneakersync/internal/crawler"
	"sneakersync/internal/db"
	"sneakersync/internal/events"
	"sneakersync/internal/extractor"
	"sneakersync/internal/fetcher"
	"sneakersync/internal/lock"
	"sneakersync/internal/publisher"
	"sneakersync/internal/reconciler"
	"sneakersync/internal/repository"
)

// Deps is built once in main and handed to whatever needs it.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Products repository.ProductRepository
	Runs     *repository.RunRepository // nil without DATABASE_URL
	Redis    *redis.Client             // nil without REDIS_URL
	Locker   lock.Locker
	Sink     events.Sink

	closers []func(context.Context) error
}

// New connects the product store and the optional Postgres ledger and Redis.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Deps, error) {
	d := &Deps{Config: cfg, Logger: logger}

	products, err := openProducts(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.Products = products
	d.closers = append(d.closers, products.Close)

	if cfg.DatabaseURL != "" {
		conn, err := db.New(cfg.DatabaseURL)
		if err != nil {
			d.Close(ctx)
			return nil, err
		}
		d.closers = append(d.closers, func(context.Context) error { return conn.Close() })
		runs := &repository.RunRepository{DB: conn}
		if err := runs.Migrate(ctx); err != nil {
			logger.Warn().Err(err).Msg("scrape run ledger disabled")
		} else {
			d.Runs = runs
		}
	}

	var sinks events.Multi
	sinks = append(sinks, events.LogSink{Logger: logger.With().Str("component", "events").Logger()})

	if cfg.RedisURL != "" {
		client, err := newRedis(ctx, cfg.RedisURL)
		if err != nil {
			d.Close(ctx)
			return nil, err
		}
		d.Redis = client
		d.closers = append(d.closers, func(context.Context) error { return client.Close() })
		d.Locker = lock.NewRedis(client, cfg.LockTTL)
		sinks = append(sinks, events.RedisSink{Client: client, Channel: cfg.EventsChannel})
	} else {
		d.Locker = lock.NewLocal()
	}
	d.Sink = sinks

	return d, nil
}

func openProducts(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.ProductRepository, error) {
	switch cfg.StoreDriver {
	case "mongo":
		repo, err := repository.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			// legacy collections may already hold duplicate skus
			logger.Warn().Err(err).Msg("unique sku index not created")
		}
		return repo, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgres(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	case "memory":
		return repository.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func newRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// Crawler builds the fetch, extract and crawl chain from the config.
func (d *Deps) Crawler() (*crawler.Crawler, error) {
	f := fetcher.New(fetcher.Options{
		UserAgent:   d.Config.UserAgent,
		Timeout:     d.Config.RequestTimeout,
		MaxAttempts: d.Config.FetchRetries,
		BaseDelay:   d.Config.FetchBackoff,
	}, d.Logger)
	return crawler.New(f, extractor.New(f, d.Logger), crawler.Options{
		Host: d.Config.SourceHost,
		Gap:  d.Config.RateLimit,
	}, d.Logger)
}

func (d *Deps) Reconciler() *reconciler.Reconciler {
	return reconciler.New(d.Products, d.Locker, d.Logger)
}

// Publisher resolves the catalog stock location; it fails when none exists.
func (d *Deps) Publisher(ctx context.Context) (*publisher.Publisher, error) {
	if d.Config.AccessToken == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN is not set")
	}
	client := catalog.NewClient(d.Config.ShopURL, d.Config.AccessToken, d.Logger)
	return publisher.New(ctx, client, publisher.Options{
		UploadDir:        d.Config.UploadDir,
		InventoryRetries: d.Config.InventoryRetries,
		InventoryBackoff: d.Config.InventoryBackoff,
	}, d.Logger)
}

func (d *Deps) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.Logger.Warn().Err(err).Msg("close")
		}
	}
	d.closers = nil
}
