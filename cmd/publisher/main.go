package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"sneakersync/internal/app"
	"sneakersync/internal/config"
	"sneakersync/internal/logx"
	"sneakersync/internal/model"
	"sneakersync/internal/observability"
	"sneakersync/internal/repository"
)

// go run ./cmd/publisher -id=65f1c0d2e4b0a1b2c3d4e5f6
// go run ./cmd/publisher -brand=jordan -workers=4
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logx.New(logx.Development)
		bootLog.Fatal().Err(err).Msg("config")
	}
	logger := logx.New(logx.ParseEnvironment(cfg.Env))

	id := flag.String("id", "", "publish a single stored product")
	brandArg := flag.String("brand", "", "publish every stored product of a brand")
	numWorkers := flag.Int("workers", 4, "concurrent publishes")
	flag.Parse()

	if (*id == "") == (*brandArg == "") {
		logger.Fatal().Msg("exactly one of -id or -brand is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Start(cfg.MetricsPort, logger)

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer deps.Close(context.Background())

	pub, err := deps.Publisher(ctx)
	if err != nil {
		deps.Close(context.Background())
		logger.Fatal().Err(err).Msg("catalog publisher")
	}

	var products []model.CanonicalProduct
	if *id != "" {
		_, p, err := repository.Locate(ctx, deps.Products, *id)
		if err != nil {
			deps.Close(context.Background())
			logger.Fatal().Err(err).Str("id", *id).Msg("product lookup")
		}
		products = append(products, *p)
	} else {
		brand, err := model.ParseBrand(*brandArg)
		if err != nil {
			deps.Close(context.Background())
			logger.Fatal().Err(err).Msg("brand")
		}
		products, err = deps.Products.List(ctx, brand)
		if err != nil {
			deps.Close(context.Background())
			logger.Fatal().Err(err).Msg("list products")
		}
	}
	logger.Info().Int("products", len(products)).Msg("publishing")

	jobs := make(chan model.CanonicalProduct)
	var (
		wg                sync.WaitGroup
		published, failed atomic.Int64
	)
	for w := 0; w < max(*numWorkers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				res := pub.Publish(context.WithoutCancel(ctx), p)
				if res.Err != nil {
					failed.Add(1)
					logger.Error().Err(res.Err).Str("sku", p.SKU).Msg("publish failed")
					continue
				}
				published.Add(1)
				if res.InventoryErr != nil {
					logger.Warn().Err(res.InventoryErr).Str("sku", res.SKU).Msg("inventory incomplete")
				}
				logger.Info().Str("sku", res.SKU).Str("action", string(res.Action)).Int64("product_id", res.ProductID).Msg("published")
			}
		}()
	}

	start := time.Now()
	for _, p := range products {
		if ctx.Err() != nil {
			break
		}
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	logger.Info().
		Int64("published", published.Load()).
		Int64("failed", failed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("publish finished")
}
