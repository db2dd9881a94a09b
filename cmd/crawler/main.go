package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"sneakersync/internal/app"
	"sneakersync/internal/config"
	"sneakersync/internal/logx"
	"sneakersync/internal/observability"
	"sneakersync/internal/pipeline"
)

// go run ./cmd/crawler -brand=adidas
// go run ./cmd/crawler -url=https://usgstore.com.au -brand=nike -publish
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logx.New(logx.Development)
		bootLog.Fatal().Err(err).Msg("config")
	}
	logger := logx.New(logx.ParseEnvironment(cfg.Env))

	baseURL := flag.String("url", cfg.SourceHost, "storefront base URL")
	brand := flag.String("brand", "adidas", "brand collection: adidas, nike or jordan")
	publish := flag.Bool("publish", false, "publish new and changed products to the catalog")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.Start(cfg.MetricsPort, logger)

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer deps.Close(context.Background())

	c, err := deps.Crawler()
	if err != nil {
		logger.Fatal().Err(err).Msg("crawler")
	}

	runner := &pipeline.Runner{
		Crawler:    c,
		Reconciler: deps.Reconciler(),
		Sink:       deps.Sink,
		Logger:     logger,
	}
	if deps.Runs != nil {
		runner.Runs = deps.Runs
	}
	if *publish {
		pub, err := deps.Publisher(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("catalog publisher")
		}
		runner.Publisher = pub
	}

	rep, err := runner.Run(ctx, *baseURL, *brand)
	switch {
	case errors.Is(err, context.Canceled) && rep != nil:
		logger.Warn().Int("processed", rep.Summary.Seen).Msg("crawl interrupted")
	case err != nil:
		deps.Close(context.Background())
		logger.Fatal().Err(err).Msg("crawl failed")
	}
}
