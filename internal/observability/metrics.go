package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_items_total",
			Help: "Scraped products by reconciliation outcome",
		},
		[]string{"brand", "outcome"},
	)

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_retries_total",
			Help: "HTTP fetches repeated after a transient failure",
		},
	)

	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_publish_total",
			Help: "Catalog publish attempts by outcome",
		},
		[]string{"outcome"},
	)

	InventoryRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_set_retries_total",
			Help: "Inventory level updates repeated after a failure",
		},
	)
)

func init() {
	prometheus.MustRegister(ItemsTotal, FetchRetriesTotal, PublishTotal, InventoryRetriesTotal)
}

// Start serves /metrics on port in the background. A server that cannot
// start is logged and the caller carries on without metrics.
func Start(port string, logger zerolog.Logger) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(":"+port, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("port", port).Msg("metrics server stopped")
		}
	}()
}
