package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env string `envconfig:"APP_ENV" default:"development"`

	// Storage
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"` // mongo, postgres or memory
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"admin"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	// Redis is optional; without it locks are in-process and events only go to the log.
	RedisURL      string        `envconfig:"REDIS_URL"`
	EventsChannel string        `envconfig:"EVENTS_CHANNEL" default:"scrape:update"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"30s"`

	// Source storefront
	SourceHost     string        `envconfig:"SOURCE_HOST" default:"https://usgstore.com.au"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	FetchRetries   int           `envconfig:"FETCH_RETRIES" default:"5"`
	FetchBackoff   time.Duration `envconfig:"FETCH_BACKOFF" default:"1s"`
	RateLimit      time.Duration `envconfig:"RATE_LIMIT" default:"1s"` // minimum gap between product pages

	// Destination catalog
	ShopURL          string        `envconfig:"SHOP_URL" default:"https://revamped-retail-boutique.myshopify.com/admin/api/2023-10"`
	AccessToken      string        `envconfig:"ACCESS_TOKEN"`
	InventoryRetries int           `envconfig:"INVENTORY_RETRIES" default:"5"`
	InventoryBackoff time.Duration `envconfig:"INVENTORY_BACKOFF" default:"2s"`

	UploadDir   string `envconfig:"UPLOAD_DIR" default:"static/uploads"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
}

func Load() (*Config, error) {
	// project root .env when running from cmd/<bin>, then the working directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
