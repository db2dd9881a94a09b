package config

import (
	"os"
	"testing"
	"time"
)

// unsetenv clears keys for the test and restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "STORE_DRIVER", "FETCH_RETRIES", "INVENTORY_BACKOFF", "SOURCE_HOST")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != "mongo" {
		t.Errorf("StoreDriver: got %q, want mongo", cfg.StoreDriver)
	}
	if cfg.FetchRetries != 5 {
		t.Errorf("FetchRetries: got %d, want 5", cfg.FetchRetries)
	}
	if cfg.InventoryBackoff != 2*time.Second {
		t.Errorf("InventoryBackoff: got %v, want 2s", cfg.InventoryBackoff)
	}
	if cfg.SourceHost != "https://usgstore.com.au" {
		t.Errorf("SourceHost: got %q", cfg.SourceHost)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != "memory" {
		t.Errorf("StoreDriver: got %q, want memory", cfg.StoreDriver)
	}
	if cfg.RateLimit != 250*time.Millisecond {
		t.Errorf("RateLimit: got %v, want 250ms", cfg.RateLimit)
	}
}
