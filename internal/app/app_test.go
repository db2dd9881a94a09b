package app

import (
	"context"
	"testing"

	"sneakersync/internal/config"
	"sneakersync/internal/events"
	"sneakersync/internal/lock"
	"sneakersync/internal/logx"
	"sneakersync/internal/repository"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:  "memory",
		SourceHost:   "https://usgstore.com.au",
		FetchRetries: 1,
	}
}

func TestNewMemoryDeps(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, memoryConfig(), logx.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close(ctx)

	if _, ok := d.Products.(*repository.MemoryRepository); !ok {
		t.Errorf("products: %T", d.Products)
	}
	if _, ok := d.Locker.(*lock.Local); !ok {
		t.Errorf("without redis the locker is in-process, got %T", d.Locker)
	}
	if sinks, ok := d.Sink.(events.Multi); !ok || len(sinks) != 1 {
		t.Errorf("sink: %#v", d.Sink)
	}
	if d.Runs != nil || d.Redis != nil {
		t.Error("optional backends should stay nil")
	}
	if _, err := d.Crawler(); err != nil {
		t.Errorf("Crawler: %v", err)
	}
	if d.Reconciler() == nil {
		t.Error("Reconciler is nil")
	}
}

func TestNewUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"
	if _, err := New(context.Background(), cfg, logx.Discard()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestPublisherNeedsToken(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, memoryConfig(), logx.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Publisher(ctx); err == nil {
		t.Error("expected error without ACCESS_TOKEN")
	}
}
