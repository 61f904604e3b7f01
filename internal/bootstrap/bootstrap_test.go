package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"mrwiat/internal/infra"
	"mrwiat/internal/jobcache"
)

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &infra.Config{StoreDriver: infra.StoreDriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "wallet.db")}
	b, err := OpenStore(context.Background(), cfg, *infra.DiscardLogger())
	if err != nil {
		t.Fatalf("OpenStore error: %v", err)
	}
	defer b.Close()

	if b.Credentials != nil {
		t.Fatalf("sqlite backend should have no credential store")
	}
	balance, err := b.Ledger().Credit(context.Background(), 1, 25)
	if err != nil || balance != 25 {
		t.Fatalf("credit = %d, %v", balance, err)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), &infra.Config{StoreDriver: "mysql"}, *infra.DiscardLogger()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRendererAPIKeyPrefersEnvironment(t *testing.T) {
	cfg := &infra.Config{RendererAPIKey: " key_env "}
	if got := RendererAPIKey(context.Background(), cfg, nil, *infra.DiscardLogger()); got != "key_env" {
		t.Fatalf("RendererAPIKey = %q", got)
	}
	if got := RendererAPIKey(context.Background(), &infra.Config{}, &Backend{}, *infra.DiscardLogger()); got != "" {
		t.Fatalf("expected empty key without a credential store, got %q", got)
	}
}

func TestNewJobCacheWithoutRedis(t *testing.T) {
	cache, closeFn, err := NewJobCache(context.Background(), &infra.Config{})
	if err != nil {
		t.Fatalf("NewJobCache error: %v", err)
	}
	defer closeFn()
	if _, ok := cache.(jobcache.Noop); !ok {
		t.Fatalf("expected Noop cache, got %T", cache)
	}
}
