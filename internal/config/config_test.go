package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %s", cfg.HTTPListenAddr)
	}
	if cfg.StoreDriver != "redis" {
		t.Fatalf("expected default store driver redis, got %s", cfg.StoreDriver)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected public base url %s", cfg.PublicBaseURL)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/berater")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %s", cfg.StoreDriver)
	}
}

func TestLoadParsesBools(t *testing.T) {
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SEED_ON_START", "1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RedisTLS || !cfg.SeedOnStart {
		t.Fatalf("expected bools parsed, got %+v", cfg)
	}

	t.Setenv("REDIS_TLS", "banana")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed bool")
	}
}
