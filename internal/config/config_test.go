package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.PageDelay != 1200*time.Millisecond || cfg.Upstream.BackoffUnit != 1200*time.Millisecond {
		t.Fatalf("pacing defaults wrong: %+v", cfg.Upstream)
	}
	if cfg.Upstream.MaxAttempts != 5 || cfg.Upstream.RequestTimeout != 30*time.Second || cfg.Upstream.PageLimit != 250 {
		t.Fatalf("retry defaults wrong: %+v", cfg.Upstream)
	}
	if cfg.Rates.ReportingCurrency != "USD" {
		t.Fatalf("reporting currency should default to USD, got %s", cfg.Rates.ReportingCurrency)
	}
}

func TestLoadTenants(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
default_tenant: acme
tenants:
  acme:
    shop_domain: acme.myshopify.com
    access_token: shpat_x
  beta:
    base_url: http://localhost:9000/
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Tenants["acme"].ResolveBaseURL(); got != "https://acme.myshopify.com" {
		t.Fatalf("shop domain should become https url, got %s", got)
	}
	if got := cfg.Tenants["beta"].ResolveBaseURL(); got != "http://localhost:9000" {
		t.Fatalf("base url override not applied, got %s", got)
	}
	if ids := cfg.TenantIDs(); len(ids) != 2 || ids[0] != "acme" {
		t.Fatalf("tenant ids should be sorted: %v", ids)
	}
	if cfg.ResolveTenant("") != "acme" {
		t.Fatal("empty tenant should resolve to default")
	}
}

func TestValidateRejectsBadPersistence(t *testing.T) {
	if _, err := Load(writeConfig(t, "persistence:\n  driver: postgres\n")); err == nil {
		t.Fatal("postgres without dsn should fail")
	}
	if _, err := Load(writeConfig(t, "persistence:\n  driver: mongo\n")); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestValidateRejectsPageLimit(t *testing.T) {
	if _, err := Load(writeConfig(t, "upstream:\n  page_limit: 500\n")); err == nil {
		t.Fatal("page_limit above 250 should fail")
	}
}
