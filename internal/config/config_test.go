package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/gramacare")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("expected default request timeout 15s, got %s", cfg.RequestTimeout)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/gramacare")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER", "https://id.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("expected non-dev config")
	}
	if cfg.ResolvedAuthMode() != "external" {
		t.Errorf("expected external auth mode, got %s", cfg.ResolvedAuthMode())
	}
}

func TestResolvedAuthMode(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit", Config{AuthMode: "standalone", Env: "development"}, "standalone"},
		{"dev", Config{Env: "development"}, "development"},
		{"issuer", Config{Env: "production", AuthIssuer: "https://id.example.com"}, "external"},
		{"fallback", Config{Env: "production"}, "standalone"},
	}
	for _, tc := range cases {
		if got := tc.cfg.ResolvedAuthMode(); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := Config{Env: "production", AuthMode: "standalone", AuthSigningKey: "secret", RequestTimeout: time.Second}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	noKey := Config{Env: "production", AuthMode: "standalone", RequestTimeout: time.Second}
	if err := noKey.Validate(); err == nil {
		t.Error("expected error for standalone mode without signing key")
	}

	noIssuer := Config{Env: "production", AuthMode: "external", RequestTimeout: time.Second}
	if err := noIssuer.Validate(); err == nil {
		t.Error("expected error for external mode without issuer")
	}

	badMode := Config{Env: "production", AuthMode: "magic", RequestTimeout: time.Second}
	if err := badMode.Validate(); err == nil {
		t.Error("expected error for unknown auth mode")
	}

	noTimeout := Config{Env: "development"}
	if err := noTimeout.Validate(); err == nil {
		t.Error("expected error for non-positive request timeout")
	}
}
