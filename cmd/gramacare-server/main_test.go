package main

import (
	"bytes"
	"testing"

	"github.com/gramacare/gramacare/internal/config"
)

func TestSigningKeyUsesConfiguredKey(t *testing.T) {
	cfg := &config.Config{AuthSigningKey: "super-secret"}
	key, err := signingKey(cfg)
	if err != nil {
		t.Fatalf("signingKey: %v", err)
	}
	if string(key) != "super-secret" {
		t.Errorf("key = %q, want configured value", key)
	}
}

func TestSigningKeyGeneratesWhenUnset(t *testing.T) {
	cfg := &config.Config{}
	key, err := signingKey(cfg)
	if err != nil {
		t.Fatalf("signingKey: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}

	other, err := signingKey(cfg)
	if err != nil {
		t.Fatalf("signingKey: %v", err)
	}
	if bytes.Equal(key, other) {
		t.Error("generated keys should differ between calls")
	}
}
