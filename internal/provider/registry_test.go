package provider

import (
	"context"
	"testing"
)

func TestRegistryCLIUnregisteredProvider(t *testing.T) {
	r := New(context.Background(), nil)
	if _, err := r.CLI("claude"); err == nil {
		t.Error("expected error for unregistered provider")
	}
}

func TestRegistryCLIWrongBackend(t *testing.T) {
	r := New(context.Background(), []Spec{{Name: "claude", UseAPI: true}})
	if _, err := r.CLI("claude"); err == nil {
		t.Error("expected error asking for CLI adapter on an API-only provider")
	}
}

func TestRegistryAPIWrongBackend(t *testing.T) {
	r := New(context.Background(), []Spec{{Name: "claude", Binary: "claude", UseAPI: false}})
	if _, err := r.API("claude"); err == nil {
		t.Error("expected error asking for API client on a CLI-only provider")
	}
}

func TestRegistryAPISingleton(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	r := New(context.Background(), []Spec{{Name: "claude", UseAPI: true}})

	c1, err := r.API("claude")
	if err != nil {
		t.Fatalf("API: %v", err)
	}
	c2, err := r.API("claude")
	if err != nil {
		t.Fatalf("API: %v", err)
	}
	if c1 != c2 {
		t.Error("expected the same *APIClient instance on repeated calls")
	}
}

func TestRegistryNames(t *testing.T) {
	r := New(context.Background(), []Spec{{Name: "claude", UseAPI: true}, {Name: "codex", Binary: "codex"}})
	names := r.Names()
	if len(names) != 2 {
		t.Errorf("Names = %v, want 2 entries", names)
	}
}

func TestRegistryAvailableUnregistered(t *testing.T) {
	r := New(context.Background(), nil)
	if r.Available("nope") {
		t.Error("Available should be false for unregistered provider")
	}
}
