package translation

import (
	"strings"
	"testing"
)

func TestRegistryResolveByName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("static")
	if err := registry.Register(NewStaticProvider()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := registry.Register(NewLocalProvider("", "")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	provider, err := registry.Provider("LOCAL")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if provider.Name() != "local" {
		t.Fatalf("expected local provider, got %q", provider.Name())
	}
}

func TestRegistryEmptyNameUsesDefault(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("static")
	if err := registry.Register(NewStaticProvider()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	provider, err := registry.Provider("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if provider.Name() != "static" {
		t.Fatalf("expected default static provider, got %q", provider.Name())
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("static")
	if err := registry.Register(NewStaticProvider()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := registry.Provider("missing")
	if err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if !strings.Contains(err.Error(), "static") {
		t.Fatalf("expected error to list available providers, got: %v", err)
	}
}

func TestNewRegistryFromEnvRegistersBuiltins(t *testing.T) {
	registry := NewRegistryFromEnv()

	names := registry.ProviderNames()
	for _, want := range []string{"google", "local", "openai", "static"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected provider %q to be registered, got %v", want, names)
		}
	}

	if _, err := registry.Provider(""); err != nil {
		t.Fatalf("expected default provider to resolve, got %v", err)
	}
}
