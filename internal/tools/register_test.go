package tools

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/log"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	h, err := NewHandler(&fakeCatalog{products: fixtureProducts()}, cart.NewMemoryStore(), nil, log.NewNop())
	if err != nil {
		t.Fatalf("NewHandler() error: %v", err)
	}

	defined, err := Register(g, h)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if len(defined) != len(ToolNames()) {
		t.Fatalf("Register() defined %d tools, want %d", len(defined), len(ToolNames()))
	}

	// Every name in the registry resolves to a registered tool
	registry := NewRegistry(g)
	for _, name := range ToolNames() {
		if registry.Lookup(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
	if got := registry.Count(ctx); got != len(ToolNames()) {
		t.Errorf("Count() = %d, want %d", got, len(ToolNames()))
	}
	if registry.Lookup("no_such_tool") != nil {
		t.Error("Lookup(unknown) should be nil")
	}
}

func TestRegister_NilArguments(t *testing.T) {
	g := genkit.Init(context.Background())

	if _, err := Register(nil, &Handler{}); err == nil {
		t.Error("Register(nil genkit) = nil error")
	}
	if _, err := Register(g, nil); err == nil {
		t.Error("Register(nil handler) = nil error")
	}
}
