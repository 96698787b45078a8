package mcp

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/catalog"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/tools"
)

// fakeCatalog serves a fixed two-product store.
type fakeCatalog struct{}

var fakeProducts = []catalog.Product{
	{ID: 1, Title: "Fjallraven Backpack", Price: 109.95, Category: "men's clothing",
		Description: "Fits 15 inch laptops", Rating: catalog.Rating{Rate: 3.9, Count: 120}},
	{ID: 2, Title: "Slim Fit T-Shirt", Price: 22.3, Category: "men's clothing",
		Description: "Lightweight casual shirt", Rating: catalog.Rating{Rate: 4.1, Count: 259}},
}

func (fakeCatalog) Products(context.Context) ([]catalog.Product, error) {
	return fakeProducts, nil
}

func (fakeCatalog) Product(_ context.Context, id int) (*catalog.Product, error) {
	for _, p := range fakeProducts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (fakeCatalog) Categories(context.Context) ([]string, error) {
	return []string{"men's clothing"}, nil
}

func (fakeCatalog) ProductsByCategory(_ context.Context, category string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range fakeProducts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestConfig(t *testing.T) (Config, *cart.MemoryStore) {
	t.Helper()
	carts := cart.NewMemoryStore()
	handler, err := tools.NewHandler(fakeCatalog{}, carts, nil, log.NewNop())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return Config{
		Name:    "cartwright",
		Version: "test",
		Handler: handler,
		Logger:  log.NewNop(),
	}, carts
}

// connectServer builds a server from cfg and returns a client session
// connected over in-memory transports.
func connectServer(t *testing.T, cfg Config) *mcp.ClientSession {
	t.Helper()

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned error result: %+v", name, result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s) returned empty content", name)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s) content[0] type = %T, want *mcp.TextContent", name, result.Content[0])
	}
	return text.Text
}

func TestNewServer_Validation(t *testing.T) {
	cfg, _ := newTestConfig(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.Name = "" }},
		{"missing version", func(c *Config) { c.Version = "" }},
		{"missing handler", func(c *Config) { c.Handler = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := cfg
			tt.mutate(&bad)
			if _, err := NewServer(bad); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestListTools(t *testing.T) {
	cfg, _ := newTestConfig(t)
	session := connectServer(t, cfg)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Errorf("tool %q has empty description", tool.Name)
		}
	}
	sort.Strings(names)

	want := append([]string(nil), tools.ToolNames()...)
	sort.Strings(want)
	if len(names) != len(want) {
		t.Fatalf("ListTools returned %d tools, want %d\ngot:  %v\nwant: %v",
			len(names), len(want), names, want)
	}
	for i, got := range names {
		if got != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestCallTool_ListCategories(t *testing.T) {
	cfg, _ := newTestConfig(t)
	session := connectServer(t, cfg)

	text := callText(t, session, tools.ToolListCategories, nil)
	if !strings.Contains(text, "men's clothing") {
		t.Errorf("list_categories = %q", text)
	}
}

func TestCallTool_ProductDetails(t *testing.T) {
	cfg, _ := newTestConfig(t)
	session := connectServer(t, cfg)

	text := callText(t, session, tools.ToolProductDetails, map[string]any{"product_id": 1})
	if !strings.Contains(text, "Fjallraven Backpack") || !strings.Contains(text, "$109.95") {
		t.Errorf("product_details = %q", text)
	}
}

func TestCallTool_CartFlow(t *testing.T) {
	cfg, carts := newTestConfig(t)
	cfg.UserID = "alice"
	session := connectServer(t, cfg)

	added := callText(t, session, tools.ToolAddToCart, map[string]any{"product_id": 2, "quantity": 3})
	if !strings.Contains(added, "Slim Fit T-Shirt x3") {
		t.Errorf("add_to_cart = %q", added)
	}

	view := callText(t, session, tools.ToolViewCart, nil)
	if !strings.Contains(view, "x3") {
		t.Errorf("view_cart = %q", view)
	}

	// Cart operations land on the configured user, not the default.
	lines, err := carts.Lines(context.Background(), "alice")
	if err != nil || len(lines) != 1 || lines[0].Quantity != 3 {
		t.Errorf("alice's cart = %+v, err = %v", lines, err)
	}
}

func TestCallTool_UnknownTool(t *testing.T) {
	cfg, _ := newTestConfig(t)
	session := connectServer(t, cfg)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "warp_drive"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "warp_drive") {
		t.Errorf("error = %q, want to contain tool name", err.Error())
	}
}
