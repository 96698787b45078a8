// Package tools provides the shopping tools the agent can dispatch.
//
// # Architecture
//
// This package implements the tool layer of the agent system:
//   - Nine catalog and cart tools registered with Genkit
//   - Centralized tool name registry (single source of truth)
//   - Handler with explicit dependencies, no package-level state
//
// # Design Principles
//
//   - Dependency injection: catalog client, cart store, and product index
//     are passed to NewHandler; Genkit closures are thin adapters
//   - Tool output is one human-readable text block per call; collaborator
//     failures surface as "Error: ..." text the model can react to, never
//     as a Go error that would abort the agent loop
//   - The authenticated user travels in the context (see context.go), so
//     cart tools always operate on the caller's cart
package tools

// Tool name constants. These are the names the model sees and the names the
// dispatcher resolves.
const (
	ToolListProducts       = "list_products"
	ToolProductDetails     = "product_details"
	ToolListCategories     = "list_categories"
	ToolProductsByCategory = "products_by_category"
	ToolSearchProducts     = "search_products"
	ToolCompareProducts    = "compare_products"
	ToolAddToCart          = "add_to_cart"
	ToolRemoveFromCart     = "remove_from_cart"
	ToolViewCart           = "view_cart"
)

// toolNames contains all registered tool names.
// This is the single source of truth to avoid duplication across
// registration, dispatch, and the MCP server.
var toolNames = []string{
	ToolListProducts,
	ToolProductDetails,
	ToolListCategories,
	ToolProductsByCategory,
	ToolSearchProducts,
	ToolCompareProducts,
	ToolAddToCart,
	ToolRemoveFromCart,
	ToolViewCart,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}
