package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Register registers all shopping tools with Genkit.
// The handler carries all dependencies; the Genkit closures are thin
// adapters, so every tool stays independently testable as a Handler method.
func Register(g *genkit.Genkit, h *Handler) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handler is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, ToolListProducts,
			"List every product in the store catalog with ID, title, price, and category. "+
				"Use this when the user wants to browse everything or you need an overview of what the store sells.",
			h.ListProducts),

		genkit.DefineTool(g, ToolProductDetails,
			"Get the full details of one product by its numeric ID: title, price, category, "+
				"description, and rating with review count. "+
				"Use this when the user asks about a specific product.",
			h.ProductDetails),

		genkit.DefineTool(g, ToolListCategories,
			"List the product categories the store carries. "+
				"Use this before filtering by category if you are unsure of the exact category name.",
			h.ListCategories),

		genkit.DefineTool(g, ToolProductsByCategory,
			"List all products in one category with ID, title, price, and rating. "+
				"Common spellings like 'mens' or 'jewelry' are normalized to the store's category names.",
			h.ProductsByCategory),

		genkit.DefineTool(g, ToolSearchProducts,
			"Search the catalog with any combination of a free-text query, a category, "+
				"and a price range. The query matches product titles and descriptions and "+
				"results are ordered by relevance. All parameters are optional.",
			h.SearchProducts),

		genkit.DefineTool(g, ToolCompareProducts,
			"Compare 2 to 5 products side by side: names, prices, and ratings, "+
				"with best-price and best-rating callouts. "+
				"Use this when the user is deciding between specific products.",
			h.CompareProducts),

		genkit.DefineTool(g, ToolAddToCart,
			"Add a product to the user's cart by its numeric ID, with an optional quantity "+
				"(default 1). Adding a product that is already in the cart increases its quantity.",
			h.AddToCart),

		genkit.DefineTool(g, ToolRemoveFromCart,
			"Remove a product from the user's cart by its numeric ID. "+
				"Reports when the product was not in the cart.",
			h.RemoveFromCart),

		genkit.DefineTool(g, ToolViewCart,
			"Show the user's cart: every line with quantity and subtotal, plus the total. "+
				"Use this when the user asks what is in their cart or how much it costs.",
			h.ViewCart),
	}, nil
}
