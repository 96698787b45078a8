package mcp

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartwright0/cartwright/internal/tools"
)

// registerTools registers all nine shopping tools.
// Input schemas are inferred from the same input structs the Genkit
// registration uses, so both surfaces accept identical arguments.
func (s *Server) registerTools() error {
	if err := addTool(s, tools.ToolListProducts,
		"List every product in the store catalog with ID, title, price, and category.",
		s.listProducts); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolProductDetails,
		"Get the full details of one product by its numeric ID, including description and rating.",
		s.productDetails); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolListCategories,
		"List the product categories the store carries.",
		s.listCategories); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolProductsByCategory,
		"List all products in one category. Common spellings like 'mens' are normalized.",
		s.productsByCategory); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolSearchProducts,
		"Search the catalog by free-text query, category, and price range. All parameters optional.",
		s.searchProducts); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolCompareProducts,
		"Compare 2 to 5 products side by side with best-price and best-rating callouts.",
		s.compareProducts); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolAddToCart,
		"Add a product to the cart by its numeric ID, with an optional quantity (default 1).",
		s.addToCart); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolRemoveFromCart,
		"Remove a product from the cart by its numeric ID.",
		s.removeFromCart); err != nil {
		return err
	}
	if err := addTool(s, tools.ToolViewCart,
		"Show the cart with per-line subtotals and the total.",
		s.viewCart); err != nil {
		return err
	}
	return nil
}

// addTool infers the input schema for In and registers one tool.
func addTool[In any](s *Server, name, description string,
	handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error),
) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", name, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, handler)
	return nil
}

// toolContext builds the handler context for one call, carrying the cart
// owner configured for this connection.
func (s *Server) toolContext(ctx context.Context) *ai.ToolContext {
	return &ai.ToolContext{Context: tools.WithUserID(ctx, s.userID)}
}

// textResult wraps tool output as a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *Server) listProducts(ctx context.Context, _ *mcp.CallToolRequest, in tools.ListProductsInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.ListProducts(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) productDetails(ctx context.Context, _ *mcp.CallToolRequest, in tools.ProductDetailsInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.ProductDetails(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) listCategories(ctx context.Context, _ *mcp.CallToolRequest, in tools.ListCategoriesInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.ListCategories(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) productsByCategory(ctx context.Context, _ *mcp.CallToolRequest, in tools.ProductsByCategoryInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.ProductsByCategory(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) searchProducts(ctx context.Context, _ *mcp.CallToolRequest, in tools.SearchProductsInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.SearchProducts(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) compareProducts(ctx context.Context, _ *mcp.CallToolRequest, in tools.CompareProductsInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.CompareProducts(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) addToCart(ctx context.Context, _ *mcp.CallToolRequest, in tools.AddToCartInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.AddToCart(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) removeFromCart(ctx context.Context, _ *mcp.CallToolRequest, in tools.RemoveFromCartInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.RemoveFromCart(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}

func (s *Server) viewCart(ctx context.Context, _ *mcp.CallToolRequest, in tools.ViewCartInput) (*mcp.CallToolResult, any, error) {
	out, err := s.handler.ViewCart(s.toolContext(ctx), in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), nil, nil
}
