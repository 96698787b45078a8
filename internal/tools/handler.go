package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/catalog"
	"github.com/cartwright0/cartwright/internal/search"
)

// semanticTopK is the ranking depth requested from the product index. The
// store catalog is small (tens of products), so this always covers it.
const semanticTopK = 1000

// Catalog defines the store operations the tools need.
// The interface lives with the consumer, not the provider, so tests can
// substitute a fake without spinning up an HTTP server.
type Catalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Product(ctx context.Context, id int) (*catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error)
}

// Searcher defines the semantic ranking operations search_products needs.
// Both the in-memory index and the pgvector index satisfy it.
type Searcher interface {
	Available() bool
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
}

// Handler executes the shopping tools against the catalog, the cart store,
// and the product index. All dependencies are explicit; there is no ambient
// state, so two handlers with different stores never interfere.
type Handler struct {
	catalog Catalog
	carts   cart.Store
	index   Searcher // may be nil when no index is configured
	logger  *slog.Logger
}

// NewHandler creates a tool handler.
// The index may be nil; search_products then always uses the substring
// fallback.
func NewHandler(cat Catalog, carts cart.Store, index Searcher, logger *slog.Logger) (*Handler, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog client is required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Handler{catalog: cat, carts: carts, index: index, logger: logger}, nil
}

// ListProducts returns an itemized listing of the whole catalog.
func (h *Handler) ListProducts(ctx *ai.ToolContext, _ ListProductsInput) (string, error) {
	products, err := h.catalog.Products(ctx.Context)
	if err != nil {
		return errText(err), nil
	}

	var b strings.Builder
	b.WriteString("Here are all available products:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "\nID: %d | %s | $%s | %s", p.ID, p.Title, formatNumber(p.Price), p.Category)
	}
	return b.String(), nil
}

// ProductDetails returns all fields of one product, including description
// and rating.
func (h *Handler) ProductDetails(ctx *ai.ToolContext, in ProductDetailsInput) (string, error) {
	p, err := h.catalog.Product(ctx.Context, in.ProductID)
	if err != nil {
		return errText(err), nil
	}
	if p == nil {
		return fmt.Sprintf("Error: Product %d not found", in.ProductID), nil
	}

	return fmt.Sprintf(`Product Details:
ID: %d
Title: %s
Price: $%s
Category: %s
Description: %s
Rating: %s/5 (%d reviews)`,
		p.ID, p.Title, formatNumber(p.Price), p.Category, p.Description,
		formatNumber(p.Rating.Rate), p.Rating.Count), nil
}

// ListCategories returns a bullet list of store categories.
func (h *Handler) ListCategories(ctx *ai.ToolContext, _ ListCategoriesInput) (string, error) {
	categories, err := h.catalog.Categories(ctx.Context)
	if err != nil {
		return errText(err), nil
	}

	var b strings.Builder
	b.WriteString("Available categories:")
	for _, c := range categories {
		fmt.Fprintf(&b, "\n- %s", c)
	}
	return b.String(), nil
}

// ProductsByCategory lists the products of one category. The category is
// normalized first so "mens" and "men's clothing" behave identically.
func (h *Handler) ProductsByCategory(ctx *ai.ToolContext, in ProductsByCategoryInput) (string, error) {
	category := catalog.NormalizeCategory(in.Category)

	products, err := h.catalog.ProductsByCategory(ctx.Context, category)
	if err != nil {
		return errText(err), nil
	}
	if len(products) == 0 {
		return fmt.Sprintf("No products in '%s'", category), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Products in '%s':\n", category)
	for _, p := range products {
		fmt.Fprintf(&b, "\nID: %d | %s | $%s | %s/5", p.ID, p.Title, formatNumber(p.Price), formatNumber(p.Rating.Rate))
	}
	return b.String(), nil
}

// SearchProducts filters the catalog by category and price, then orders the
// survivors: semantically via the product index when a query is given and
// the index is available, otherwise by substring match over title and
// description. Filters apply identically on both paths.
func (h *Handler) SearchProducts(ctx *ai.ToolContext, in SearchProductsInput) (string, error) {
	var (
		pool []catalog.Product
		err  error
	)
	category := ""
	if in.Category != "" {
		category = catalog.NormalizeCategory(in.Category)
		pool, err = h.catalog.ProductsByCategory(ctx.Context, category)
	} else {
		pool, err = h.catalog.Products(ctx.Context)
	}
	if err != nil {
		return errText(err), nil
	}

	filtered := pool[:0:0]
	for _, p := range pool {
		if in.MinPrice > 0 && p.Price < in.MinPrice {
			continue
		}
		if in.MaxPrice > 0 && p.Price > in.MaxPrice {
			continue
		}
		filtered = append(filtered, p)
	}

	results := filtered
	if in.Query != "" {
		if h.index != nil && h.index.Available() {
			results, err = h.rankSemantically(ctx.Context, in.Query, filtered)
			if err != nil {
				return errText(err), nil
			}
		} else {
			results = substringMatch(in.Query, filtered)
		}
	}

	if len(results) == 0 {
		return "No products found", nil
	}

	var b strings.Builder
	b.WriteString(searchHeader(len(results), in, category))
	b.WriteString(":\n")
	for _, p := range results {
		fmt.Fprintf(&b, "\nID: %d | %s | $%s | %s | %s/5",
			p.ID, p.Title, formatNumber(p.Price), p.Category, formatNumber(p.Rating.Rate))
	}
	return b.String(), nil
}

// rankSemantically orders the filtered products by their rank in the index's
// answer for the query. Products the index does not know keep their catalog
// order after the ranked ones.
func (h *Handler) rankSemantically(ctx context.Context, query string, filtered []catalog.Product) ([]catalog.Product, error) {
	ranked, err := h.index.Search(ctx, query, semanticTopK)
	if err != nil {
		return nil, fmt.Errorf("searching product index: %w", err)
	}

	byID := make(map[int]catalog.Product, len(filtered))
	for _, p := range filtered {
		byID[p.ID] = p
	}

	out := make([]catalog.Product, 0, len(filtered))
	for _, r := range ranked {
		if p, ok := byID[r.Product.ID]; ok {
			out = append(out, p)
			delete(byID, r.Product.ID)
		}
	}
	// Filtered products the index never saw, in catalog order
	for _, p := range filtered {
		if _, ok := byID[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func substringMatch(query string, products []catalog.Product) []catalog.Product {
	q := strings.ToLower(query)
	out := products[:0:0]
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

func searchHeader(n int, in SearchProductsInput, category string) string {
	var filters []string
	if in.Query != "" {
		filters = append(filters, "'"+in.Query+"'")
	}
	if category != "" {
		filters = append(filters, category)
	}
	if in.MinPrice > 0 || in.MaxPrice > 0 {
		low := formatNumber(in.MinPrice)
		high := "∞"
		if in.MaxPrice > 0 {
			high = formatNumber(in.MaxPrice)
		}
		filters = append(filters, fmt.Sprintf("$%s-$%s", low, high))
	}

	header := fmt.Sprintf("Found %d products", n)
	if len(filters) > 0 {
		header += " (" + strings.Join(filters, ", ") + ")"
	}
	return header
}

// CompareProducts renders a side-by-side comparison of 2 to 5 products with
// best-price and best-rating callouts. Ties go to the lowest input index.
func (h *Handler) CompareProducts(ctx *ai.ToolContext, in CompareProductsInput) (string, error) {
	if len(in.ProductIDs) < 2 {
		return "Need at least 2 products to compare", nil
	}
	if len(in.ProductIDs) > 5 {
		return "Max 5 products", nil
	}

	products := make([]catalog.Product, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		p, err := h.catalog.Product(ctx.Context, id)
		if err != nil || p == nil {
			return fmt.Sprintf("Product %d not found", id), nil
		}
		products = append(products, *p)
	}

	var b strings.Builder
	b.WriteString("## Product Comparison\n\n")

	b.WriteString("**Names:**")
	for i, p := range products {
		fmt.Fprintf(&b, "\n%d. %s", i+1, p.Title)
	}
	b.WriteString("\n\n**Prices:**")
	for i, p := range products {
		fmt.Fprintf(&b, "\n%d. $%s", i+1, formatNumber(p.Price))
	}
	b.WriteString("\n\n**Ratings:**")
	for i, p := range products {
		fmt.Fprintf(&b, "\n%d. %s/5", i+1, formatNumber(p.Rating.Rate))
	}

	bestPrice, bestRating := 0, 0
	for i, p := range products {
		if p.Price < products[bestPrice].Price {
			bestPrice = i
		}
		if p.Rating.Rate > products[bestRating].Rating.Rate {
			bestRating = i
		}
	}
	fmt.Fprintf(&b, "\n\n💰 Best Price: #%d ($%s)", bestPrice+1, formatNumber(products[bestPrice].Price))
	fmt.Fprintf(&b, "\n⭐ Best Rating: #%d (%s/5)", bestRating+1, formatNumber(products[bestRating].Rating.Rate))

	return b.String(), nil
}

// AddToCart looks up the product and upserts it into the caller's cart.
// Adding a product already in the cart increments its quantity.
func (h *Handler) AddToCart(ctx *ai.ToolContext, in AddToCartInput) (string, error) {
	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}

	p, err := h.catalog.Product(ctx.Context, in.ProductID)
	if err != nil {
		return errText(err), nil
	}
	if p == nil {
		return fmt.Sprintf("Error: Product %d not found", in.ProductID), nil
	}

	userID := UserIDFromContext(ctx.Context)

	lines, err := h.carts.Lines(ctx.Context, userID)
	if err != nil {
		return errText(err), nil
	}
	existing := 0
	for _, l := range lines {
		if l.ProductID == in.ProductID {
			existing = l.Quantity
			break
		}
	}

	err = h.carts.Upsert(ctx.Context, userID, cart.Line{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Quantity:  quantity,
	})
	if err != nil {
		return errText(err), nil
	}

	if existing > 0 {
		return fmt.Sprintf("Updated: %s x%d", p.Title, existing+quantity), nil
	}
	return fmt.Sprintf("Added: %s x%d ($%s)", p.Title, quantity, formatNumber(p.Price)), nil
}

// RemoveFromCart removes the caller's cart line for the product.
func (h *Handler) RemoveFromCart(ctx *ai.ToolContext, in RemoveFromCartInput) (string, error) {
	userID := UserIDFromContext(ctx.Context)

	removed, err := h.carts.Remove(ctx.Context, userID, in.ProductID)
	if err != nil {
		return errText(err), nil
	}
	if !removed {
		return fmt.Sprintf("Product %d not in cart", in.ProductID), nil
	}
	return fmt.Sprintf("Removed product %d", in.ProductID), nil
}

// ViewCart renders the caller's cart with per-line subtotals and the total.
func (h *Handler) ViewCart(ctx *ai.ToolContext, _ ViewCartInput) (string, error) {
	userID := UserIDFromContext(ctx.Context)

	lines, err := h.carts.Lines(ctx.Context, userID)
	if err != nil {
		return errText(err), nil
	}
	if len(lines) == 0 {
		return "Cart is empty", nil
	}

	var b strings.Builder
	b.WriteString("## 🛒 Cart\n")
	var total float64
	for _, l := range lines {
		subtotal := l.Subtotal()
		total += subtotal
		fmt.Fprintf(&b, "\n- %s x%d = $%.2f", l.Title, l.Quantity, subtotal)
	}
	fmt.Fprintf(&b, "\n\n**Total: $%.2f**", total)
	return b.String(), nil
}

// errText converts a collaborator failure into model-readable text. The
// model can apologize or retry; a Go error here would abort the whole loop.
func errText(err error) string {
	return "Error: " + err.Error()
}

// formatNumber renders prices and ratings without trailing zeros, the way
// the store API presents them ($22.3, 4/5).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
