package tools

// ListProductsInput defines input for list_products (no input needed).
type ListProductsInput struct{}

// ProductDetailsInput defines input for product_details.
type ProductDetailsInput struct {
	ProductID int `json:"product_id" jsonschema_description:"The numeric product ID"`
}

// ListCategoriesInput defines input for list_categories (no input needed).
type ListCategoriesInput struct{}

// ProductsByCategoryInput defines input for products_by_category.
type ProductsByCategoryInput struct {
	Category string `json:"category" jsonschema_description:"The category name, e.g. 'electronics' or 'mens'"`
}

// SearchProductsInput defines input for search_products.
// Zero values mean the filter is not applied.
type SearchProductsInput struct {
	Query    string  `json:"query,omitempty" jsonschema_description:"Free-text search over product titles and descriptions"`
	Category string  `json:"category,omitempty" jsonschema_description:"Restrict results to one category"`
	MinPrice float64 `json:"min_price,omitempty" jsonschema_description:"Minimum price in dollars"`
	MaxPrice float64 `json:"max_price,omitempty" jsonschema_description:"Maximum price in dollars"`
}

// CompareProductsInput defines input for compare_products.
type CompareProductsInput struct {
	ProductIDs []int `json:"product_ids" jsonschema_description:"2 to 5 product IDs to compare"`
}

// AddToCartInput defines input for add_to_cart.
type AddToCartInput struct {
	ProductID int `json:"product_id" jsonschema_description:"The numeric product ID to add"`
	Quantity  int `json:"quantity,omitempty" jsonschema_description:"How many to add (default: 1)"`
}

// RemoveFromCartInput defines input for remove_from_cart.
type RemoveFromCartInput struct {
	ProductID int `json:"product_id" jsonschema_description:"The numeric product ID to remove"`
}

// ViewCartInput defines input for view_cart (no input needed).
type ViewCartInput struct{}
