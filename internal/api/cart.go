package api

import "net/http"

type cartItem struct {
	ProductID int     `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type cartSnapshot struct {
	Items []cartItem `json:"items"`
	Total float64    `json:"total"`
}

// handleCart returns the caller's current cart.
func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	lines, err := s.carts.Lines(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("loading cart", "error", err)
		writeError(w, http.StatusInternalServerError, "error", "failed to load cart")
		return
	}

	snapshot := cartSnapshot{Items: make([]cartItem, 0, len(lines))}
	for _, line := range lines {
		snapshot.Items = append(snapshot.Items, cartItem{
			ProductID: line.ProductID,
			Title:     line.Title,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal(),
		})
		snapshot.Total += line.Subtotal()
	}
	writeJSON(w, http.StatusOK, snapshot)
}
