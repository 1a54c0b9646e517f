package domain

// Cart maps a product id to a positive quantity
type Cart map[string]int

// CartLine is one priced entry of a cart view
type CartLine struct {
	ProductID    string  `json:"product_id"`
	DisplayName  string  `json:"display_name"`
	ThumbnailURL string  `json:"thumbnail"`
	UnitPrice    string  `json:"unit_price"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
}

type CartView struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}

// Items is the number of units across all lines
func (v CartView) Items() int {
	n := 0
	for _, l := range v.Lines {
		n += l.Quantity
	}
	return n
}
