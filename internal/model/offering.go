package model

// Offering is a purchasable AI-tool package. The base price is fixed at
// compile time; the effective price may be overridden by an admin (see
// store.PriceStore).
type Offering struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	BasePrice   float64 `json:"base_price"`
	Description string  `json:"description"`
}
