package types

// Addon is a priced extra attached to an order item, snapshotted from the
// catalog at add-time. Later catalog changes never touch stored addons.
type Addon struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

// Addons is the jsonb-serialized addon list on an order item.
type Addons []Addon

// TotalCents sums the addon prices for a single unit of the item.
func (a Addons) TotalCents() int {
	total := 0
	for _, addon := range a {
		total += addon.PriceCents
	}
	return total
}
