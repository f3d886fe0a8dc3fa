package models

// Cart is a session-scoped mapping of product ID to requested quantity.
// It is working state, never persisted to the relational store: the
// session adapter serializes it to JSON between requests and checkout
// discards it on success.
type Cart map[int64]int

// Add increments the requested quantity for a product, creating the entry
// when absent. Quantities are not capped here; stock is enforced at
// checkout.
func (c Cart) Add(productID int64, qty int) {
	if qty <= 0 {
		return
	}
	c[productID] += qty
}

// Remove drops the product from the cart. Removing an absent product is a
// no-op.
func (c Cart) Remove(productID int64) {
	delete(c, productID)
}

// Set overwrites the requested quantity. A quantity of zero or less removes
// the entry.
func (c Cart) Set(productID int64, qty int) {
	if qty <= 0 {
		delete(c, productID)
		return
	}
	c[productID] = qty
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// ProductIDs returns the referenced product IDs in unspecified order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}

// CartLine pairs a catalog product with the quantity requested in the cart,
// for display.
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}
