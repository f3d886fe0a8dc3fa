package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the durable record of a completed checkout. Total and the
// per-line unit prices are frozen at purchase time and never recomputed
// from current catalog prices.
type Order struct {
	ID              int64           `json:"id"`
	BuyerID         int64           `json:"buyer_id"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"order_date"`
	ShippingAddress string          `json:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Transactions    []Transaction   `json:"transactions"`
}

// OrderItem is one product line within an order. Lines of the same order
// may belong to different sellers and carry independent statuses.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	SellerID     int64           `json:"seller_id"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Status       OrderStatus     `json:"status"`
}

// NewOrderItem builds a line for the given product, freezing its current
// price. Status starts at Processing; there is no unset state.
func NewOrderItem(p *Product, qty int) OrderItem {
	return OrderItem{
		ProductID:    p.ID,
		SellerID:     p.SellerID,
		ProductTitle: p.Title,
		Quantity:     qty,
		UnitPrice:    p.Price,
		Status:       OrderStatusProcessing,
	}
}

// LineTotal is the extended price of the line.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AggregateStatus derives the single status shown for the whole order from
// its line items: a uniform set yields that status, a mixed set reports the
// order as still Processing. An order without loaded items keeps its stored
// status.
func (o *Order) AggregateStatus() OrderStatus {
	if len(o.Items) == 0 {
		return o.Status
	}
	first := o.Items[0].Status
	for _, item := range o.Items[1:] {
		if item.Status != first {
			return OrderStatusProcessing
		}
	}
	return first
}

// OrderGroup is a virtual display row synthesized from one order's items,
// restricted to a viewer-relative partition and a single status. One
// underlying order can appear as several groups in a history view.
type OrderGroup struct {
	OrderID         int64           `json:"order_id"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"order_date"`
	ShippingAddress string          `json:"shipping_address"`
	BuyerID         int64           `json:"buyer_id"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
}

// Transaction is a simulated payment record attached to an order. Checkout
// creates exactly one, already in its final Completed state.
type Transaction struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
}

// TransactionStatusCompleted is the only transaction status the simulated
// payment flow produces.
const TransactionStatusCompleted = "Completed"
