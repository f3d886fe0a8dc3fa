package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing owned by a seller.
type Product struct {
	ID          int64           `json:"id"`
	SellerID    int64           `json:"seller_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Gender      string          `json:"gender"`
	Size        string          `json:"size"`
	Condition   string          `json:"condition,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	Images      []ProductImage  `json:"images,omitempty"`
}

// ProductImage is one image attached to a product. Exactly one image per
// product is flagged as the main one.
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	IsMain    bool   `json:"is_main"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Quantity >= 1
}

// MainImageURL returns the URL of the main image, falling back to the first
// image when none is flagged, or "" when the product has no images.
func (p *Product) MainImageURL() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// ProductFilter narrows catalog queries. Zero values mean "no constraint".
type ProductFilter struct {
	Gender   string
	Category string
	InStock  bool
}

// Recommendation is one scored entry in a suggestion list.
type Recommendation struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Score     float64         `json:"score"`
}

// Favorite is the (user, product) toggle relation feeding recommendation
// affinity scoring.
type Favorite struct {
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}
