package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a validated catalog entry.
type Product struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	Subtitle         string           `json:"subtitle,omitempty"`
	Description      string           `json:"description"`
	Gallery          []string         `json:"gallery"`
	Price            decimal.Decimal  `json:"price"`
	PromotionalPrice *decimal.Decimal `json:"promotionalPrice,omitempty"`
	Public           bool             `json:"public"`
	Order            float64          `json:"order"`
}

// MainImage is the first gallery entry, or "".
func (p Product) MainImage() string {
	if len(p.Gallery) == 0 {
		return ""
	}
	return p.Gallery[0]
}

// Displayable reports whether p may reach the grid: public, titled,
// described and priced above zero.
func (p Product) Displayable() bool {
	return p.Public && p.Title != "" && p.Description != "" && p.Price.IsPositive()
}

// Displayable keeps only the products that may be shown, preserving order.
func Displayable(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Displayable() {
			out = append(out, p)
		}
	}
	return out
}

// FieldMap names the remote table columns backing each product field.
type FieldMap struct {
	ID               string
	Title            string
	Subtitle         string
	Description      string
	Gallery          string
	Price            string
	PromotionalPrice string
	Public           string
	Order            string
}

// DefaultFields matches a table whose columns carry the product field names.
func DefaultFields() FieldMap {
	return FieldMap{
		ID:               "id",
		Title:            "title",
		Subtitle:         "subtitle",
		Description:      "description",
		Gallery:          "gallery",
		Price:            "price",
		PromotionalPrice: "promotional_price",
		Public:           "public",
		Order:            "order",
	}
}

// FieldMapFrom overlays configured column names on DefaultFields. Keys are
// the snake_case product field names.
func FieldMapFrom(overrides map[string]string) FieldMap {
	f := DefaultFields()
	for k, v := range overrides {
		if v == "" {
			continue
		}
		switch k {
		case "id":
			f.ID = v
		case "title":
			f.Title = v
		case "subtitle":
			f.Subtitle = v
		case "description":
			f.Description = v
		case "gallery":
			f.Gallery = v
		case "price":
			f.Price = v
		case "promotional_price":
			f.PromotionalPrice = v
		case "public":
			f.Public = v
		case "order":
			f.Order = v
		}
	}
	return f
}

// State is the controller's load state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Source records where the loaded products came from.
type Source string

const (
	SourceNone     Source = ""
	SourceAPI      Source = "api"
	SourceFallback Source = "fallback"
)

// Banner is the non-blocking notice shown after a fallback load.
type Banner struct {
	Message string    `json:"message"`
	Reason  string    `json:"reason"`
	Expires time.Time `json:"expires"`
}

// ActiveAt reports whether the banner is still visible at now.
func (b *Banner) ActiveAt(now time.Time) bool {
	return b != nil && now.Before(b.Expires)
}
