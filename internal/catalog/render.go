package catalog

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// CardView is the sanitized projection of a product for the grid. Text
// fields are already HTML-escaped and typed template.HTML so templates do
// not escape them twice. The JSON API uses ProductJSON instead.
type CardView struct {
	ID               int64
	Title            template.HTML
	Subtitle         template.HTML
	Description      template.HTML
	MainImage        string
	GallerySize      int
	ShowBadge        bool
	Price            string
	PromotionalPrice string
	DisplayPrice     string
	ContactURL       string
	DetailURL        string
}

// Thumbnail is one entry of the detail gallery strip.
type Thumbnail struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// DetailView is a card with its full gallery.
type DetailView struct {
	CardView
	Images []Thumbnail
	Active int
}

// Select makes image i the main image. Out-of-range indexes leave the view
// unchanged.
func (d DetailView) Select(i int) DetailView {
	if i < 0 || i >= len(d.Images) {
		return d
	}
	images := make([]Thumbnail, len(d.Images))
	for j, t := range d.Images {
		t.Active = j == i
		images[j] = t
	}
	d.Images = images
	d.Active = i
	d.MainImage = images[i].URL
	return d
}

// ProductJSON is the JSON API form of a card. Text fields are plain,
// unescaped strings; clients escape them for their own output.
type ProductJSON struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Subtitle         string `json:"subtitle,omitempty"`
	Description      string `json:"description"`
	MainImage        string `json:"mainImage"`
	GallerySize      int    `json:"gallerySize"`
	ShowBadge        bool   `json:"showBadge"`
	Price            string `json:"price"`
	PromotionalPrice string `json:"promotionalPrice,omitempty"`
	DisplayPrice     string `json:"displayPrice"`
	ContactURL       string `json:"contactUrl,omitempty"`
	DetailURL        string `json:"detailUrl"`
}

// DetailJSON is the JSON API form of a detail view.
type DetailJSON struct {
	ProductJSON
	Images []Thumbnail `json:"images"`
	Active int         `json:"active"`
}

// Summary is the results-count readout.
type Summary struct {
	Shown     int    `json:"shown"`
	Total     int    `json:"total"`
	Term      string `json:"term,omitempty"`
	NoResults bool   `json:"noResults"`
	Text      string `json:"text"`
}

// Summarize builds the readout for shown of total products matching term.
func Summarize(shown, total int, term string) Summary {
	s := Summary{Shown: shown, Total: total, Term: strings.TrimSpace(term)}
	switch {
	case s.Term != "" && shown == 0:
		s.NoResults = true
		s.Text = fmt.Sprintf("No products found for %q", s.Term)
	case total == 0:
		s.NoResults = true
		s.Text = "No products available"
	case s.Term != "":
		s.Text = fmt.Sprintf("%d of %d products", shown, total)
	case total == 1:
		s.Text = "1 product"
	default:
		s.Text = fmt.Sprintf("%d products", total)
	}
	return s
}

// Renderer maps products to view models.
type Renderer struct {
	Placeholder  string
	Currency     string
	DecimalComma bool
	Contact      ContactLink
	// PromoAuthoritative decides whether a promotional price is the one
	// quoted in contact messages. Nil means yes.
	PromoAuthoritative func() bool
}

// Card sanitizes p into a CardView.
func (r *Renderer) Card(p Product) CardView {
	id := p.ID
	if id < 0 {
		id = 0
	}
	v := CardView{
		ID:          id,
		Title:       escape(p.Title),
		Subtitle:    escape(p.Subtitle),
		Description: escape(p.Description),
		GallerySize: len(p.Gallery),
		ShowBadge:   len(p.Gallery) > 1,
		MainImage:   r.image(p.MainImage()),
		DetailURL:   fmt.Sprintf("/products/%d", id),
	}

	price := p.Price
	if !price.IsPositive() {
		price = decimal.Zero
	}
	v.Price = FormatPrice(price, r.Currency, r.DecimalComma)
	v.DisplayPrice = v.Price
	if p.PromotionalPrice != nil && p.PromotionalPrice.IsPositive() {
		v.PromotionalPrice = FormatPrice(*p.PromotionalPrice, r.Currency, r.DecimalComma)
		if r.PromoAuthoritative == nil || r.PromoAuthoritative() {
			v.DisplayPrice = v.PromotionalPrice
		}
	}
	v.ContactURL = r.Contact.URL(p.Title, v.DisplayPrice)
	return v
}

// Cards maps a list, keeping its order.
func (r *Renderer) Cards(products []Product) []CardView {
	out := make([]CardView, len(products))
	for i, p := range products {
		out[i] = r.Card(p)
	}
	return out
}

// JSON builds the API form of p from its card.
func (r *Renderer) JSON(p Product) ProductJSON {
	return productJSON(p, r.Card(p))
}

// JSONList maps a list, keeping its order.
func (r *Renderer) JSONList(products []Product) []ProductJSON {
	out := make([]ProductJSON, len(products))
	for i, p := range products {
		out[i] = r.JSON(p)
	}
	return out
}

// DetailJSON builds the API form of the detail view with image selected.
func (r *Renderer) DetailJSON(p Product, image int) DetailJSON {
	d := r.Detail(p, image)
	return DetailJSON{ProductJSON: productJSON(p, d.CardView), Images: d.Images, Active: d.Active}
}

func productJSON(p Product, v CardView) ProductJSON {
	return ProductJSON{
		ID:               v.ID,
		Title:            p.Title,
		Subtitle:         p.Subtitle,
		Description:      p.Description,
		MainImage:        v.MainImage,
		GallerySize:      v.GallerySize,
		ShowBadge:        v.ShowBadge,
		Price:            v.Price,
		PromotionalPrice: v.PromotionalPrice,
		DisplayPrice:     v.DisplayPrice,
		ContactURL:       v.ContactURL,
		DetailURL:        v.DetailURL,
	}
}

// Detail builds the detail view with image selected.
func (r *Renderer) Detail(p Product, image int) DetailView {
	d := DetailView{CardView: r.Card(p)}
	if len(p.Gallery) > 1 {
		d.Images = make([]Thumbnail, len(p.Gallery))
		for i, u := range p.Gallery {
			d.Images[i] = Thumbnail{Index: i, URL: r.image(u), Active: i == 0}
		}
	}
	return d.Select(image)
}

func escape(s string) template.HTML {
	return template.HTML(html.EscapeString(s))
}

// image keeps http(s) and relative URLs and swaps anything else, or an
// empty value, for the placeholder.
func (r *Renderer) image(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.Placeholder
	}
	u, err := url.Parse(raw)
	if err != nil {
		return r.Placeholder
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return raw
	}
	return r.Placeholder
}
