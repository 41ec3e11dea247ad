package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	"showcase/internal/logger"
)

// FileFallback loads the bundled static catalog document.
type FileFallback struct {
	path string
}

func NewFileFallback(path string) *FileFallback {
	return &FileFallback{path: path}
}

// Load reads and validates the document, returning its displayable
// products.
func (f *FileFallback) Load(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read fallback %s: %w", f.path, err)
	}
	return ParseFallback(data)
}

// fallbackRecord is the decoded shape of one document entry. Prices are
// read separately through ParsePrice.
type fallbackRecord struct {
	Title       string  `mapstructure:"title"`
	Subtitle    string  `mapstructure:"subtitle"`
	Description string  `mapstructure:"description"`
	Order       float64 `mapstructure:"order"`
	Public      *bool   `mapstructure:"public"`
}

// ParseFallback validates a `{"products": [...]}` document. Every entry
// needs an id, string title and description, an array gallery and a
// non-negative numeric price, otherwise the whole document is rejected.
// Entries without a public flag are public. Entries that validate but
// cannot be displayed (zero price, blank text) are dropped.
func ParseFallback(data []byte) ([]Product, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ValidationError{Index: -1, Reason: "is not valid JSON"}
	}
	list := gjson.GetBytes(data, "products")
	if !list.IsArray() {
		return nil, &ValidationError{Index: -1, Field: "products", Reason: "must be an array"}
	}

	entries := list.Array()
	products := make([]Product, 0, len(entries))
	for i, e := range entries {
		if err := validateFallbackEntry(i, e); err != nil {
			return nil, err
		}

		var rec fallbackRecord
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &rec,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(e.Value()); err != nil {
			return nil, &ValidationError{Index: i, Field: "record", Reason: err.Error()}
		}

		id, _ := parseID(e.Get("id"))
		p := Product{
			ID:          id,
			Title:       strings.TrimSpace(rec.Title),
			Subtitle:    strings.TrimSpace(rec.Subtitle),
			Description: strings.TrimSpace(rec.Description),
			Gallery:     Gallery(e.Get("gallery")),
			Public:      rec.Public == nil || *rec.Public,
			Order:       rec.Order,
		}
		if price := ParsePrice(e.Get("price")); price != nil {
			p.Price = *price
		}
		p.PromotionalPrice = ParsePrice(e.Get("promotionalPrice"))

		if !p.Displayable() {
			logger.Warnf("fallback products[%d] (id %d) is not displayable, skipping", i, p.ID)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func validateFallbackEntry(i int, e gjson.Result) error {
	if !e.IsObject() {
		return &ValidationError{Index: i, Field: "record", Reason: "must be an object"}
	}
	id := e.Get("id")
	if !id.Exists() || id.Type == gjson.Null {
		return &ValidationError{Index: i, Field: "id", Reason: "is required"}
	}
	if _, err := parseID(id); err != nil {
		return &ValidationError{Index: i, Field: "id", Reason: "must be an integer"}
	}
	for _, field := range []string{"title", "description"} {
		if e.Get(field).Type != gjson.String {
			return &ValidationError{Index: i, Field: field, Reason: "must be a string"}
		}
	}
	if !e.Get("gallery").IsArray() {
		return &ValidationError{Index: i, Field: "gallery", Reason: "must be an array"}
	}
	if price := e.Get("price"); price.Type != gjson.Number || price.Num < 0 {
		return &ValidationError{Index: i, Field: "price", Reason: "must be a non-negative number"}
	}
	return nil
}
