package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Transform maps one raw API row onto a Product. It is pure: the caller
// decides whether to log and skip a failed record. A record must carry a
// positive id, a non-empty title and description, a positive price and a
// true public flag.
func Transform(raw gjson.Result, fields FieldMap) (*Product, error) {
	if !raw.IsObject() {
		return nil, &TransformError{RecordID: "?", Field: "record", Reason: "is not an object"}
	}
	cols := columns(raw)
	recID := cols[fields.ID].String()
	if recID == "" {
		recID = "?"
	}
	fail := func(field, reason string) (*Product, error) {
		return nil, &TransformError{RecordID: recID, Field: field, Reason: reason}
	}

	id, err := parseID(cols[fields.ID])
	if err != nil || id <= 0 {
		return fail(fields.ID, "must be a positive integer")
	}

	p := &Product{
		ID:          id,
		Title:       text(cols[fields.Title]),
		Subtitle:    text(cols[fields.Subtitle]),
		Description: text(cols[fields.Description]),
		Gallery:     Gallery(cols[fields.Gallery]),
		Public:      cols[fields.Public].Bool(),
	}
	if p.Title == "" {
		return fail(fields.Title, "is empty")
	}
	if p.Description == "" {
		return fail(fields.Description, "is empty")
	}
	if !p.Public {
		return fail(fields.Public, "is not set")
	}

	price := ParsePrice(cols[fields.Price])
	if price == nil {
		return fail(fields.Price, "must be a positive amount")
	}
	p.Price = *price
	p.PromotionalPrice = ParsePrice(cols[fields.PromotionalPrice])

	if o := cols[fields.Order]; o.Exists() && o.Type != gjson.Null {
		p.Order = cast.ToFloat64(o.Value())
	}
	return p, nil
}

// parseID reads a record id: an integral number, or a string in base 10.
func parseID(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.String:
		return strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
	case gjson.Number:
		if v.Num != math.Trunc(v.Num) {
			return 0, fmt.Errorf("id %s is not an integer", v.Raw)
		}
		return cast.ToInt64E(v.Num)
	}
	return 0, fmt.Errorf("id has unsupported type %s", v.Type)
}

// columns indexes the row by exact column name. Table columns may contain
// dots or spaces, which gjson paths would otherwise interpret.
func columns(raw gjson.Result) map[string]gjson.Result {
	cols := make(map[string]gjson.Result)
	raw.ForEach(func(k, v gjson.Result) bool {
		cols[k.String()] = v
		return true
	})
	return cols
}

// text reads a text column. Select-style columns arrive as {"value": ...}.
func text(v gjson.Result) string {
	switch {
	case v.IsObject():
		return strings.TrimSpace(v.Get("value").String())
	case v.Type == gjson.String, v.Type == gjson.Number:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// Gallery extracts image URLs from an array whose entries are plain
// strings or objects with a "url" field. A lone string is a one-image
// gallery. Empty entries are skipped; order is kept.
func Gallery(v gjson.Result) []string {
	out := []string{}
	add := func(e gjson.Result) {
		var u string
		switch {
		case e.Type == gjson.String:
			u = e.Str
		case e.IsObject():
			u = e.Get("url").String()
		}
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	switch {
	case v.IsArray():
		v.ForEach(func(_, e gjson.Result) bool {
			add(e)
			return true
		})
	case v.Type == gjson.String:
		add(v)
	}
	return out
}

// TransformAll transforms a batch, returning the valid products and the
// per-record errors. One bad record never fails the batch.
func TransformAll(rows gjson.Result, fields FieldMap) ([]Product, []error) {
	products := []Product{}
	var errs []error
	rows.ForEach(func(_, row gjson.Result) bool {
		p, err := Transform(row, fields)
		if err != nil {
			errs = append(errs, err)
			return true
		}
		products = append(products, *p)
		return true
	})
	return products, errs
}
