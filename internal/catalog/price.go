package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParsePrice coerces a JSON number or numeric string into a positive
// amount. A comma is accepted as the decimal separator ("10,50"), in which
// case dots are read as thousands separators ("1.234,50"). Zero, negative,
// missing and unparsable values all yield nil: absent, never zero.
func ParsePrice(v gjson.Result) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch v.Type {
	case gjson.Number:
		d, err = decimal.NewFromString(v.Raw)
	case gjson.String:
		d, err = parsePriceString(v.Str)
	default:
		return nil
	}
	if err != nil || !d.IsPositive() {
		return nil
	}
	return &d
}

func parsePriceString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

// FormatPrice renders an amount with two decimals and a currency prefix,
// e.g. "R$ 10,50".
func FormatPrice(d decimal.Decimal, currency string, decimalComma bool) string {
	s := d.StringFixed(2)
	if decimalComma {
		s = strings.Replace(s, ".", ",", 1)
	}
	if currency == "" {
		return s
	}
	return currency + " " + s
}
