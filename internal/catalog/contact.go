package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// ContactLink builds the "I want it" chat deep link:
// {BaseURL}/{Phone}?text={message}.
type ContactLink struct {
	BaseURL string
	Phone   string
	// Message is a format string receiving the title and displayed price.
	Message string
}

// URL returns the deep link for a product, or "" when no phone is set.
func (c ContactLink) URL(title, price string) string {
	phone := digits(c.Phone)
	if phone == "" {
		return ""
	}
	msg := c.Message
	if msg == "" {
		msg = "Hello! I want the product: %s - %s"
	}
	text := fmt.Sprintf(msg, title, price)
	// encode spaces as %20; some chat apps show a literal '+'
	return strings.TrimRight(c.BaseURL, "/") + "/" + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
