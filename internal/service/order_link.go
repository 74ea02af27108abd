package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const orderLinkBase = "https://wa.me/"

// OrderLinks builds WhatsApp links customers use to ask about a product.
type OrderLinks struct {
	phone   string
	symbol  string
	printer *message.Printer
}

// NewOrderLinks returns nil when no phone number is configured.
func NewOrderLinks(conf config.Order) *OrderLinks {
	phone := strings.Map(func(r rune) rune {
		if '0' <= r && r <= '9' {
			return r
		}
		return -1
	}, conf.PhoneNumber)
	if phone == "" {
		return nil
	}
	return &OrderLinks{
		phone:   phone,
		symbol:  conf.CurrencySymbol,
		printer: message.NewPrinter(language.English),
	}
}

// Message returns the prefilled chat text for p.
func (o *OrderLinks) Message(p *model.Product) string {
	price := o.printer.Sprint(number.Decimal(p.Price, number.MaxFractionDigits(2)))
	return fmt.Sprintf("Hi! I'm interested in the %s for %s%s. Is it available?", p.Name, o.symbol, price)
}

// For returns the order link for p.
func (o *OrderLinks) For(p *model.Product) string {
	text := strings.ReplaceAll(url.QueryEscape(o.Message(p)), "+", "%20")
	return orderLinkBase + o.phone + "?text=" + text
}
