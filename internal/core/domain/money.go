package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// OrderCost computes the charge for an order: quantity/1000 * rate, rounded
// to 2 decimal places. This is the only place order pricing happens; client
// supplied totals are ignored everywhere.
func OrderCost(rate decimal.Decimal, quantity int) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(quantity))).Div(thousand).Round(2)
}

// ValidateQuantity checks an order quantity against the service bounds.
func ValidateQuantity(svc *Service, quantity int) error {
	if quantity < svc.MinQuantity || quantity > svc.MaxQuantity {
		return fmt.Errorf("%w: quantity must be between %d and %d",
			ErrInvalidQuantity, svc.MinQuantity, svc.MaxQuantity)
	}
	return nil
}

// ValidateLink does a permissive URL-shape check: absolute http(s) URL with a
// host. Platform-specific link formats are the upstream provider's problem.
func ValidateLink(link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ErrInvalidLink
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidLink
	}
	return nil
}
