// Package parse normalizes free-form user input into the values the
// marketplace stores.
package parse

import (
	"strconv"
	"strings"
)

// PriceKind tells how a price string should be displayed.
type PriceKind int

const (
	PriceInvalid PriceKind = iota
	PriceNumeric
	PriceNegotiable
	PriceFree
)

// Price is the normalized form of a seller's asking price.
type Price struct {
	Kind   PriceKind
	Amount int64
}

// Display formats the price the way it appears in a published post.
func (p Price) Display() string {
	switch p.Kind {
	case PriceNumeric:
		return strconv.FormatInt(p.Amount, 10) + " руб."
	case PriceNegotiable:
		return "Договорная"
	case PriceFree:
		return "Бесплатно"
	default:
		return ""
	}
}

// ParsePrice interprets a seller's raw price input. Bargaining phrases win
// over digits, so "торг от 500" is negotiable, not 500.
func ParsePrice(raw string) Price {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return Price{Kind: PriceInvalid}
	}
	if strings.Contains(lowered, "торг") || strings.Contains(lowered, "договор") {
		return Price{Kind: PriceNegotiable}
	}
	if strings.Contains(lowered, "бесплатно") || strings.Contains(lowered, "даром") {
		return Price{Kind: PriceFree}
	}

	cleaned := lowered
	for _, junk := range []string{"руб.", "рублей", "рубля", "руб", "р.", "р", " ", " ", ",", "."} {
		cleaned = strings.ReplaceAll(cleaned, junk, "")
	}
	if cleaned == "" {
		return Price{Kind: PriceInvalid}
	}
	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || amount < 0 {
		return Price{Kind: PriceInvalid}
	}
	if amount == 0 {
		return Price{Kind: PriceFree}
	}
	return Price{Kind: PriceNumeric, Amount: amount}
}
