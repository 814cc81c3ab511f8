package usecase

import (
	"strconv"
	"strings"

	"github.com/feedsync/syncer/internal/domain"
)

// ParseDecimal converts a comma-decimal feed string ("19,99") to a
// float64. Empty or unparsable input yields 0.
func ParseDecimal(raw string) float64 {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if normalized == "" {
		return 0
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}
	return value
}

// BuildPrice computes the price block for a row. When a strike price is
// present the product sells at the strike price and the feed's gross
// price becomes the struck-through list price; otherwise the gross price
// stands alone. Net values derive from gross via the VAT divisor.
func BuildPrice(grossRaw, strikeRaw, currencyID string, vatDivisor float64) []domain.PriceEntry {
	gross := ParseDecimal(grossRaw)
	strike := ParseDecimal(strikeRaw)

	entry := domain.PriceEntry{
		CurrencyID: currencyID,
		Gross:      gross,
		Net:        gross / vatDivisor,
		Linked:     false,
	}

	if strike > 0 {
		entry.Gross = strike
		entry.Net = strike / vatDivisor
		entry.ListPrice = &domain.ListPrice{
			Gross:  gross,
			Net:    gross / vatDivisor,
			Linked: false,
		}
	}

	return []domain.PriceEntry{entry}
}
