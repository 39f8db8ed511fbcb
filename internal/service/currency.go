package service

import (
	"strings"

	"token-ledger-service/internal/apperr"
)

// CurrencyResolver maps a property's country to the currency its listings
// trade in. Unmapped countries are an explicit error, never a silent
// default.
type CurrencyResolver struct {
	byCountry map[string]string
}

// NewCurrencyResolver builds a resolver from a country -> currency map.
// Country keys are matched case-insensitively.
func NewCurrencyResolver(mapping map[string]string) *CurrencyResolver {
	byCountry := make(map[string]string, len(mapping))
	for country, currency := range mapping {
		byCountry[normalizeCountry(country)] = currency
	}
	return &CurrencyResolver{byCountry: byCountry}
}

// Resolve returns the trading currency for a country
func (r *CurrencyResolver) Resolve(country string) (string, error) {
	currency, ok := r.byCountry[normalizeCountry(country)]
	if !ok {
		return "", apperr.Validation("no currency configured for country: %s", country)
	}
	return currency, nil
}

func normalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}
