package service

import (
	"testing"

	"token-ledger-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyResolver(t *testing.T) {
	resolver := NewCurrencyResolver(map[string]string{
		"United Arab Emirates": "AED",
		"india":                "INR",
	})

	currency, err := resolver.Resolve("United Arab Emirates")
	require.NoError(t, err)
	assert.Equal(t, "AED", currency)

	// matching is case-insensitive and trims whitespace
	currency, err = resolver.Resolve("  INDIA ")
	require.NoError(t, err)
	assert.Equal(t, "INR", currency)

	// unmapped countries are an explicit error, never a silent default
	_, err = resolver.Resolve("France")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
