package service

import (
	"testing"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func activeOffering() *models.TokenOffering {
	return &models.TokenOffering{
		ID:              1,
		TotalTokens:     100,
		TokenPrice:      50,
		TokensSold:      40,
		TokensAvailable: 60,
		MinPurchase:     5,
		MaxPurchase:     50,
		Status:          models.OfferingStatusActive,
	}
}

func TestValidateOfferingTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr apperr.Kind
	}{
		{"draft to active", models.OfferingStatusDraft, models.OfferingStatusActive, ""},
		{"draft to cancelled", models.OfferingStatusDraft, models.OfferingStatusCancelled, ""},
		{"active to closed", models.OfferingStatusActive, models.OfferingStatusClosed, ""},
		{"active to funded", models.OfferingStatusActive, models.OfferingStatusFunded, ""},
		{"draft to funded", models.OfferingStatusDraft, models.OfferingStatusFunded, apperr.KindState},
		{"funded is terminal", models.OfferingStatusFunded, models.OfferingStatusActive, apperr.KindState},
		{"closed is terminal", models.OfferingStatusClosed, models.OfferingStatusActive, apperr.KindState},
		{"cancelled is terminal", models.OfferingStatusCancelled, models.OfferingStatusDraft, apperr.KindState},
		{"unknown status", models.OfferingStatusDraft, "archived", apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOfferingTransition(tt.from, tt.to)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, apperr.KindOf(err))
			}
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	offering := activeOffering()

	assert.NoError(t, validateSubmission(offering, 10))
	assert.NoError(t, validateSubmission(offering, 50))
	assert.NoError(t, validateSubmission(offering, 5))

	// below min / above max
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateSubmission(offering, 4)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateSubmission(offering, 51)))

	// within range but over supply
	offering.TokensAvailable = 8
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateSubmission(offering, 10)))

	// inactive offering
	offering = activeOffering()
	offering.Status = models.OfferingStatusDraft
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateSubmission(offering, 10)))
}

func TestValidateAssignment(t *testing.T) {
	offering := activeOffering()

	assert.NoError(t, validateAssignment(offering, 60))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateAssignment(offering, 61)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(validateAssignment(offering, 0)))

	// a funded offering accepts no further assignments
	offering.Status = models.OfferingStatusFunded
	offering.TokensAvailable = 0
	assert.Equal(t, apperr.KindState, apperr.KindOf(validateAssignment(offering, 1)))

	offering.Status = models.OfferingStatusClosed
	assert.Equal(t, apperr.KindState, apperr.KindOf(validateAssignment(offering, 1)))
}

func TestOfferingStatusAfterSale(t *testing.T) {
	offering := activeOffering()

	status, funded := offeringStatusAfterSale(offering, 10)
	assert.Equal(t, models.OfferingStatusActive, status)
	assert.False(t, funded)

	// the funded flip happens exactly when availability reaches zero
	status, funded = offeringStatusAfterSale(offering, 60)
	assert.Equal(t, models.OfferingStatusFunded, status)
	assert.True(t, funded)
}

func TestResolvePurchaseQuantity(t *testing.T) {
	listing := &models.Listing{TokensForSale: 10, Status: models.ListingStatusActive}

	// zero defaults to the full listing
	qty, err := resolvePurchaseQuantity(listing, 0)
	assert.NoError(t, err)
	assert.Equal(t, 10, qty)

	qty, err = resolvePurchaseQuantity(listing, 4)
	assert.NoError(t, err)
	assert.Equal(t, 4, qty)

	_, err = resolvePurchaseQuantity(listing, 11)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = resolvePurchaseQuantity(listing, -1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateTransfer(t *testing.T) {
	listing := &models.Listing{
		ID:            7,
		SellerID:      "seller-1",
		TokensForSale: 10,
		Status:        models.ListingStatusActive,
	}
	sellerInv := &models.Investment{
		ID:          3,
		TokensOwned: 10,
		Status:      models.InvestmentStatusActive,
	}

	assert.NoError(t, validateTransfer(listing, sellerInv, "buyer-1", 10))

	// no self-trading
	err := validateTransfer(listing, sellerInv, "seller-1", 10)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// non-active listing
	soldListing := *listing
	soldListing.Status = models.ListingStatusSold
	err = validateTransfer(&soldListing, sellerInv, "buyer-1", 10)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))

	// seller position drained by a concurrent partial sale
	drained := *sellerInv
	drained.TokensOwned = 3
	err = validateTransfer(listing, &drained, "buyer-1", 10)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// source position no longer active
	soldInv := *sellerInv
	soldInv.Status = models.InvestmentStatusSold
	err = validateTransfer(listing, &soldInv, "buyer-1", 10)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))
}

func TestDebitCostBasisConservation(t *testing.T) {
	inv := &models.Investment{TokensOwned: 10, TotalInvestment: 500}

	// partial debit removes the average cost of the sold tokens
	out := debitCostBasis(inv, 4)
	assert.Equal(t, int64(200), out)

	// a full debit always clears the entire basis, leaving nothing stranded
	out = debitCostBasis(inv, 10)
	assert.Equal(t, int64(500), out)

	// basis is conserved across a split: debited + remaining == original
	first := debitCostBasis(inv, 3)
	rest := &models.Investment{TokensOwned: 7, TotalInvestment: inv.TotalInvestment - first}
	second := debitCostBasis(rest, 7)
	assert.Equal(t, inv.TotalInvestment, first+second)
}

func TestPartialPurchaseArithmetic(t *testing.T) {
	listing := &models.Listing{
		TokensForSale: 10,
		PricePerToken: 5,
		Status:        models.ListingStatusActive,
	}

	qty, err := resolvePurchaseQuantity(listing, 4)
	assert.NoError(t, err)

	totalDue := listing.PricePerToken * int64(qty)
	assert.Equal(t, int64(20), totalDue)

	remaining := listing.TokensForSale - qty
	assert.Equal(t, 6, remaining)
	assert.Equal(t, int64(30), int64(remaining)*listing.PricePerToken)
}

func TestAvailableToList(t *testing.T) {
	inv := &models.Investment{TokensOwned: 10}

	assert.Equal(t, 10, availableToList(inv, 0))
	assert.Equal(t, 4, availableToList(inv, 6))
	assert.Equal(t, 0, availableToList(inv, 10))
	// already-listed beyond owned clamps to zero
	assert.Equal(t, 0, availableToList(inv, 12))
}

func TestOwnershipPercentage(t *testing.T) {
	inv := &models.Investment{TokensOwned: 25}

	assert.InDelta(t, 25.0, inv.OwnershipPercentage(100), 0.001)
	assert.InDelta(t, 0.0, inv.OwnershipPercentage(0), 0.001)
}
