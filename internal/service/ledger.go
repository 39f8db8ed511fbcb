package service

import (
	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"
)

// offeringTransitions is the allowed status graph for offerings. Funded,
// closed and cancelled are terminal.
var offeringTransitions = map[string][]string{
	models.OfferingStatusDraft:     {models.OfferingStatusActive, models.OfferingStatusCancelled},
	models.OfferingStatusActive:    {models.OfferingStatusFunded, models.OfferingStatusClosed, models.OfferingStatusCancelled},
	models.OfferingStatusFunded:    {},
	models.OfferingStatusClosed:    {},
	models.OfferingStatusCancelled: {},
}

// validateOfferingTransition rejects unknown statuses with ValidationError
// and disallowed moves with StateError.
func validateOfferingTransition(current, next string) error {
	if _, known := offeringTransitions[next]; !known {
		return apperr.Validation("unknown offering status: %s", next)
	}
	for _, s := range offeringTransitions[current] {
		if s == next {
			return nil
		}
	}
	return apperr.State("offering cannot move from %s to %s", current, next)
}

// validateSubmission checks a purchase request against the offering it
// targets. All checks run before any write.
func validateSubmission(offering *models.TokenOffering, tokensRequested int) error {
	if offering.Status != models.OfferingStatusActive {
		return apperr.Validation("offering %d is not active (status: %s)", offering.ID, offering.Status)
	}
	if tokensRequested < offering.MinPurchase || tokensRequested > offering.MaxPurchase {
		return apperr.Validation("tokensRequested %d outside allowed range [%d, %d]",
			tokensRequested, offering.MinPurchase, offering.MaxPurchase)
	}
	if tokensRequested > offering.TokensAvailable {
		return apperr.Validation("tokensRequested %d exceeds available supply %d",
			tokensRequested, offering.TokensAvailable)
	}
	return nil
}

// validateAssignment re-checks the offering inside the assignment
// transaction. A funded or closed offering never accepts further assigns.
func validateAssignment(offering *models.TokenOffering, tokens int) error {
	if offering.Status != models.OfferingStatusActive {
		return apperr.State("offering %d does not accept assignments (status: %s)", offering.ID, offering.Status)
	}
	if tokens < 1 {
		return apperr.Validation("tokens to assign must be at least 1")
	}
	if tokens > offering.TokensAvailable {
		return apperr.Validation("cannot assign %d tokens, only %d available", tokens, offering.TokensAvailable)
	}
	return nil
}

// offeringStatusAfterSale returns the offering status once qty tokens are
// sold and whether that sale fully funds the offering. The funded flip
// happens exactly when availability reaches zero.
func offeringStatusAfterSale(offering *models.TokenOffering, qty int) (status string, funded bool) {
	if offering.TokensAvailable-qty == 0 {
		return models.OfferingStatusFunded, true
	}
	return offering.Status, false
}

// resolvePurchaseQuantity defaults a transfer to the full listing when no
// quantity is given and bounds an explicit one.
func resolvePurchaseQuantity(listing *models.Listing, requested int) (int, error) {
	if requested == 0 {
		return listing.TokensForSale, nil
	}
	if requested < 1 {
		return 0, apperr.Validation("tokensToPurchase must be at least 1")
	}
	if requested > listing.TokensForSale {
		return 0, apperr.Validation("tokensToPurchase %d exceeds tokens for sale %d",
			requested, listing.TokensForSale)
	}
	return requested, nil
}

// validateTransfer runs the peer-to-peer transfer checks against the locked
// listing and the seller's locked source position.
func validateTransfer(listing *models.Listing, sellerInv *models.Investment, buyerID string, qty int) error {
	if listing.Status != models.ListingStatusActive {
		return apperr.State("listing %d is not active (status: %s)", listing.ID, listing.Status)
	}
	if buyerID == listing.SellerID {
		return apperr.Validation("buyer cannot purchase from their own listing")
	}
	if sellerInv.Status != models.InvestmentStatusActive {
		return apperr.State("source investment %d is not active (status: %s)", sellerInv.ID, sellerInv.Status)
	}
	// Concurrent partial sales may have drained the position since listing.
	if sellerInv.TokensOwned < qty {
		return apperr.Conflict("seller position holds %d tokens, %d requested",
			sellerInv.TokensOwned, qty)
	}
	return nil
}

// debitCostBasis returns the share of the seller's cost basis leaving the
// position with qty tokens, at the position's average cost. The remainder
// stays on the position so basis is conserved across partial sales.
func debitCostBasis(inv *models.Investment, qty int) int64 {
	if inv.TokensOwned <= 0 {
		return 0
	}
	if qty >= inv.TokensOwned {
		return inv.TotalInvestment
	}
	return inv.TotalInvestment * int64(qty) / int64(inv.TokensOwned)
}

// availableToList returns how many tokens of a position can still back a
// new listing once already-listed quantities are subtracted.
func availableToList(inv *models.Investment, alreadyListed int) int {
	available := inv.TokensOwned - alreadyListed
	if available < 0 {
		return 0
	}
	return available
}
