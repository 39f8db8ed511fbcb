package store

import (
	"context"
	"database/sql"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateListing inserts a new resale listing
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings
			(investment_id, offering_id, property_id, seller_id, seller_name, seller_email,
			 tokens_for_sale, price_per_token, total_price, currency, description,
			 status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, listing, query,
		listing.InvestmentID, listing.OfferingID, listing.PropertyID,
		listing.SellerID, listing.SellerName, listing.SellerEmail,
		listing.TokensForSale, listing.PricePerToken, listing.TotalPrice,
		listing.Currency, listing.Description, listing.Status, listing.ExpiresAt)
}

// GetListingByID retrieves a listing by ID
func (s *Store) GetListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.GetContext(ctx, &listing, "SELECT * FROM listings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("listing not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListActiveListings retrieves active listings, optionally for one offering
func (s *Store) ListActiveListings(ctx context.Context, offeringID int64) ([]models.Listing, error) {
	var listings []models.Listing
	if offeringID == 0 {
		err := s.db.SelectContext(ctx, &listings,
			"SELECT * FROM listings WHERE status = $1 ORDER BY created_at DESC",
			models.ListingStatusActive)
		return listings, err
	}
	err := s.db.SelectContext(ctx, &listings,
		"SELECT * FROM listings WHERE status = $1 AND offering_id = $2 ORDER BY created_at DESC",
		models.ListingStatusActive, offeringID)
	return listings, err
}

// GetListingsBySeller retrieves a seller's listings
func (s *Store) GetListingsBySeller(ctx context.Context, sellerID string) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.SelectContext(ctx, &listings,
		"SELECT * FROM listings WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return listings, err
}

// SumActiveListedTokens returns the tokens already committed to active
// listings backed by an investment. Listing creation subtracts this from
// tokens_owned to stop the same tokens being listed twice.
func (s *Store) SumActiveListedTokens(ctx context.Context, investmentID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(tokens_for_sale), 0) FROM listings
		WHERE investment_id = $1 AND status = $2`,
		investmentID, models.ListingStatusActive)
	return total, err
}

// UpdateListingTerms updates price and description on an active listing,
// recomputing total_price from the remaining quantity.
func (s *Store) UpdateListingTerms(ctx context.Context, listingID int64, pricePerToken int64, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET price_per_token = $1,
		    total_price = tokens_for_sale * $1,
		    description = $2,
		    updated_at = NOW()
		WHERE id = $3`,
		pricePerToken, description, listingID)
	return err
}

// UpdateListingStatus updates listing status
func (s *Store) UpdateListingStatus(ctx context.Context, listingID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2",
		status, listingID)
	return err
}

// GetListingForUpdateTx locks and reads a listing row inside tx
func (s *Store) GetListingForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := tx.GetContext(ctx, &listing,
		"SELECT * FROM listings WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("listing not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// MarkListingSoldTx closes a fully purchased listing inside tx, stamping
// the buyer and sale time.
func (s *Store) MarkListingSoldTx(ctx context.Context, tx *sqlx.Tx, listingID int64, buyerID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, buyer_id = $2, sold_at = NOW(), updated_at = NOW()
		WHERE id = $3`,
		models.ListingStatusSold, buyerID, listingID)
	return err
}

// ReduceListingTx applies a partial sale inside tx: the remaining quantity
// shrinks and total_price is recomputed in place, the listing stays active.
func (s *Store) ReduceListingTx(ctx context.Context, tx *sqlx.Tx, listingID int64, qty int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET tokens_for_sale = tokens_for_sale - $1,
		    total_price = (tokens_for_sale - $1) * price_per_token,
		    updated_at = NOW()
		WHERE id = $2`,
		qty, listingID)
	return err
}

// ExpireListings transitions active listings past their expiry to expired.
// Run by the background sweep, not by request handlers.
func (s *Store) ExpireListings(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at <= $3`,
		models.ListingStatusExpired, models.ListingStatusActive, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
