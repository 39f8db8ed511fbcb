package store

import (
	"context"
	"database/sql"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOffering inserts a new token offering. The unique index on
// property_id makes the one-offering-per-property rule race-safe; a
// duplicate surfaces as ConflictError rather than a check-then-insert gap.
func (s *Store) CreateOffering(ctx context.Context, offering *models.TokenOffering) error {
	query := `
		INSERT INTO token_offerings
			(property_id, seller_id, total_tokens, token_price, tokens_sold,
			 tokens_available, min_purchase, max_purchase, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, offering, query,
		offering.PropertyID, offering.SellerID, offering.TotalTokens, offering.TokenPrice,
		offering.TokensSold, offering.TokensAvailable, offering.MinPurchase,
		offering.MaxPurchase, offering.Status)
	if err != nil && isUniqueViolation(err) {
		return apperr.Conflict("offering already exists for property %d", offering.PropertyID)
	}
	return err
}

// GetOfferingByID retrieves an offering by ID
func (s *Store) GetOfferingByID(ctx context.Context, id int64) (*models.TokenOffering, error) {
	var offering models.TokenOffering
	err := s.db.GetContext(ctx, &offering, "SELECT * FROM token_offerings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("offering not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

// GetOfferingByPropertyID retrieves the offering issued for a property
func (s *Store) GetOfferingByPropertyID(ctx context.Context, propertyID int64) (*models.TokenOffering, error) {
	var offering models.TokenOffering
	err := s.db.GetContext(ctx, &offering,
		"SELECT * FROM token_offerings WHERE property_id = $1", propertyID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("offering not found for property: %d", propertyID)
	}
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

// ListOfferings retrieves offerings filtered by status ("" for all)
func (s *Store) ListOfferings(ctx context.Context, status string) ([]models.TokenOffering, error) {
	var offerings []models.TokenOffering
	if status == "" {
		err := s.db.SelectContext(ctx, &offerings,
			"SELECT * FROM token_offerings ORDER BY created_at DESC")
		return offerings, err
	}
	err := s.db.SelectContext(ctx, &offerings,
		"SELECT * FROM token_offerings WHERE status = $1 ORDER BY created_at DESC", status)
	return offerings, err
}

// UpdateOfferingStatus updates offering status
func (s *Store) UpdateOfferingStatus(ctx context.Context, offeringID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE token_offerings SET status = $1, updated_at = NOW() WHERE id = $2",
		status, offeringID)
	return err
}

// GetOfferingForUpdateTx locks and reads an offering row inside tx.
// Every mutating workflow re-reads through this lock instead of trusting
// a caller-supplied snapshot.
func (s *Store) GetOfferingForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.TokenOffering, error) {
	var offering models.TokenOffering
	err := tx.GetContext(ctx, &offering,
		"SELECT * FROM token_offerings WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("offering not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

// ApplyOfferingSaleTx moves qty tokens from available to sold inside tx,
// flipping status when supplied.
func (s *Store) ApplyOfferingSaleTx(ctx context.Context, tx *sqlx.Tx, offeringID int64, qty int, status string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE token_offerings
		SET tokens_sold = tokens_sold + $1,
		    tokens_available = tokens_available - $1,
		    status = $2,
		    updated_at = NOW()
		WHERE id = $3`,
		qty, status, offeringID)
	return err
}
