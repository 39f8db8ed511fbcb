package store

import (
	"context"
	"database/sql"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetInvestmentByID retrieves an investment by ID
func (s *Store) GetInvestmentByID(ctx context.Context, id int64) (*models.Investment, error) {
	var inv models.Investment
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM investments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("investment not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvestmentsByBuyer retrieves a buyer's investments
func (s *Store) GetInvestmentsByBuyer(ctx context.Context, buyerID string) ([]models.Investment, error) {
	var invs []models.Investment
	err := s.db.SelectContext(ctx, &invs,
		"SELECT * FROM investments WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return invs, err
}

// SumActiveInvestmentTokens returns total tokens held across active
// investments for an offering. Used by the supply-conservation checks.
func (s *Store) SumActiveInvestmentTokens(ctx context.Context, offeringID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(tokens_owned), 0) FROM investments
		WHERE offering_id = $1 AND status = $2`,
		offeringID, models.InvestmentStatusActive)
	return total, err
}

// GetInvestmentForUpdateTx locks and reads an investment row inside tx
func (s *Store) GetInvestmentForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Investment, error) {
	var inv models.Investment
	err := tx.GetContext(ctx, &inv,
		"SELECT * FROM investments WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("investment not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpsertInvestmentTx credits tokens to the buyer's active position for an
// offering, creating the row when none exists. The partial unique index on
// (offering_id, buyer_id) WHERE status = 'active' is the single source of
// truth for find-or-create; concurrent credits resolve on the index instead
// of racing a separate lookup.
func (s *Store) UpsertInvestmentTx(ctx context.Context, tx *sqlx.Tx, inv *models.Investment) error {
	query := `
		INSERT INTO investments
			(offering_id, property_id, buyer_id, tokens_owned, total_investment, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (offering_id, buyer_id) WHERE status = 'active'
		DO UPDATE SET
			tokens_owned = investments.tokens_owned + EXCLUDED.tokens_owned,
			total_investment = investments.total_investment + EXCLUDED.total_investment,
			updated_at = NOW()
		RETURNING id, tokens_owned, total_investment, created_at, updated_at`

	return tx.GetContext(ctx, inv, query,
		inv.OfferingID, inv.PropertyID, inv.BuyerID,
		inv.TokensOwned, inv.TotalInvestment, models.InvestmentStatusActive)
}

// DebitInvestmentTx removes tokens and cost basis from a seller position
// inside tx, marking the row with the given status (active, or sold when
// the position is drained).
func (s *Store) DebitInvestmentTx(ctx context.Context, tx *sqlx.Tx, id int64, tokens int, amount int64, status string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET tokens_owned = tokens_owned - $1,
		    total_investment = total_investment - $2,
		    status = $3,
		    updated_at = NOW()
		WHERE id = $4`,
		tokens, amount, status, id)
	return err
}
