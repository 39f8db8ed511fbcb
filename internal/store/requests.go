package store

import (
	"context"
	"database/sql"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateRequest inserts a new purchase request
func (s *Store) CreateRequest(ctx context.Context, req *models.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests
			(offering_id, property_id, buyer_id, seller_id,
			 buyer_name, buyer_email, buyer_phone, seller_name, seller_email,
			 tokens_requested, price_per_token, total_amount,
			 payment_method, payment_proof, agreement_signed, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, req, query,
		req.OfferingID, req.PropertyID, req.BuyerID, req.SellerID,
		req.BuyerName, req.BuyerEmail, req.BuyerPhone, req.SellerName, req.SellerEmail,
		req.TokensRequested, req.PricePerToken, req.TotalAmount,
		req.PaymentMethod, req.PaymentProof, req.AgreementSigned, req.Status)
}

// GetRequestByID retrieves a purchase request by ID
func (s *Store) GetRequestByID(ctx context.Context, id int64) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := s.db.GetContext(ctx, &req, "SELECT * FROM purchase_requests WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("purchase request not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestsByBuyer retrieves a buyer's purchase requests
func (s *Store) GetRequestsByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := s.db.SelectContext(ctx, &reqs,
		"SELECT * FROM purchase_requests WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return reqs, err
}

// GetRequestsByOffering retrieves the requests submitted against an offering
func (s *Store) GetRequestsByOffering(ctx context.Context, offeringID int64) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := s.db.SelectContext(ctx, &reqs,
		"SELECT * FROM purchase_requests WHERE offering_id = $1 ORDER BY created_at DESC", offeringID)
	return reqs, err
}

// UpdateRequestStatus updates request status
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE purchase_requests SET status = $1, updated_at = NOW() WHERE id = $2",
		status, requestID)
	return err
}

// SetRequestPaymentProof records the buyer's payment proof reference and
// advances the request to payment_pending.
func (s *Store) SetRequestPaymentProof(ctx context.Context, requestID int64, proofRef string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE purchase_requests
		SET payment_proof = $1, status = $2, updated_at = NOW()
		WHERE id = $3`,
		proofRef, models.RequestStatusPaymentPending, requestID)
	return err
}

// GetRequestForUpdateTx locks and reads a purchase request inside tx
func (s *Store) GetRequestForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := tx.GetContext(ctx, &req,
		"SELECT * FROM purchase_requests WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("purchase request not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkRequestAssignedTx stamps the assigned token count inside tx
func (s *Store) MarkRequestAssignedTx(ctx context.Context, tx *sqlx.Tx, requestID int64, tokensAssigned int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_requests
		SET status = $1, tokens_assigned = $2, assigned_at = NOW(), updated_at = NOW()
		WHERE id = $3`,
		models.RequestStatusTokensAssigned, tokensAssigned, requestID)
	return err
}
