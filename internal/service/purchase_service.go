package service

import (
	"context"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/auth"
	"token-ledger-service/internal/broker"
	"token-ledger-service/internal/models"
	"token-ledger-service/internal/redisclient"
	"token-ledger-service/internal/store"
	"token-ledger-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PurchaseService runs the primary-issuance purchase workflow: a request
// moves from submission through seller approval and payment confirmation
// to the transactional token assignment.
type PurchaseService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *PurchaseService {
	return &PurchaseService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// SubmitRequestInput represents a buyer's purchase submission
type SubmitRequestInput struct {
	OfferingID      int64  `json:"offeringId" binding:"required"`
	TokensRequested int    `json:"tokensRequested" binding:"required,min=1"`
	PaymentMethod   string `json:"paymentMethod" binding:"required"`
	AgreementSigned bool   `json:"agreementSigned"`
}

// SubmitRequest validates a submission against the live offering, snapshots
// buyer/seller contact details and the current token price, and records the
// request as pending. The price snapshot insulates the buyer from later
// repricing.
func (s *PurchaseService) SubmitRequest(ctx context.Context, actor *auth.Actor, input *SubmitRequestInput) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.SubmitRequest")
	defer span.End()

	offering, err := s.store.GetOfferingByID(ctx, input.OfferingID)
	if err != nil {
		util.RequestsFailedTotal.WithLabelValues("offering_not_found").Inc()
		return nil, err
	}

	if err := validateSubmission(offering, input.TokensRequested); err != nil {
		util.RequestsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	reserved, reserveErr := s.reserveAvailability(ctx, offering.ID, input.TokensRequested)
	if reserveErr == nil && !reserved {
		util.RequestsFailedTotal.WithLabelValues("insufficient_tokens").Inc()
		return nil, apperr.Validation("tokensRequested %d exceeds available supply", input.TokensRequested)
	}
	release := func() {
		if reserveErr == nil {
			s.releaseAvailability(ctx, offering.ID, input.TokensRequested)
		}
	}

	buyerProfile, err := s.store.GetUserProfile(ctx, actor.UserID)
	if err != nil {
		release()
		return nil, err
	}
	sellerProfile, err := s.store.GetUserProfile(ctx, offering.SellerID)
	if err != nil {
		release()
		return nil, err
	}

	request := &models.PurchaseRequest{
		OfferingID:      offering.ID,
		PropertyID:      offering.PropertyID,
		BuyerID:         actor.UserID,
		SellerID:        offering.SellerID,
		BuyerName:       buyerProfile.Name,
		BuyerEmail:      buyerProfile.Email,
		BuyerPhone:      buyerProfile.Phone,
		SellerName:      sellerProfile.Name,
		SellerEmail:     sellerProfile.Email,
		TokensRequested: input.TokensRequested,
		PricePerToken:   offering.TokenPrice,
		TotalAmount:     offering.TokenPrice * int64(input.TokensRequested),
		PaymentMethod:   input.PaymentMethod,
		AgreementSigned: input.AgreementSigned,
		Status:          models.RequestStatusPending,
	}

	if err := s.store.CreateRequest(ctx, request); err != nil {
		release()
		util.RequestsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	util.RequestsSubmittedTotal.Inc()
	s.logger.Info("Purchase request submitted",
		zap.Int64("request_id", request.ID),
		zap.Int64("offering_id", offering.ID),
		zap.String("buyer_id", actor.UserID),
		zap.Int("tokens_requested", input.TokensRequested))

	event := &models.PurchaseRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseRequested,
			Timestamp: time.Now(),
		},
		RequestID:       request.ID,
		OfferingID:      offering.ID,
		BuyerID:         request.BuyerID,
		SellerID:        request.SellerID,
		BuyerName:       request.BuyerName,
		TokensRequested: request.TokensRequested,
		TotalAmount:     request.TotalAmount,
	}
	if err := s.eventPublisher.PublishPurchaseRequested(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseRequested event", zap.Error(err))
	}

	return request, nil
}

// reserveAvailability takes tokens from the Redis fast path. A cache error
// degrades to the transactional checks instead of failing the submission.
func (s *PurchaseService) reserveAvailability(ctx context.Context, offeringID int64, tokens int) (bool, error) {
	start := time.Now()
	defer func() {
		util.TokenReserveLatency.Observe(time.Since(start).Seconds())
	}()

	reserved, err := s.redis.ReserveTokens(ctx, offeringID, tokens)
	if err != nil {
		s.logger.Warn("Availability fast path unavailable, deferring to transactional check",
			zap.Int64("offering_id", offeringID),
			zap.Error(err))
		return false, err
	}
	return reserved, nil
}

func (s *PurchaseService) releaseAvailability(ctx context.Context, offeringID int64, tokens int) {
	if err := s.redis.ReleaseTokens(ctx, offeringID, tokens); err != nil {
		s.logger.Warn("Failed to release availability reservation",
			zap.Int64("offering_id", offeringID),
			zap.Error(err))
	}
}

// ApproveRequest moves a pending request to approved (seller only)
func (s *PurchaseService) ApproveRequest(ctx context.Context, actor *auth.Actor, requestID int64) (*models.PurchaseRequest, error) {
	return s.decideRequest(ctx, actor, requestID, models.RequestStatusApproved, "")
}

// RejectRequest moves a pending request to rejected (seller only) and
// returns the reserved availability.
func (s *PurchaseService) RejectRequest(ctx context.Context, actor *auth.Actor, requestID int64, reason string) (*models.PurchaseRequest, error) {
	return s.decideRequest(ctx, actor, requestID, models.RequestStatusRejected, reason)
}

func (s *PurchaseService) decideRequest(ctx context.Context, actor *auth.Actor, requestID int64, decision, reason string) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.decideRequest")
	defer span.End()

	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s is not the seller on request %d", actor.UserID, requestID)
	}
	if request.Status != models.RequestStatusPending {
		return nil, apperr.State("request %d is not pending (status: %s)", requestID, request.Status)
	}

	if err := s.store.UpdateRequestStatus(ctx, requestID, decision); err != nil {
		return nil, err
	}
	request.Status = decision

	eventType := models.EventTypeRequestApproved
	if decision == models.RequestStatusRejected {
		eventType = models.EventTypeRequestRejected
		s.releaseAvailability(ctx, request.OfferingID, request.TokensRequested)
	}

	s.logger.Info("Purchase request decided",
		zap.Int64("request_id", requestID),
		zap.String("decision", decision))

	event := &models.RequestDecisionEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		RequestID: requestID,
		BuyerID:   request.BuyerID,
		SellerID:  request.SellerID,
		Decision:  decision,
		Reason:    reason,
	}
	if err := s.eventPublisher.PublishRequestDecision(ctx, event); err != nil {
		s.logger.Error("Failed to publish RequestDecision event", zap.Error(err))
	}

	return request, nil
}

// SubmitPaymentProof records the buyer's payment proof reference and moves
// the request to payment_pending (buyer only).
func (s *PurchaseService) SubmitPaymentProof(ctx context.Context, actor *auth.Actor, requestID int64, proofRef string) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.SubmitPaymentProof")
	defer span.End()

	if proofRef == "" {
		return nil, apperr.Validation("payment proof reference is required")
	}

	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.BuyerID != actor.UserID {
		return nil, apperr.Authorization("actor %s is not the buyer on request %d", actor.UserID, requestID)
	}
	if request.Status != models.RequestStatusApproved {
		return nil, apperr.State("request %d is not approved (status: %s)", requestID, request.Status)
	}

	if err := s.store.SetRequestPaymentProof(ctx, requestID, proofRef); err != nil {
		return nil, err
	}

	request.PaymentProof = proofRef
	request.Status = models.RequestStatusPaymentPending
	return request, nil
}

// ConfirmPayment acknowledges receipt of the buyer's payment (seller only)
func (s *PurchaseService) ConfirmPayment(ctx context.Context, actor *auth.Actor, requestID int64) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.ConfirmPayment")
	defer span.End()

	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s is not the seller on request %d", actor.UserID, requestID)
	}
	if request.Status != models.RequestStatusPaymentPending {
		return nil, apperr.State("request %d has no pending payment (status: %s)", requestID, request.Status)
	}

	if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestStatusPaymentConfirmed); err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusPaymentConfirmed

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		RequestID: requestID,
		BuyerID:   request.BuyerID,
		SellerID:  request.SellerID,
		Amount:    request.TotalAmount,
	}
	if err := s.eventPublisher.PublishPaymentConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentConfirmed event", zap.Error(err))
	}

	return request, nil
}

// AssignTokens credits the buyer's investment position and debits the
// offering supply in one transaction. Both writes commit or neither does;
// the supply invariant tokensSold + tokensAvailable == totalTokens holds
// on every observable state. tokens == 0 assigns the full requested amount.
func (s *PurchaseService) AssignTokens(ctx context.Context, actor *auth.Actor, requestID int64, tokens int) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.AssignTokens")
	defer span.End()

	var (
		request  *models.PurchaseRequest
		offering *models.TokenOffering
		funded   bool
	)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.store.GetRequestForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}

		if request.SellerID != actor.UserID && !actor.IsAdmin() {
			return apperr.Authorization("actor %s is not the seller on request %d", actor.UserID, requestID)
		}
		if request.Status != models.RequestStatusPaymentConfirmed {
			return apperr.State("request %d payment is not confirmed (status: %s)", requestID, request.Status)
		}

		if tokens == 0 {
			tokens = request.TokensRequested
		}
		if tokens > request.TokensRequested {
			return apperr.Validation("cannot assign %d tokens, request is for %d", tokens, request.TokensRequested)
		}

		offering, err = s.store.GetOfferingForUpdateTx(ctx, tx, request.OfferingID)
		if err != nil {
			return err
		}
		if err := validateAssignment(offering, tokens); err != nil {
			return err
		}

		// The investment is priced at the request's snapshotted rate, not
		// the offering's current one.
		investment := &models.Investment{
			OfferingID:      offering.ID,
			PropertyID:      offering.PropertyID,
			BuyerID:         request.BuyerID,
			TokensOwned:     tokens,
			TotalInvestment: request.PricePerToken * int64(tokens),
		}
		if err := s.store.UpsertInvestmentTx(ctx, tx, investment); err != nil {
			return apperr.Transaction("failed to credit investment", err)
		}

		var status string
		status, funded = offeringStatusAfterSale(offering, tokens)
		if err := s.store.ApplyOfferingSaleTx(ctx, tx, offering.ID, tokens, status); err != nil {
			return apperr.Transaction("failed to update offering supply", err)
		}

		if err := s.store.MarkRequestAssignedTx(ctx, tx, requestID, tokens); err != nil {
			return apperr.Transaction("failed to mark request assigned", err)
		}
		return nil
	})
	if err != nil {
		util.RequestsFailedTotal.WithLabelValues("assignment").Inc()
		return nil, err
	}

	request.Status = models.RequestStatusTokensAssigned
	request.TokensAssigned = tokens

	util.TokensAssignedTotal.Add(float64(tokens))
	if funded {
		util.OfferingsFundedTotal.Inc()
	}
	s.logger.Info("Tokens assigned",
		zap.Int64("request_id", requestID),
		zap.Int64("offering_id", offering.ID),
		zap.Int("tokens", tokens),
		zap.Bool("funded", funded))

	// Settle the fast-path reservation; leftovers from a reduced assignment
	// go back to availability.
	if err := s.redis.CommitTokens(ctx, offering.ID, tokens); err != nil {
		s.logger.Warn("Failed to commit availability reservation", zap.Error(err))
	}
	if remainder := request.TokensRequested - tokens; remainder > 0 {
		s.releaseAvailability(ctx, offering.ID, remainder)
	}

	assignedEvent := &models.TokensAssignedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTokensAssigned,
			Timestamp: time.Now(),
		},
		RequestID:      requestID,
		OfferingID:     offering.ID,
		BuyerID:        request.BuyerID,
		SellerID:       request.SellerID,
		TokensAssigned: tokens,
		OfferingFunded: funded,
	}
	if err := s.eventPublisher.PublishTokensAssigned(ctx, assignedEvent); err != nil {
		s.logger.Error("Failed to publish TokensAssigned event", zap.Error(err))
	}

	if funded {
		fundedEvent := &models.OfferingFundedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOfferingFunded,
				Timestamp: time.Now(),
			},
			OfferingID: offering.ID,
			PropertyID: offering.PropertyID,
			SellerID:   offering.SellerID,
		}
		if err := s.eventPublisher.PublishOfferingFunded(ctx, fundedEvent); err != nil {
			s.logger.Error("Failed to publish OfferingFunded event", zap.Error(err))
		}
	}

	return request, nil
}

// CompleteRequest closes out an assigned request (buyer or seller)
func (s *PurchaseService) CompleteRequest(ctx context.Context, actor *auth.Actor, requestID int64) (*models.PurchaseRequest, error) {
	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.BuyerID != actor.UserID && request.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s is not a party to request %d", actor.UserID, requestID)
	}
	if request.Status != models.RequestStatusTokensAssigned {
		return nil, apperr.State("request %d tokens are not assigned (status: %s)", requestID, request.Status)
	}

	if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestStatusCompleted); err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusCompleted
	return request, nil
}

// CancelRequest cancels a request in any pre-assignment state (buyer or
// seller). Assigned and completed requests are immutable.
func (s *PurchaseService) CancelRequest(ctx context.Context, actor *auth.Actor, requestID int64) (*models.PurchaseRequest, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.CancelRequest")
	defer span.End()

	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.BuyerID != actor.UserID && request.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s is not a party to request %d", actor.UserID, requestID)
	}

	switch request.Status {
	case models.RequestStatusPending, models.RequestStatusApproved,
		models.RequestStatusPaymentPending, models.RequestStatusPaymentConfirmed:
		// cancellable
	default:
		return nil, apperr.State("request %d cannot be cancelled (status: %s)", requestID, request.Status)
	}

	if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestStatusCancelled); err != nil {
		return nil, err
	}
	s.releaseAvailability(ctx, request.OfferingID, request.TokensRequested)

	s.logger.Info("Purchase request cancelled",
		zap.Int64("request_id", requestID),
		zap.String("by", actor.UserID))

	request.Status = models.RequestStatusCancelled
	return request, nil
}

// GetRequest retrieves a purchase request visible to its parties
func (s *PurchaseService) GetRequest(ctx context.Context, actor *auth.Actor, requestID int64) (*models.PurchaseRequest, error) {
	request, err := s.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != actor.UserID && request.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s is not a party to request %d", actor.UserID, requestID)
	}
	return request, nil
}

// GetRequestsByBuyer retrieves the actor's own purchase requests
func (s *PurchaseService) GetRequestsByBuyer(ctx context.Context, actor *auth.Actor) ([]models.PurchaseRequest, error) {
	return s.store.GetRequestsByBuyer(ctx, actor.UserID)
}
