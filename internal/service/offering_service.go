package service

import (
	"context"
	"fmt"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/auth"
	"token-ledger-service/internal/broker"
	"token-ledger-service/internal/models"
	"token-ledger-service/internal/redisclient"
	"token-ledger-service/internal/store"
	"token-ledger-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OfferingService issues fixed-supply token offerings for properties
type OfferingService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOfferingService creates a new offering service
func NewOfferingService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *OfferingService {
	return &OfferingService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOfferingRequest represents a request to issue an offering
type CreateOfferingRequest struct {
	PropertyID  int64 `json:"propertyId" binding:"required"`
	TotalTokens int   `json:"totalTokens" binding:"required,min=1"`
	TokenPrice  int64 `json:"tokenPrice" binding:"required,min=1"`
	MinPurchase int   `json:"minPurchase" binding:"required,min=1"`
	MaxPurchase int   `json:"maxPurchase" binding:"required,min=1"`
}

// CreateOffering issues a fixed-supply offering for a property. Fails with
// NotFoundError when the property does not exist and ConflictError when an
// offering was already issued for it. The property is flagged tokenized as
// a side effect.
func (s *OfferingService) CreateOffering(ctx context.Context, actor *auth.Actor, req *CreateOfferingRequest) (*models.TokenOffering, error) {
	ctx, span := util.StartSpan(ctx, "OfferingService.CreateOffering")
	defer span.End()

	if req.MinPurchase > req.MaxPurchase {
		return nil, apperr.Validation("minPurchase %d exceeds maxPurchase %d", req.MinPurchase, req.MaxPurchase)
	}
	if req.MaxPurchase > req.TotalTokens {
		return nil, apperr.Validation("maxPurchase %d exceeds totalTokens %d", req.MaxPurchase, req.TotalTokens)
	}

	property, err := s.store.GetPropertyByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	if property.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s does not own property %d", actor.UserID, req.PropertyID)
	}

	offering := &models.TokenOffering{
		PropertyID:      req.PropertyID,
		SellerID:        property.OwnerID,
		TotalTokens:     req.TotalTokens,
		TokenPrice:      req.TokenPrice,
		TokensSold:      0,
		TokensAvailable: req.TotalTokens,
		MinPurchase:     req.MinPurchase,
		MaxPurchase:     req.MaxPurchase,
		Status:          models.OfferingStatusDraft,
	}

	if err := s.store.CreateOffering(ctx, offering); err != nil {
		return nil, err
	}

	if err := s.store.MarkPropertyTokenized(ctx, property.ID); err != nil {
		s.logger.Error("Failed to mark property tokenized",
			zap.Int64("property_id", property.ID),
			zap.Error(err))
	}

	if err := s.redis.InitAvailability(ctx, offering.ID, offering.TokensAvailable, 0); err != nil {
		s.logger.Warn("Failed to seed availability cache",
			zap.Int64("offering_id", offering.ID),
			zap.Error(err))
	}

	util.OfferingsCreatedTotal.Inc()
	s.logger.Info("Offering created",
		zap.Int64("offering_id", offering.ID),
		zap.Int64("property_id", property.ID),
		zap.Int("total_tokens", offering.TotalTokens))

	event := &models.OfferingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOfferingCreated,
			Timestamp: time.Now(),
		},
		OfferingID:  offering.ID,
		PropertyID:  property.ID,
		SellerID:    offering.SellerID,
		TotalTokens: offering.TotalTokens,
		TokenPrice:  offering.TokenPrice,
	}
	if err := s.eventPublisher.PublishOfferingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OfferingCreated event", zap.Error(err))
	}

	return offering, nil
}

// UpdateOfferingStatus moves an offering along the explicit transition
// graph. Unknown statuses are ValidationError, disallowed moves StateError.
func (s *OfferingService) UpdateOfferingStatus(ctx context.Context, actor *auth.Actor, offeringID int64, newStatus string) (*models.TokenOffering, error) {
	ctx, span := util.StartSpan(ctx, "OfferingService.UpdateOfferingStatus")
	defer span.End()

	offering, err := s.store.GetOfferingByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}

	if offering.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Authorization("actor %s does not own offering %d", actor.UserID, offeringID)
	}

	if err := validateOfferingTransition(offering.Status, newStatus); err != nil {
		return nil, err
	}

	if err := s.store.UpdateOfferingStatus(ctx, offeringID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update offering status: %w", err)
	}

	// Activation opens the offering for submissions; refresh the fast path.
	if newStatus == models.OfferingStatusActive {
		if err := s.redis.InitAvailability(ctx, offeringID, offering.TokensAvailable, 0); err != nil {
			s.logger.Warn("Failed to refresh availability cache",
				zap.Int64("offering_id", offeringID),
				zap.Error(err))
		}
	}

	s.logger.Info("Offering status updated",
		zap.Int64("offering_id", offeringID),
		zap.String("from", offering.Status),
		zap.String("to", newStatus))

	offering.Status = newStatus
	return offering, nil
}

// GetOffering retrieves an offering by ID
func (s *OfferingService) GetOffering(ctx context.Context, offeringID int64) (*models.TokenOffering, error) {
	return s.store.GetOfferingByID(ctx, offeringID)
}

// ListOfferings retrieves offerings filtered by status ("" for all)
func (s *OfferingService) ListOfferings(ctx context.Context, status string) ([]models.TokenOffering, error) {
	if status != "" {
		if _, known := offeringTransitions[status]; !known {
			return nil, apperr.Validation("unknown offering status: %s", status)
		}
	}
	return s.store.ListOfferings(ctx, status)
}

// SyncAvailabilityToRedis seeds the availability cache from the database.
// Run on boot, mirroring current offering state.
func (s *OfferingService) SyncAvailabilityToRedis(ctx context.Context) error {
	s.logger.Info("Starting availability sync to Redis")

	offerings, err := s.store.ListOfferings(ctx, models.OfferingStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active offerings: %w", err)
	}

	for _, offering := range offerings {
		if err := s.redis.InitAvailability(ctx, offering.ID, offering.TokensAvailable, 0); err != nil {
			s.logger.Error("Failed to seed availability",
				zap.Int64("offering_id", offering.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Availability sync completed", zap.Int("count", len(offerings)))
	return nil
}
