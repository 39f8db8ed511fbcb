package service

import (
	"context"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/auth"
	"token-ledger-service/internal/broker"
	"token-ledger-service/internal/models"
	"token-ledger-service/internal/store"
	"token-ledger-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ListingService is the peer-to-peer resale engine: owners list held tokens
// and other buyers purchase them, with ownership moving atomically between
// the two investment positions.
type ListingService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	currency       *CurrencyResolver
	logger         *zap.Logger
}

// NewListingService creates a new listing service
func NewListingService(
	store *store.Store,
	eventPublisher *broker.EventPublisher,
	currency *CurrencyResolver,
) *ListingService {
	return &ListingService{
		store:          store,
		eventPublisher: eventPublisher,
		currency:       currency,
		logger:         util.GetLogger(),
	}
}

// CreateListingInput represents a seller's resale offer
type CreateListingInput struct {
	InvestmentID  int64      `json:"investmentId" binding:"required"`
	TokensForSale int        `json:"tokensForSale" binding:"required,min=1"`
	PricePerToken int64      `json:"pricePerToken" binding:"required,min=1"`
	Description   string     `json:"description"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// UpdateListingInput carries the mutable listing terms
type UpdateListingInput struct {
	PricePerToken *int64  `json:"pricePerToken"`
	Description   *string `json:"description"`
}

// CreateListing lists tokens from the actor's investment for resale. The
// quantity is capped at tokens_owned minus what active listings already
// commit, so the same tokens are never listed twice.
func (s *ListingService) CreateListing(ctx context.Context, actor *auth.Actor, input *CreateListingInput) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.CreateListing")
	defer span.End()

	investment, err := s.store.GetInvestmentByID(ctx, input.InvestmentID)
	if err != nil {
		return nil, err
	}

	if investment.BuyerID != actor.UserID {
		return nil, apperr.Authorization("actor %s does not own investment %d", actor.UserID, input.InvestmentID)
	}
	if investment.Status != models.InvestmentStatusActive {
		return nil, apperr.Validation("investment %d is not active (status: %s)", input.InvestmentID, investment.Status)
	}

	alreadyListed, err := s.store.SumActiveListedTokens(ctx, investment.ID)
	if err != nil {
		return nil, err
	}
	if available := availableToList(investment, alreadyListed); input.TokensForSale > available {
		return nil, apperr.Validation("tokensForSale %d exceeds listable balance %d (owned %d, already listed %d)",
			input.TokensForSale, available, investment.TokensOwned, alreadyListed)
	}

	property, err := s.store.GetPropertyByID(ctx, investment.PropertyID)
	if err != nil {
		return nil, err
	}
	currency, err := s.currency.Resolve(property.Country)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetUserProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		InvestmentID:  investment.ID,
		OfferingID:    investment.OfferingID,
		PropertyID:    investment.PropertyID,
		SellerID:      actor.UserID,
		SellerName:    profile.Name,
		SellerEmail:   profile.Email,
		TokensForSale: input.TokensForSale,
		PricePerToken: input.PricePerToken,
		TotalPrice:    input.PricePerToken * int64(input.TokensForSale),
		Currency:      currency,
		Description:   input.Description,
		Status:        models.ListingStatusActive,
		ExpiresAt:     input.ExpiresAt,
	}

	if err := s.store.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	util.ListingsCreatedTotal.Inc()
	s.logger.Info("Listing created",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("investment_id", investment.ID),
		zap.Int("tokens_for_sale", listing.TokensForSale),
		zap.String("currency", currency))

	event := &models.ListingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingCreated,
			Timestamp: time.Now(),
		},
		ListingID:     listing.ID,
		OfferingID:    listing.OfferingID,
		SellerID:      listing.SellerID,
		TokensForSale: listing.TokensForSale,
		PricePerToken: listing.PricePerToken,
		Currency:      currency,
	}
	if err := s.eventPublisher.PublishListingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingCreated event", zap.Error(err))
	}

	return listing, nil
}

// PurchaseFromListing transfers tokens from the listing's backing position
// to the buyer. Debit, credit and listing update commit as one transaction;
// any failure leaves all three entities untouched. tokens == 0 buys the
// full listing. The seller notification goes out after commit and its
// failure never unwinds the transfer.
func (s *ListingService) PurchaseFromListing(ctx context.Context, actor *auth.Actor, listingID int64, tokens int) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.PurchaseFromListing")
	defer span.End()

	start := time.Now()
	defer func() {
		util.TransferLatency.Observe(time.Since(start).Seconds())
	}()

	var (
		listing  *models.Listing
		qty      int
		soldOut  bool
		totalDue int64
	)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		// Current state is re-read under lock; caller snapshots are never
		// trusted across the listing/purchase gap.
		listing, err = s.store.GetListingForUpdateTx(ctx, tx, listingID)
		if err != nil {
			return err
		}

		qty, err = resolvePurchaseQuantity(listing, tokens)
		if err != nil {
			return err
		}

		sellerInv, err := s.store.GetInvestmentForUpdateTx(ctx, tx, listing.InvestmentID)
		if err != nil {
			return err
		}

		if err := validateTransfer(listing, sellerInv, actor.UserID, qty); err != nil {
			return err
		}

		totalDue = listing.PricePerToken * int64(qty)
		soldOut = qty == listing.TokensForSale

		// Debit the seller position; a drained position is marked sold.
		debitStatus := models.InvestmentStatusActive
		if sellerInv.TokensOwned == qty {
			debitStatus = models.InvestmentStatusSold
		}
		basisOut := debitCostBasis(sellerInv, qty)
		if err := s.store.DebitInvestmentTx(ctx, tx, sellerInv.ID, qty, basisOut, debitStatus); err != nil {
			return apperr.Transaction("failed to debit seller investment", err)
		}

		// Credit the buyer's position for the same offering, creating it on
		// first purchase. Cost basis uses the listing price the buyer paid.
		buyerInv := &models.Investment{
			OfferingID:      listing.OfferingID,
			PropertyID:      listing.PropertyID,
			BuyerID:         actor.UserID,
			TokensOwned:     qty,
			TotalInvestment: totalDue,
		}
		if err := s.store.UpsertInvestmentTx(ctx, tx, buyerInv); err != nil {
			return apperr.Transaction("failed to credit buyer investment", err)
		}

		if soldOut {
			if err := s.store.MarkListingSoldTx(ctx, tx, listing.ID, actor.UserID); err != nil {
				return apperr.Transaction("failed to close listing", err)
			}
		} else {
			if err := s.store.ReduceListingTx(ctx, tx, listing.ID, qty); err != nil {
				return apperr.Transaction("failed to reduce listing", err)
			}
		}
		return nil
	})
	if err != nil {
		util.TransfersFailedTotal.WithLabelValues(transferFailureReason(err)).Inc()
		return nil, err
	}

	util.TransfersTotal.Inc()
	s.logger.Info("Tokens transferred",
		zap.Int64("listing_id", listingID),
		zap.String("seller_id", listing.SellerID),
		zap.String("buyer_id", actor.UserID),
		zap.Int("tokens", qty),
		zap.Bool("sold_out", soldOut))

	event := &models.TokensTransferredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTokensTransferred,
			Timestamp: time.Now(),
		},
		ListingID:       listingID,
		OfferingID:      listing.OfferingID,
		SellerID:        listing.SellerID,
		BuyerID:         actor.UserID,
		TokensPurchased: qty,
		TotalPrice:      totalDue,
		Currency:        listing.Currency,
		ListingSoldOut:  soldOut,
	}
	if err := s.eventPublisher.PublishTokensTransferred(ctx, event); err != nil {
		s.logger.Error("Failed to publish TokensTransferred event", zap.Error(err))
	}

	return s.store.GetListingByID(ctx, listingID)
}

func transferFailureReason(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "validation"
	case apperr.KindState:
		return "state"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindTransaction:
		return "transaction"
	default:
		return "other"
	}
}

// UpdateListing changes price and/or description on an active listing
// (seller only), recomputing the total from the remaining quantity.
func (s *ListingService) UpdateListing(ctx context.Context, actor *auth.Actor, listingID int64, input *UpdateListingInput) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.UpdateListing")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID != actor.UserID {
		return nil, apperr.Authorization("actor %s does not own listing %d", actor.UserID, listingID)
	}
	if listing.Status != models.ListingStatusActive {
		return nil, apperr.State("listing %d is not active (status: %s)", listingID, listing.Status)
	}

	price := listing.PricePerToken
	if input.PricePerToken != nil {
		if *input.PricePerToken < 1 {
			return nil, apperr.Validation("pricePerToken must be at least 1")
		}
		price = *input.PricePerToken
	}
	description := listing.Description
	if input.Description != nil {
		description = *input.Description
	}

	if err := s.store.UpdateListingTerms(ctx, listingID, price, description); err != nil {
		return nil, err
	}

	return s.store.GetListingByID(ctx, listingID)
}

// CancelListing withdraws an active listing (seller only)
func (s *ListingService) CancelListing(ctx context.Context, actor *auth.Actor, listingID int64) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.CancelListing")
	defer span.End()

	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID != actor.UserID {
		return nil, apperr.Authorization("actor %s does not own listing %d", actor.UserID, listingID)
	}
	if listing.Status == models.ListingStatusSold || listing.Status == models.ListingStatusCancelled {
		return nil, apperr.State("listing %d is already %s", listingID, listing.Status)
	}

	if err := s.store.UpdateListingStatus(ctx, listingID, models.ListingStatusCancelled); err != nil {
		return nil, err
	}
	listing.Status = models.ListingStatusCancelled

	event := &models.ListingCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingCancelled,
			Timestamp: time.Now(),
		},
		ListingID: listingID,
		SellerID:  actor.UserID,
	}
	if err := s.eventPublisher.PublishListingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingCancelled event", zap.Error(err))
	}

	return listing, nil
}

// GetListing retrieves a listing by ID
func (s *ListingService) GetListing(ctx context.Context, listingID int64) (*models.Listing, error) {
	return s.store.GetListingByID(ctx, listingID)
}

// ListActiveListings retrieves active listings, optionally for one offering
func (s *ListingService) ListActiveListings(ctx context.Context, offeringID int64) ([]models.Listing, error) {
	return s.store.ListActiveListings(ctx, offeringID)
}

// GetInvestmentsByBuyer retrieves the actor's positions
func (s *ListingService) GetInvestmentsByBuyer(ctx context.Context, actor *auth.Actor) ([]models.Investment, error) {
	return s.store.GetInvestmentsByBuyer(ctx, actor.UserID)
}

// ExpireListings sweeps active listings past their expiry. Called by the
// background expiry worker under a distributed lock.
func (s *ListingService) ExpireListings(ctx context.Context) (int64, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.ExpireListings")
	defer span.End()

	expired, err := s.store.ExpireListings(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		util.ListingsExpiredTotal.Add(float64(expired))
		s.logger.Info("Listings expired", zap.Int64("count", expired))
	}
	return expired, nil
}
