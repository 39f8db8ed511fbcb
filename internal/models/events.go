package models

import "time"

// Event types
const (
	EventTypeOfferingCreated   = "OFFERING_CREATED"
	EventTypeOfferingFunded    = "OFFERING_FUNDED"
	EventTypePurchaseRequested = "PURCHASE_REQUESTED"
	EventTypeRequestApproved   = "REQUEST_APPROVED"
	EventTypeRequestRejected   = "REQUEST_REJECTED"
	EventTypePaymentConfirmed  = "PAYMENT_CONFIRMED"
	EventTypeTokensAssigned    = "TOKENS_ASSIGNED"
	EventTypeListingCreated    = "LISTING_CREATED"
	EventTypeListingCancelled  = "LISTING_CANCELLED"
	EventTypeTokensTransferred = "TOKENS_TRANSFERRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OfferingCreatedEvent published when a property offering is issued
type OfferingCreatedEvent struct {
	BaseEvent
	OfferingID  int64  `json:"offering_id"`
	PropertyID  int64  `json:"property_id"`
	SellerID    string `json:"seller_id"`
	TotalTokens int    `json:"total_tokens"`
	TokenPrice  int64  `json:"token_price"`
}

// OfferingFundedEvent published when an offering sells out
type OfferingFundedEvent struct {
	BaseEvent
	OfferingID int64  `json:"offering_id"`
	PropertyID int64  `json:"property_id"`
	SellerID   string `json:"seller_id"`
}

// PurchaseRequestedEvent published when a buyer submits a purchase request.
// The seller is notified from this event.
type PurchaseRequestedEvent struct {
	BaseEvent
	RequestID       int64  `json:"request_id"`
	OfferingID      int64  `json:"offering_id"`
	BuyerID         string `json:"buyer_id"`
	SellerID        string `json:"seller_id"`
	BuyerName       string `json:"buyer_name"`
	TokensRequested int    `json:"tokens_requested"`
	TotalAmount     int64  `json:"total_amount"`
}

// RequestDecisionEvent published when a seller approves or rejects a request
type RequestDecisionEvent struct {
	BaseEvent
	RequestID int64  `json:"request_id"`
	BuyerID   string `json:"buyer_id"`
	SellerID  string `json:"seller_id"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
}

// PaymentConfirmedEvent published when a seller confirms payment receipt
type PaymentConfirmedEvent struct {
	BaseEvent
	RequestID int64  `json:"request_id"`
	BuyerID   string `json:"buyer_id"`
	SellerID  string `json:"seller_id"`
	Amount    int64  `json:"amount"`
}

// TokensAssignedEvent published after primary-issuance tokens are assigned
type TokensAssignedEvent struct {
	BaseEvent
	RequestID      int64  `json:"request_id"`
	OfferingID     int64  `json:"offering_id"`
	BuyerID        string `json:"buyer_id"`
	SellerID       string `json:"seller_id"`
	TokensAssigned int    `json:"tokens_assigned"`
	OfferingFunded bool   `json:"offering_funded"`
}

// ListingCreatedEvent published when tokens are listed for resale
type ListingCreatedEvent struct {
	BaseEvent
	ListingID     int64  `json:"listing_id"`
	OfferingID    int64  `json:"offering_id"`
	SellerID      string `json:"seller_id"`
	TokensForSale int    `json:"tokens_for_sale"`
	PricePerToken int64  `json:"price_per_token"`
	Currency      string `json:"currency"`
}

// ListingCancelledEvent published when a seller withdraws a listing
type ListingCancelledEvent struct {
	BaseEvent
	ListingID int64  `json:"listing_id"`
	SellerID  string `json:"seller_id"`
}

// TokensTransferredEvent published after a peer-to-peer transfer commits.
// The seller is notified from this event.
type TokensTransferredEvent struct {
	BaseEvent
	ListingID       int64  `json:"listing_id"`
	OfferingID      int64  `json:"offering_id"`
	SellerID        string `json:"seller_id"`
	BuyerID         string `json:"buyer_id"`
	TokensPurchased int    `json:"tokens_purchased"`
	TotalPrice      int64  `json:"total_price"`
	Currency        string `json:"currency"`
	ListingSoldOut  bool   `json:"listing_sold_out"`
}
