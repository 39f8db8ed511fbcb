package models

import "time"

// Property is the marketplace property an offering is issued against.
// The ledger only reads it, except for the tokenized flag set at issuance.
type Property struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	Title     string    `db:"title" json:"title"`
	Country   string    `db:"country" json:"country"`
	Tokenized bool      `db:"tokenized" json:"tokenized"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UserProfile holds the contact details snapshotted into requests and listings.
type UserProfile struct {
	UserID string `db:"user_id" json:"userId"`
	Name   string `db:"name" json:"name"`
	Email  string `db:"email" json:"email"`
	Phone  string `db:"phone" json:"phone"`
}

// TokenOffering is the fixed-supply issuance of ownership tokens for one property.
// Invariant: tokensSold + tokensAvailable == totalTokens.
type TokenOffering struct {
	ID              int64     `db:"id" json:"id"`
	PropertyID      int64     `db:"property_id" json:"propertyId"`
	SellerID        string    `db:"seller_id" json:"sellerId"`
	TotalTokens     int       `db:"total_tokens" json:"totalTokens"`
	TokenPrice      int64     `db:"token_price" json:"tokenPrice"`
	TokensSold      int       `db:"tokens_sold" json:"tokensSold"`
	TokensAvailable int       `db:"tokens_available" json:"tokensAvailable"`
	MinPurchase     int       `db:"min_purchase" json:"minPurchase"`
	MaxPurchase     int       `db:"max_purchase" json:"maxPurchase"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// PurchaseRequest is a buyer's submission for primary-issuance tokens.
// Price is snapshotted at submission so later offering repricing never
// changes what an open request pays.
type PurchaseRequest struct {
	ID              int64      `db:"id" json:"id"`
	OfferingID      int64      `db:"offering_id" json:"offeringId"`
	PropertyID      int64      `db:"property_id" json:"propertyId"`
	BuyerID         string     `db:"buyer_id" json:"buyerId"`
	SellerID        string     `db:"seller_id" json:"sellerId"`
	BuyerName       string     `db:"buyer_name" json:"buyerName"`
	BuyerEmail      string     `db:"buyer_email" json:"buyerEmail"`
	BuyerPhone      string     `db:"buyer_phone" json:"buyerPhone"`
	SellerName      string     `db:"seller_name" json:"sellerName"`
	SellerEmail     string     `db:"seller_email" json:"sellerEmail"`
	TokensRequested int        `db:"tokens_requested" json:"tokensRequested"`
	PricePerToken   int64      `db:"price_per_token" json:"pricePerToken"`
	TotalAmount     int64      `db:"total_amount" json:"totalAmount"`
	PaymentMethod   string     `db:"payment_method" json:"paymentMethod"`
	PaymentProof    string     `db:"payment_proof" json:"paymentProof,omitempty"`
	AgreementSigned bool       `db:"agreement_signed" json:"agreementSigned"`
	Status          string     `db:"status" json:"status"`
	TokensAssigned  int        `db:"tokens_assigned" json:"tokensAssigned"`
	AssignedAt      *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Investment is a buyer's current token position for one offering.
// A buyer holds at most one active Investment per offering; repeat
// purchases increment the existing row.
type Investment struct {
	ID              int64     `db:"id" json:"id"`
	OfferingID      int64     `db:"offering_id" json:"offeringId"`
	PropertyID      int64     `db:"property_id" json:"propertyId"`
	BuyerID         string    `db:"buyer_id" json:"buyerId"`
	TokensOwned     int       `db:"tokens_owned" json:"tokensOwned"`
	TotalInvestment int64     `db:"total_investment" json:"totalInvestment"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnershipPercentage derives the holder's share of the offering supply.
func (inv *Investment) OwnershipPercentage(totalTokens int) float64 {
	if totalTokens <= 0 {
		return 0
	}
	return float64(inv.TokensOwned) / float64(totalTokens) * 100
}

// Listing is a seller's peer-to-peer resale offer backed by one Investment.
type Listing struct {
	ID            int64      `db:"id" json:"id"`
	InvestmentID  int64      `db:"investment_id" json:"investmentId"`
	OfferingID    int64      `db:"offering_id" json:"offeringId"`
	PropertyID    int64      `db:"property_id" json:"propertyId"`
	SellerID      string     `db:"seller_id" json:"sellerId"`
	SellerName    string     `db:"seller_name" json:"sellerName"`
	SellerEmail   string     `db:"seller_email" json:"sellerEmail"`
	TokensForSale int        `db:"tokens_for_sale" json:"tokensForSale"`
	PricePerToken int64      `db:"price_per_token" json:"pricePerToken"`
	TotalPrice    int64      `db:"total_price" json:"totalPrice"`
	Currency      string     `db:"currency" json:"currency"`
	Description   string     `db:"description" json:"description,omitempty"`
	Status        string     `db:"status" json:"status"`
	BuyerID       *string    `db:"buyer_id" json:"buyerId,omitempty"`
	SoldAt        *time.Time `db:"sold_at" json:"soldAt,omitempty"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// Offering statuses
const (
	OfferingStatusDraft     = "draft"
	OfferingStatusActive    = "active"
	OfferingStatusFunded    = "funded"
	OfferingStatusClosed    = "closed"
	OfferingStatusCancelled = "cancelled"
)

// Purchase request statuses
const (
	RequestStatusPending          = "pending"
	RequestStatusApproved         = "approved"
	RequestStatusRejected         = "rejected"
	RequestStatusPaymentPending   = "payment_pending"
	RequestStatusPaymentConfirmed = "payment_confirmed"
	RequestStatusTokensAssigned   = "tokens_assigned"
	RequestStatusCompleted        = "completed"
	RequestStatusCancelled        = "cancelled"
)

// Investment statuses
const (
	InvestmentStatusActive      = "active"
	InvestmentStatusSold        = "sold"
	InvestmentStatusTransferred = "transferred"
)

// Listing statuses
const (
	ListingStatusActive    = "active"
	ListingStatusSold      = "sold"
	ListingStatusCancelled = "cancelled"
	ListingStatusExpired   = "expired"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
