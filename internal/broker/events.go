package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"token-ledger-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing ledger domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOfferingCreated publishes OfferingCreated event
func (ep *EventPublisher) PublishOfferingCreated(ctx context.Context, event *models.OfferingCreatedEvent) error {
	key := fmt.Sprintf("offering-%d", event.OfferingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOfferingFunded publishes OfferingFunded event
func (ep *EventPublisher) PublishOfferingFunded(ctx context.Context, event *models.OfferingFundedEvent) error {
	key := fmt.Sprintf("offering-%d", event.OfferingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPurchaseRequested publishes PurchaseRequested event
func (ep *EventPublisher) PublishPurchaseRequested(ctx context.Context, event *models.PurchaseRequestedEvent) error {
	key := fmt.Sprintf("offering-%d", event.OfferingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishRequestDecision publishes RequestApproved/RequestRejected events
func (ep *EventPublisher) PublishRequestDecision(ctx context.Context, event *models.RequestDecisionEvent) error {
	key := fmt.Sprintf("request-%d", event.RequestID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentConfirmed publishes PaymentConfirmed event
func (ep *EventPublisher) PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	key := fmt.Sprintf("request-%d", event.RequestID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTokensAssigned publishes TokensAssigned event
func (ep *EventPublisher) PublishTokensAssigned(ctx context.Context, event *models.TokensAssignedEvent) error {
	key := fmt.Sprintf("offering-%d", event.OfferingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingCreated publishes ListingCreated event
func (ep *EventPublisher) PublishListingCreated(ctx context.Context, event *models.ListingCreatedEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListingCancelled publishes ListingCancelled event
func (ep *EventPublisher) PublishListingCancelled(ctx context.Context, event *models.ListingCancelledEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTokensTransferred publishes TokensTransferred event
func (ep *EventPublisher) PublishTokensTransferred(ctx context.Context, event *models.TokensTransferredEvent) error {
	key := fmt.Sprintf("listing-%d", event.ListingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming ledger events to registered handlers
type EventHandler struct {
	onPurchaseRequested func(context.Context, *models.PurchaseRequestedEvent) error
	onRequestDecision   func(context.Context, *models.RequestDecisionEvent) error
	onPaymentConfirmed  func(context.Context, *models.PaymentConfirmedEvent) error
	onTokensAssigned    func(context.Context, *models.TokensAssignedEvent) error
	onTokensTransferred func(context.Context, *models.TokensTransferredEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPurchaseRequested registers a handler for PurchaseRequested events
func (eh *EventHandler) OnPurchaseRequested(handler func(context.Context, *models.PurchaseRequestedEvent) error) {
	eh.onPurchaseRequested = handler
}

// OnRequestDecision registers a handler for approval/rejection events
func (eh *EventHandler) OnRequestDecision(handler func(context.Context, *models.RequestDecisionEvent) error) {
	eh.onRequestDecision = handler
}

// OnPaymentConfirmed registers a handler for PaymentConfirmed events
func (eh *EventHandler) OnPaymentConfirmed(handler func(context.Context, *models.PaymentConfirmedEvent) error) {
	eh.onPaymentConfirmed = handler
}

// OnTokensAssigned registers a handler for TokensAssigned events
func (eh *EventHandler) OnTokensAssigned(handler func(context.Context, *models.TokensAssignedEvent) error) {
	eh.onTokensAssigned = handler
}

// OnTokensTransferred registers a handler for TokensTransferred events
func (eh *EventHandler) OnTokensTransferred(handler func(context.Context, *models.TokensTransferredEvent) error) {
	eh.onTokensTransferred = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypePurchaseRequested:
		if eh.onPurchaseRequested != nil {
			var event models.PurchaseRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseRequested event: %w", err)
			}
			return eh.onPurchaseRequested(ctx, &event)
		}

	case models.EventTypeRequestApproved, models.EventTypeRequestRejected:
		if eh.onRequestDecision != nil {
			var event models.RequestDecisionEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal RequestDecision event: %w", err)
			}
			return eh.onRequestDecision(ctx, &event)
		}

	case models.EventTypePaymentConfirmed:
		if eh.onPaymentConfirmed != nil {
			var event models.PaymentConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentConfirmed event: %w", err)
			}
			return eh.onPaymentConfirmed(ctx, &event)
		}

	case models.EventTypeTokensAssigned:
		if eh.onTokensAssigned != nil {
			var event models.TokensAssignedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TokensAssigned event: %w", err)
			}
			return eh.onTokensAssigned(ctx, &event)
		}

	case models.EventTypeTokensTransferred:
		if eh.onTokensTransferred != nil {
			var event models.TokensTransferredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TokensTransferred event: %w", err)
			}
			return eh.onTokensTransferred(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
