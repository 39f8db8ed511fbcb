package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"token-ledger-service/internal/broker"
	"token-ledger-service/internal/models"
	"token-ledger-service/internal/redisclient"
	"token-ledger-service/internal/service"
	"token-ledger-service/internal/store"
)

// NotificationWorker consumes ledger events and delivers the user-facing
// notifications they imply. Delivery failures are logged and the event is
// retried on the next fetch; processed events are deduplicated through the
// processed_events table.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	notifier     service.Notifier
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	store *store.Store,
	notifier service.Notifier,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		notifier: notifier,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseRequested(w.handlePurchaseRequested)
	eventHandler.OnRequestDecision(w.handleRequestDecision)
	eventHandler.OnPaymentConfirmed(w.handlePaymentConfirmed)
	eventHandler.OnTokensAssigned(w.handleTokensAssigned)
	eventHandler.OnTokensTransferred(w.handleTokensTransferred)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

// deliverOnce runs deliver for an event at most once, recording it in the
// processed_events table afterwards.
func (w *NotificationWorker) deliverOnce(ctx context.Context, base models.BaseEvent, deliver func(context.Context) error) error {
	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	if err := deliver(ctx); err != nil {
		log.Printf("Notification delivery failed for event %s: %v", base.EventID, err)
	}

	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (w *NotificationWorker) handlePurchaseRequested(ctx context.Context, event *models.PurchaseRequestedEvent) error {
	return w.deliverOnce(ctx, event.BaseEvent, func(ctx context.Context) error {
		return w.notifier.Notify(ctx, event.SellerID,
			"New purchase request",
			fmt.Sprintf("%s requested %d tokens for a total of %d", event.BuyerName, event.TokensRequested, event.TotalAmount),
			fmt.Sprintf("/requests/%d", event.RequestID))
	})
}

func (w *NotificationWorker) handleRequestDecision(ctx context.Context, event *models.RequestDecisionEvent) error {
	return w.deliverOnce(ctx, event.BaseEvent, func(ctx context.Context) error {
		return w.notifier.Notify(ctx, event.BuyerID,
			fmt.Sprintf("Purchase request %s", event.Decision),
			fmt.Sprintf("The seller has %s your purchase request", event.Decision),
			fmt.Sprintf("/requests/%d", event.RequestID))
	})
}

func (w *NotificationWorker) handlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	return w.deliverOnce(ctx, event.BaseEvent, func(ctx context.Context) error {
		return w.notifier.Notify(ctx, event.BuyerID,
			"Payment confirmed",
			fmt.Sprintf("Your payment of %d has been confirmed", event.Amount),
			fmt.Sprintf("/requests/%d", event.RequestID))
	})
}

func (w *NotificationWorker) handleTokensAssigned(ctx context.Context, event *models.TokensAssignedEvent) error {
	return w.deliverOnce(ctx, event.BaseEvent, func(ctx context.Context) error {
		return w.notifier.Notify(ctx, event.BuyerID,
			"Tokens assigned",
			fmt.Sprintf("%d tokens have been assigned to your investment", event.TokensAssigned),
			fmt.Sprintf("/offerings/%d", event.OfferingID))
	})
}

func (w *NotificationWorker) handleTokensTransferred(ctx context.Context, event *models.TokensTransferredEvent) error {
	return w.deliverOnce(ctx, event.BaseEvent, func(ctx context.Context) error {
		return w.notifier.Notify(ctx, event.SellerID,
			"Tokens sold",
			fmt.Sprintf("%d tokens from your listing sold for %d %s", event.TokensPurchased, event.TotalPrice, event.Currency),
			fmt.Sprintf("/listings/%d", event.ListingID))
	})
}

// ExpiryWorker periodically sweeps listings past their expiry. The Redis
// lock keeps a single instance running the sweep at a time.
type ExpiryWorker struct {
	listingService *service.ListingService
	redis          *redisclient.Client
	interval       time.Duration
	stop           chan struct{}
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(listingService *service.ListingService, redis *redisclient.Client, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		listingService: listingService,
		redis:          redis,
		interval:       interval,
		stop:           make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (w *ExpiryWorker) Start(ctx context.Context) error {
	log.Printf("Starting expiry worker, interval=%s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	acquired, err := w.redis.AcquireLock(ctx, "listing-expiry-sweep", w.interval)
	if err != nil {
		log.Printf("Expiry sweep lock error: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := w.redis.ReleaseLock(ctx, "listing-expiry-sweep"); err != nil {
			log.Printf("Failed to release expiry sweep lock: %v", err)
		}
	}()

	if _, err := w.listingService.ExpireListings(ctx); err != nil {
		log.Printf("Expiry sweep failed: %v", err)
	}
}

// Stop stops the worker
func (w *ExpiryWorker) Stop() error {
	log.Println("Stopping expiry worker...")
	close(w.stop)
	return nil
}
