package webhooks

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/models"
)

// Verifier authenticates a delivery before any processing happens. The
// standard implementation compares the delivery's state echo against the
// state stored on the registered notification.
type Verifier interface {
	Verify(ctx context.Context, delivery Delivery) error
}

// NotificationLookup resolves a registered notification by ID, typically
// backed by Session.GetNotification.
type NotificationLookup interface {
	GetNotification(ctx context.Context, notificationID string) (*models.Notification, error)
}

// StateVerifier rejects deliveries whose state echo does not match the state
// registered with the notification. The state acts as a shared secret: only
// the server that received the registration knows it.
type StateVerifier struct {
	Lookup NotificationLookup
}

func (v StateVerifier) Verify(ctx context.Context, delivery Delivery) error {
	if v.Lookup == nil {
		return goerrors.New("webhooks: state verifier requires a notification lookup", goerrors.CategoryInternal)
	}
	notification, err := v.Lookup.GetNotification(ctx, delivery.NotificationID)
	if err != nil {
		return err
	}
	if notification == nil {
		return goerrors.New("webhooks: delivery references an unknown notification", goerrors.CategoryAuth)
	}
	expected := ""
	if notification.State != nil {
		expected = *notification.State
	}
	if expected == "" || delivery.State != expected {
		return goerrors.New("webhooks: delivery state does not match registration", goerrors.CategoryAuth)
	}
	return nil
}

type Handler interface {
	Handle(ctx context.Context, delivery Delivery) error
}

type HandlerFunc func(ctx context.Context, delivery Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, delivery Delivery) error {
	return f(ctx, delivery)
}

type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialRetryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

func (p ExponentialRetryPolicy) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 30 * time.Second
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

// Outcome reports what happened to one delivery.
type Outcome struct {
	Accepted bool
	Deduped  bool
	Metadata map[string]any
}

// Processor runs the full delivery pipeline: verify, claim, handle, settle.
type Processor struct {
	Verifier    Verifier
	Ledger      DeliveryLedger
	Handler     Handler
	ExtractID   DeliveryIDExtractor
	RetryPolicy RetryPolicy
	ClaimLease  time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func NewProcessor(verifier Verifier, ledger DeliveryLedger, handler Handler) *Processor {
	return &Processor{
		Verifier:    verifier,
		Ledger:      ledger,
		Handler:     handler,
		ExtractID:   DefaultDeliveryIDExtractor,
		RetryPolicy: ExponentialRetryPolicy{},
		ClaimLease:  30 * time.Second,
		MaxAttempts: 8,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (p *Processor) Process(ctx context.Context, delivery Delivery) (Outcome, error) {
	if p == nil || p.Handler == nil || p.Ledger == nil {
		return Outcome{}, goerrors.New("webhooks: processor requires handler and ledger", goerrors.CategoryInternal)
	}
	if strings.TrimSpace(delivery.NotificationID) == "" {
		return Outcome{}, goerrors.New("webhooks: notification id is required", goerrors.CategoryBadInput)
	}

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, delivery); err != nil {
			return Outcome{Metadata: map[string]any{"rejected": true}}, err
		}
	}

	extractor := p.ExtractID
	if extractor == nil {
		extractor = DefaultDeliveryIDExtractor
	}
	deliveryID, err := extractor(delivery)
	if err != nil {
		return Outcome{}, err
	}

	record, claimed, err := p.Ledger.Claim(ctx, deliveryID, delivery.Body, p.claimLease())
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		return Outcome{
			Accepted: true,
			Deduped:  true,
			Metadata: map[string]any{
				"delivery_id": record.DeliveryID,
				"status":      record.Status,
			},
		}, nil
	}

	if err := p.Handler.Handle(ctx, delivery); err != nil {
		nextAttemptAt := p.now().Add(p.retryPolicy().NextDelay(record.Attempts))
		_ = p.Ledger.Fail(ctx, record.ClaimID, err, nextAttemptAt, p.maxAttempts())
		return Outcome{}, err
	}

	if err := p.Ledger.Complete(ctx, record.ClaimID); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Accepted: true,
		Metadata: map[string]any{
			"notification_id": delivery.NotificationID,
			"delivery_id":     deliveryID,
		},
	}, nil
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Processor) retryPolicy() RetryPolicy {
	if p != nil && p.RetryPolicy != nil {
		return p.RetryPolicy
	}
	return ExponentialRetryPolicy{}
}

func (p *Processor) claimLease() time.Duration {
	if p != nil && p.ClaimLease > 0 {
		return p.ClaimLease
	}
	return 30 * time.Second
}

func (p *Processor) maxAttempts() int {
	if p != nil && p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return 8
}
