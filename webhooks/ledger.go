package webhooks

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusProcessed  = "processed"
	DeliveryStatusRetryReady = "retry_ready"
	DeliveryStatusDead       = "dead"
)

type DeliveryRecord struct {
	ID            string
	ClaimID       string
	DeliveryID    string
	Status        string
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	LeaseUntil    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeliveryLedger tracks which callbacks have been seen. Claim is the dedupe
// gate: it returns claimed=false when the delivery is already processed or
// currently leased to another worker.
type DeliveryLedger interface {
	Claim(ctx context.Context, deliveryID string, payload []byte, lease time.Duration) (DeliveryRecord, bool, error)
	Get(ctx context.Context, deliveryID string) (DeliveryRecord, error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, nextAttemptAt time.Time, maxAttempts int) error
}

// MemoryLedger is an in-process DeliveryLedger for single-instance receivers
// and tests.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]*DeliveryRecord
	byClaim map[string]string
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: map[string]*DeliveryRecord{},
		byClaim: map[string]string{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLedger) Claim(_ context.Context, deliveryID string, _ []byte, lease time.Duration) (DeliveryRecord, bool, error) {
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return DeliveryRecord{}, false, goerrors.New("webhooks: delivery id is required", goerrors.CategoryBadInput)
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	record, ok := l.records[deliveryID]
	if ok {
		switch record.Status {
		case DeliveryStatusProcessed, DeliveryStatusDead:
			return *record, false, nil
		case DeliveryStatusProcessing:
			if record.LeaseUntil != nil && record.LeaseUntil.After(now) {
				return *record, false, nil
			}
		case DeliveryStatusRetryReady:
			if record.NextAttemptAt != nil && record.NextAttemptAt.After(now) {
				return *record, false, nil
			}
		}
	} else {
		record = &DeliveryRecord{
			ID:         uuid.NewString(),
			DeliveryID: deliveryID,
			CreatedAt:  now,
		}
		l.records[deliveryID] = record
	}

	delete(l.byClaim, record.ClaimID)
	record.ClaimID = uuid.NewString()
	record.Status = DeliveryStatusProcessing
	record.Attempts++
	leaseUntil := now.Add(lease)
	record.LeaseUntil = &leaseUntil
	record.NextAttemptAt = nil
	record.UpdatedAt = now
	l.byClaim[record.ClaimID] = deliveryID
	return *record, true, nil
}

func (l *MemoryLedger) Get(_ context.Context, deliveryID string) (DeliveryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[strings.TrimSpace(deliveryID)]
	if !ok {
		return DeliveryRecord{}, goerrors.New("webhooks: delivery not found", goerrors.CategoryNotFound)
	}
	return *record, nil
}

func (l *MemoryLedger) Complete(_ context.Context, claimID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, err := l.byClaimLocked(claimID)
	if err != nil {
		return err
	}
	record.Status = DeliveryStatusProcessed
	record.LeaseUntil = nil
	record.NextAttemptAt = nil
	record.UpdatedAt = l.now()
	return nil
}

func (l *MemoryLedger) Fail(_ context.Context, claimID string, cause error, nextAttemptAt time.Time, maxAttempts int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, err := l.byClaimLocked(claimID)
	if err != nil {
		return err
	}
	if cause != nil {
		record.LastError = cause.Error()
	}
	record.LeaseUntil = nil
	record.UpdatedAt = l.now()
	if maxAttempts > 0 && record.Attempts >= maxAttempts {
		record.Status = DeliveryStatusDead
		record.NextAttemptAt = nil
		return nil
	}
	record.Status = DeliveryStatusRetryReady
	next := nextAttemptAt.UTC()
	record.NextAttemptAt = &next
	return nil
}

func (l *MemoryLedger) byClaimLocked(claimID string) (*DeliveryRecord, error) {
	deliveryID, ok := l.byClaim[strings.TrimSpace(claimID)]
	if !ok {
		return nil, goerrors.New("webhooks: unknown claim", goerrors.CategoryNotFound)
	}
	return l.records[deliveryID], nil
}
