package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bankconnect/models"
)

type stubLookup struct {
	notification *models.Notification
	err          error
}

func (s *stubLookup) GetNotification(context.Context, string) (*models.Notification, error) {
	return s.notification, s.err
}

func registeredNotification(state string) *models.Notification {
	return &models.Notification{
		NotificationID: "N1",
		ObserveKey:     models.String("/rest/transactions"),
		NotifyURI:      models.String("https://example.com/hook"),
		State:          models.String(state),
	}
}

func testDelivery(state string) Delivery {
	body := []byte(`{"notification_id":"N1","observe_key":"/rest/transactions","state":"` + state + `"}`)
	delivery, err := ParseDelivery(body, nil)
	if err != nil {
		panic(err)
	}
	return delivery
}

type countingHandler struct {
	calls int
	err   error
}

func (h *countingHandler) Handle(context.Context, Delivery) error {
	h.calls++
	return h.err
}

func TestParseDelivery(t *testing.T) {
	delivery, err := ParseDelivery([]byte(`{"notification_id":"N1","observe_key":"/rest/transactions","state":"qwe"}`), map[string]string{"X-Delivery-Id": "D1"})
	if err != nil {
		t.Fatalf("parse delivery: %v", err)
	}
	if delivery.NotificationID != "N1" || delivery.ObserveKey != "/rest/transactions" || delivery.State != "qwe" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
	if len(delivery.Body) == 0 {
		t.Fatal("expected raw body to be retained")
	}

	if _, err := ParseDelivery([]byte(`not json`), nil); err == nil {
		t.Fatal("expected error for malformed body")
	}
	if _, err := ParseDelivery([]byte(`{"state":"qwe"}`), nil); err == nil {
		t.Fatal("expected error for missing notification id")
	}
}

func TestDefaultDeliveryIDExtractor(t *testing.T) {
	delivery := testDelivery("qwe")
	delivery.Headers = map[string]string{"X-Delivery-Id": "D42"}
	id, err := DefaultDeliveryIDExtractor(delivery)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "D42" {
		t.Fatalf("expected header id, got %q", id)
	}

	hashed := testDelivery("qwe")
	first, err := DefaultDeliveryIDExtractor(hashed)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, _ := DefaultDeliveryIDExtractor(testDelivery("qwe"))
	if first != second {
		t.Fatalf("identical bodies must hash to the same id: %q vs %q", first, second)
	}
	different, _ := DefaultDeliveryIDExtractor(testDelivery("other"))
	if first == different {
		t.Fatal("different bodies must hash to different ids")
	}
}

func TestStateVerifier(t *testing.T) {
	verifier := StateVerifier{Lookup: &stubLookup{notification: registeredNotification("qwe")}}

	if err := verifier.Verify(context.Background(), testDelivery("qwe")); err != nil {
		t.Fatalf("verify matching state: %v", err)
	}
	if err := verifier.Verify(context.Background(), testDelivery("tampered")); err == nil {
		t.Fatal("expected rejection for mismatched state")
	}

	missing := StateVerifier{Lookup: &stubLookup{}}
	if err := missing.Verify(context.Background(), testDelivery("qwe")); err == nil {
		t.Fatal("expected rejection for unknown notification")
	}
}

func TestProcessorHappyPath(t *testing.T) {
	handler := &countingHandler{}
	processor := NewProcessor(
		StateVerifier{Lookup: &stubLookup{notification: registeredNotification("qwe")}},
		NewMemoryLedger(),
		handler,
	)

	outcome, err := processor.Process(context.Background(), testDelivery("qwe"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !outcome.Accepted || outcome.Deduped {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if handler.calls != 1 {
		t.Fatalf("expected one handler call, got %d", handler.calls)
	}
}

func TestProcessorDedupesRedelivery(t *testing.T) {
	handler := &countingHandler{}
	processor := NewProcessor(nil, NewMemoryLedger(), handler)

	if _, err := processor.Process(context.Background(), testDelivery("qwe")); err != nil {
		t.Fatalf("first process: %v", err)
	}
	outcome, err := processor.Process(context.Background(), testDelivery("qwe"))
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if !outcome.Deduped {
		t.Fatalf("expected dedupe, got %+v", outcome)
	}
	if handler.calls != 1 {
		t.Fatalf("redelivery must not reach the handler, got %d calls", handler.calls)
	}
}

func TestProcessorRejectsTamperedState(t *testing.T) {
	handler := &countingHandler{}
	processor := NewProcessor(
		StateVerifier{Lookup: &stubLookup{notification: registeredNotification("qwe")}},
		NewMemoryLedger(),
		handler,
	)

	if _, err := processor.Process(context.Background(), testDelivery("tampered")); err == nil {
		t.Fatal("expected verification error")
	}
	if handler.calls != 0 {
		t.Fatal("rejected deliveries must not reach the handler")
	}
}

func TestProcessorSchedulesRetryOnHandlerFailure(t *testing.T) {
	ledger := NewMemoryLedger()
	handler := &countingHandler{err: errors.New("downstream unavailable")}
	processor := NewProcessor(nil, ledger, handler)
	processor.RetryPolicy = ExponentialRetryPolicy{Initial: time.Minute}

	delivery := testDelivery("qwe")
	if _, err := processor.Process(context.Background(), delivery); err == nil {
		t.Fatal("expected handler error")
	}

	deliveryID, err := DefaultDeliveryIDExtractor(delivery)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	record, err := ledger.Get(context.Background(), deliveryID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != DeliveryStatusRetryReady {
		t.Fatalf("expected retry_ready, got %s", record.Status)
	}
	if record.NextAttemptAt == nil || !record.NextAttemptAt.After(time.Now()) {
		t.Fatalf("expected future retry time, got %v", record.NextAttemptAt)
	}

	// Not yet due: a new claim is refused.
	outcome, err := processor.Process(context.Background(), delivery)
	if err != nil {
		t.Fatalf("process while backing off: %v", err)
	}
	if !outcome.Deduped {
		t.Fatalf("expected dedupe while retry is pending, got %+v", outcome)
	}
}

func TestProcessorMovesDeliveryToDeadAfterMaxAttempts(t *testing.T) {
	ledger := NewMemoryLedger()
	handler := &countingHandler{err: errors.New("still broken")}
	processor := NewProcessor(nil, ledger, handler)
	processor.RetryPolicy = ExponentialRetryPolicy{Initial: time.Nanosecond, Max: time.Nanosecond}
	processor.MaxAttempts = 2

	delivery := testDelivery("qwe")
	for attempt := 0; attempt < 2; attempt++ {
		if _, err := processor.Process(context.Background(), delivery); err == nil {
			t.Fatal("expected handler error")
		}
		time.Sleep(time.Millisecond)
	}

	deliveryID, _ := DefaultDeliveryIDExtractor(delivery)
	record, err := ledger.Get(context.Background(), deliveryID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != DeliveryStatusDead {
		t.Fatalf("expected dead delivery, got %s", record.Status)
	}

	outcome, err := processor.Process(context.Background(), delivery)
	if err != nil {
		t.Fatalf("process dead delivery: %v", err)
	}
	if !outcome.Deduped || handler.calls != 2 {
		t.Fatalf("dead deliveries must not be retried: %+v, %d calls", outcome, handler.calls)
	}
}

func TestProcessDeliveryCommand(t *testing.T) {
	handler := &countingHandler{}
	processor := NewProcessor(nil, NewMemoryLedger(), handler)
	command := NewProcessDeliveryCommand(processor)

	msg := NotificationReceivedMessage{Delivery: testDelivery("qwe")}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if msg.Type() != TypeNotificationReceived {
		t.Fatalf("unexpected type: %s", msg.Type())
	}
	if err := command.Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("expected one handler call, got %d", handler.calls)
	}

	empty := NotificationReceivedMessage{}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
