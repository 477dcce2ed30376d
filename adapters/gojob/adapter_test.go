package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bankconnect/refresh"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

func TestRefreshMessageRoundTrip(t *testing.T) {
	msg, err := NewRefreshMessage(RefreshTask{
		UserID:      "usr 1",
		Scope:       "accounts=ro",
		MaxAttempts: 4,
	})
	if err != nil {
		t.Fatalf("new refresh message: %v", err)
	}
	if msg.JobID != JobIDTokenRefresh {
		t.Fatalf("expected job id %q, got %q", JobIDTokenRefresh, msg.JobID)
	}
	if msg.IdempotencyKey != "bankconnect::token_refresh::usr%201" {
		t.Fatalf("unexpected idempotency key %q", msg.IdempotencyKey)
	}

	task, err := TaskFromMessage(msg)
	if err != nil {
		t.Fatalf("task from message: %v", err)
	}
	if task.UserID != "usr 1" || task.Scope != "accounts=ro" || task.MaxAttempts != 4 {
		t.Fatalf("unexpected round trip task %+v", task)
	}
}

func TestTaskFromMessageToleratesJSONNumbers(t *testing.T) {
	task, err := TaskFromMessage(&job.ExecutionMessage{
		JobID: JobIDTokenRefresh,
		Parameters: map[string]any{
			"user_id":      "usr_1",
			"max_attempts": float64(3),
		},
	})
	if err != nil {
		t.Fatalf("task from message: %v", err)
	}
	if task.MaxAttempts != 3 {
		t.Fatalf("expected max attempts 3, got %d", task.MaxAttempts)
	}
}

func TestTaskFromMessageRejectsForeignJob(t *testing.T) {
	if _, err := TaskFromMessage(&job.ExecutionMessage{JobID: "other.job"}); err == nil {
		t.Fatalf("expected error for foreign job id")
	}
	if _, err := TaskFromMessage(&job.ExecutionMessage{JobID: JobIDTokenRefresh}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
}

func TestSchedulerEnqueuesMappedTask(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	scheduler, err := NewScheduler(enqueuer)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	if err := scheduler.Schedule(context.Background(), RefreshTask{UserID: "usr_1"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDTokenRefresh {
		t.Fatalf("expected mapped refresh message")
	}
	if enqueuer.last.Parameters["user_id"] != "usr_1" {
		t.Fatalf("expected user id parameter, got %v", enqueuer.last.Parameters)
	}
}

func TestRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	}

	bounded := policy.NormalizeAttempt(queue.NackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  "transient",
	}, 1)
	if bounded.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", bounded.Delay)
	}
	if !bounded.Requeue {
		t.Fatalf("expected requeue before max attempts")
	}

	final := policy.NormalizeAttempt(queue.NackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still failing",
	}, 3)
	if final.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !final.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

func TestRefreshWorkerAcksSuccess(t *testing.T) {
	runner := &stubRunner{}
	worker, err := NewRefreshWorker(runner, RetryPolicy{})
	if err != nil {
		t.Fatalf("new refresh worker: %v", err)
	}

	msg, _ := NewRefreshMessage(RefreshTask{UserID: "usr_1", MaxAttempts: 2})
	delivery := &stubQueueDelivery{msg: msg}

	if err := worker.Process(context.Background(), delivery, 1); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected successful run to ack delivery")
	}
	if runner.lastUser != "usr_1" || runner.lastOpts.MaxAttempts != 2 {
		t.Fatalf("expected runner invocation with task settings, got %q %+v", runner.lastUser, runner.lastOpts)
	}
}

func TestRefreshWorkerAcksRevokedChain(t *testing.T) {
	runner := &stubRunner{
		result: refresh.RunResult{Attempts: 1, Revoked: true},
		err:    errors.New("unauthorized"),
	}
	worker, err := NewRefreshWorker(runner, RetryPolicy{MaxAttempts: 5})
	if err != nil {
		t.Fatalf("new refresh worker: %v", err)
	}

	msg, _ := NewRefreshMessage(RefreshTask{UserID: "usr_1"})
	delivery := &stubQueueDelivery{msg: msg}

	if err := worker.Process(context.Background(), delivery, 1); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected revoked chain to ack instead of retrying")
	}
}

func TestRefreshWorkerNacksTransientFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("server connection timed out")}
	worker, err := NewRefreshWorker(runner, RetryPolicy{MaxAttempts: 3, DeadLetterOnMax: true})
	if err != nil {
		t.Fatalf("new refresh worker: %v", err)
	}

	msg, _ := NewRefreshMessage(RefreshTask{UserID: "usr_1"})
	delivery := &stubQueueDelivery{msg: msg}

	if err := worker.Process(context.Background(), delivery, 1); err == nil {
		t.Fatalf("expected run error to propagate")
	}
	if delivery.acked {
		t.Fatalf("expected transient failure to nack, not ack")
	}
	if !delivery.nackOpts.Requeue {
		t.Fatalf("expected requeue before max attempts")
	}

	if err := worker.Process(context.Background(), delivery, 3); err == nil {
		t.Fatalf("expected run error to propagate at max attempts")
	}
	if delivery.nackOpts.Requeue || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %+v", delivery.nackOpts)
	}
}

func TestRefreshWorkerDeadLettersMalformedMessage(t *testing.T) {
	runner := &stubRunner{}
	worker, err := NewRefreshWorker(runner, RetryPolicy{})
	if err != nil {
		t.Fatalf("new refresh worker: %v", err)
	}

	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "other.job"}}
	if err := worker.Process(context.Background(), delivery, 1); err == nil {
		t.Fatalf("expected error for malformed message")
	}
	if !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected malformed message to dead letter")
	}
	if runner.calls != 0 {
		t.Fatalf("expected runner not to run for malformed message")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type stubRunner struct {
	calls    int
	lastUser string
	lastOpts refresh.RunOptions
	result   refresh.RunResult
	err      error
}

func (s *stubRunner) Run(_ context.Context, userID string, opts refresh.RunOptions) (refresh.RunResult, error) {
	s.calls++
	s.lastUser = userID
	s.lastOpts = opts
	return s.result, s.err
}
