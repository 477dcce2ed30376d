// Package gojob bridges token refresh work onto a go-job queue.
package gojob

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-bankconnect/refresh"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const (
	JobIDTokenRefresh = "bankconnect.token.refresh"

	paramUserID      = "user_id"
	paramScope       = "scope"
	paramMaxAttempts = "max_attempts"
)

// RefreshTask describes one scheduled token refresh for a user.
type RefreshTask struct {
	UserID      string
	Scope       string
	MaxAttempts int
}

func (t RefreshTask) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("gojob: refresh task requires a user id")
	}
	if t.MaxAttempts < 0 {
		return fmt.Errorf("gojob: refresh task max attempts must not be negative")
	}
	return nil
}

// NewRefreshMessage maps a refresh task onto the go-job execution contract.
// The idempotency key collapses duplicate schedules for the same user while
// an earlier message is still queued.
func NewRefreshMessage(task RefreshTask) (*job.ExecutionMessage, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(task.UserID)
	return &job.ExecutionMessage{
		JobID: JobIDTokenRefresh,
		Parameters: map[string]any{
			paramUserID:      userID,
			paramScope:       strings.TrimSpace(task.Scope),
			paramMaxAttempts: task.MaxAttempts,
		},
		IdempotencyKey: "bankconnect::token_refresh::" + url.PathEscape(userID),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}, nil
}

// TaskFromMessage recovers the refresh task from a dequeued message.
// Numeric parameters may arrive as float64 after a JSON round trip.
func TaskFromMessage(msg *job.ExecutionMessage) (RefreshTask, error) {
	if msg == nil {
		return RefreshTask{}, fmt.Errorf("gojob: execution message is required")
	}
	if msg.JobID != JobIDTokenRefresh {
		return RefreshTask{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	task := RefreshTask{
		UserID:      stringParam(msg.Parameters, paramUserID),
		Scope:       stringParam(msg.Parameters, paramScope),
		MaxAttempts: intParam(msg.Parameters, paramMaxAttempts),
	}
	if err := task.Validate(); err != nil {
		return RefreshTask{}, err
	}
	return task, nil
}

// RetryPolicy bounds queue retry behavior so a failing refresh cannot loop
// forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt clamps nack options for the given attempt number.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Scheduler enqueues refresh tasks.
type Scheduler struct {
	enqueuer queue.Enqueuer
}

func NewScheduler(enqueuer queue.Enqueuer) (*Scheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	return &Scheduler{enqueuer: enqueuer}, nil
}

func (s *Scheduler) Schedule(ctx context.Context, task RefreshTask) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: scheduler is not configured")
	}
	msg, err := NewRefreshMessage(task)
	if err != nil {
		return err
	}
	return s.enqueuer.Enqueue(ctx, msg)
}

// TokenRefreshRunner is the slice of refresh.Runner the worker needs.
type TokenRefreshRunner interface {
	Run(ctx context.Context, userID string, opts refresh.RunOptions) (refresh.RunResult, error)
}

// RefreshWorker consumes refresh deliveries and settles them against the
// queue. Unparseable messages dead-letter immediately; transient failures
// requeue under the retry policy.
type RefreshWorker struct {
	runner TokenRefreshRunner
	policy RetryPolicy
}

func NewRefreshWorker(runner TokenRefreshRunner, policy RetryPolicy) (*RefreshWorker, error) {
	if runner == nil {
		return nil, fmt.Errorf("gojob: refresh runner is required")
	}
	return &RefreshWorker{runner: runner, policy: policy}, nil
}

func (w *RefreshWorker) Process(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if w == nil || w.runner == nil {
		return fmt.Errorf("gojob: refresh worker is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}

	task, err := TaskFromMessage(delivery.Message())
	if err != nil {
		if nackErr := delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}); nackErr != nil {
			return nackErr
		}
		return err
	}

	result, runErr := w.runner.Run(ctx, task.UserID, refresh.RunOptions{MaxAttempts: task.MaxAttempts})
	if runErr == nil || result.Revoked {
		// A revoked chain needs operator action, not another delivery.
		return delivery.Ack(ctx)
	}

	opts := w.policy.NormalizeAttempt(queue.NackOptions{
		Requeue: true,
		Reason:  runErr.Error(),
	}, attempt)
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return nackErr
	}
	return runErr
}

func stringParam(params map[string]any, key string) string {
	if value, ok := params[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func intParam(params map[string]any, key string) int {
	switch value := params[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
