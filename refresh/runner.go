// Package refresh keeps stored token credentials alive: it exchanges the
// active refresh token for fresh credentials with bounded retries and marks
// the stored token revoked when the server says the grant is gone for good.
package refresh

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-bankconnect/client"
	"github.com/goliatone/go-bankconnect/core"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
)

// TokenRefresher exchanges a refresh token for new credentials. Implemented
// by client.Connection.
type TokenRefresher interface {
	ObtainAccessToken(ctx context.Context, token string, scope string) (*client.TokenCredentials, error)
}

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	limit := s.Max
	if limit <= 0 {
		limit = defaultMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

type RunResult struct {
	Attempts int
	Revoked  bool
}

type RunOptions struct {
	MaxAttempts int
}

// Runner refreshes one user's stored credentials at a time.
type Runner struct {
	refresher TokenRefresher
	store     core.TokenStore
	scheduler BackoffScheduler
	logger    core.Logger
}

type RunnerOption func(*Runner)

func WithBackoffScheduler(scheduler BackoffScheduler) RunnerOption {
	return func(r *Runner) {
		r.scheduler = scheduler
	}
}

func WithLogger(logger core.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(refresher TokenRefresher, store core.TokenStore, opts ...RunnerOption) (*Runner, error) {
	if refresher == nil {
		return nil, goerrors.New("refresh: token refresher is required", goerrors.CategoryBadInput)
	}
	if store == nil {
		return nil, goerrors.New("refresh: token store is required", goerrors.CategoryBadInput)
	}
	runner := &Runner{
		refresher: refresher,
		store:     store,
		scheduler: ExponentialBackoffScheduler{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(runner)
	}
	if runner.logger == nil {
		_, logger := glog.Resolve("bankconnect.refresh", nil, nil)
		runner.logger = glog.Ensure(logger)
	}
	return runner, nil
}

// Run refreshes the active token of one user. Transient failures are retried
// with backoff; an auth-level rejection revokes the stored token and stops
// immediately, since retrying a dead grant only burns rate limit.
func (r *Runner) Run(ctx context.Context, userID string, opts RunOptions) (RunResult, error) {
	if r == nil {
		return RunResult{}, goerrors.New("refresh: runner is nil", goerrors.CategoryInternal)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return RunResult{}, goerrors.New("refresh: user id is required", goerrors.CategoryBadInput)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	stored, err := r.store.GetActiveByUser(ctx, userID)
	if err != nil {
		return RunResult{}, err
	}
	if strings.TrimSpace(stored.RefreshToken) == "" {
		return RunResult{}, goerrors.New("refresh: stored token has no refresh token", goerrors.CategoryOperation)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		credentials, err := r.refresher.ObtainAccessToken(ctx, stored.RefreshToken, stored.Scope)
		if err == nil && credentials != nil {
			if err := r.persist(ctx, stored, credentials); err != nil {
				return RunResult{Attempts: attempt}, err
			}
			r.log(ctx, userID).Info("token refreshed")
			return RunResult{Attempts: attempt}, nil
		}
		if err == nil {
			err = goerrors.New("refresh: token endpoint returned no credentials", goerrors.CategoryExternal)
		}
		lastErr = err

		if isUnrecoverable(err) {
			revokeErr := r.store.RevokeActive(ctx, userID, "reauthorization required")
			if revokeErr != nil {
				r.log(ctx, userID).Error("revoke after failed refresh: " + revokeErr.Error())
			}
			r.log(ctx, userID).Warn("token refresh rejected, reauthorization required")
			return RunResult{Attempts: attempt, Revoked: true}, err
		}
		if attempt == maxAttempts {
			break
		}
		if waitErr := waitWithContext(ctx, r.scheduler.NextDelay(attempt)); waitErr != nil {
			return RunResult{Attempts: attempt}, waitErr
		}
	}

	return RunResult{Attempts: maxAttempts}, lastErr
}

func (r *Runner) persist(ctx context.Context, previous core.StoredToken, credentials *client.TokenCredentials) error {
	in := core.SaveTokenInput{
		UserID:       previous.UserID,
		AccessToken:  credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
		Scope:        previous.Scope,
		Status:       core.TokenStatusActive,
	}
	if in.RefreshToken == "" {
		// Some exchanges rotate only the access token.
		in.RefreshToken = previous.RefreshToken
	}
	if credentials.Expires > 0 {
		expiresAt := time.Now().UTC().Add(time.Duration(credentials.Expires) * time.Second)
		in.ExpiresAt = &expiresAt
	}
	_, err := r.store.SaveNewVersion(ctx, in)
	return err
}

func (r *Runner) log(ctx context.Context, userID string) core.Logger {
	logger := r.logger
	if logger == nil {
		return glog.Nop()
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(map[string]any{"user_id": userID})
	}
	return logger
}

// isUnrecoverable reports errors no retry can fix: the server rejected the
// grant itself rather than the request.
func isUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return true
		}
		switch strings.TrimSpace(strings.ToLower(richErr.TextCode)) {
		case core.ErrorCodeUnauthorized, core.ErrorCodeForbidden:
			return true
		}
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
