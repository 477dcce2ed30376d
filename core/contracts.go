package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TransportRequest describes one HTTP exchange against the API endpoint. Path
// is relative to the endpoint base URL and may carry a query string.
type TransportRequest struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// Channel is a single-request-at-a-time pinned HTTPS channel. Implementations
// must reject a second concurrent Do with the sdk_error concurrency failure
// without touching the network.
type Channel interface {
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
)

// StoredToken is one persisted version of a user's issued token credentials.
// Exactly one version per user is active at a time.
type StoredToken struct {
	ID               string
	UserID           string
	Version          int
	AccessToken      string
	RefreshToken     string
	Scope            string
	ExpiresAt        *time.Time
	Status           TokenStatus
	RevocationReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SaveTokenInput struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    *time.Time
	Status       TokenStatus
}

type TokenStore interface {
	SaveNewVersion(ctx context.Context, in SaveTokenInput) (StoredToken, error)
	GetActiveByUser(ctx context.Context, userID string) (StoredToken, error)
	RevokeActive(ctx context.Context, userID string, reason string) error
}
