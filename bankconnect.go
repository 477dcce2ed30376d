// Package bankconnect is the top-level entry point for the connect API
// client. It re-exports the core configuration surface and the two call
// surfaces: Connection for unauthenticated credential flows and Session for
// token-scoped resource access.
package bankconnect

import (
	"github.com/goliatone/go-bankconnect/client"
	"github.com/goliatone/go-bankconnect/core"
	"github.com/goliatone/go-bankconnect/models"
)

type Config = core.Config

type Channel = core.Channel
type Logger = core.Logger
type MetricsRecorder = core.MetricsRecorder

type TokenStore = core.TokenStore
type StoredToken = core.StoredToken
type SaveTokenInput = core.SaveTokenInput
type TokenStatus = core.TokenStatus

type Connection = client.Connection
type Session = client.Session
type TokenCredentials = client.TokenCredentials
type CreateUserOptions = client.CreateUserOptions
type CreateUserResult = client.CreateUserResult
type Option = client.Option

type Account = models.Account
type AccountBalance = models.AccountBalance
type Bank = models.Bank
type Notification = models.Notification
type Payment = models.Payment
type SynchronizationStatus = models.SynchronizationStatus
type Transaction = models.Transaction
type TransactionQuery = models.TransactionQuery
type User = models.User
type Timestamp = models.Timestamp

const (
	TokenStatusActive  = core.TokenStatusActive
	TokenStatusRevoked = core.TokenStatusRevoked
)

var (
	WithConfig          = client.WithConfig
	WithChannel         = client.WithChannel
	WithLogger          = client.WithLogger
	WithMetricsRecorder = client.WithMetricsRecorder
	WithRedirectURI     = client.WithRedirectURI
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewConnection(clientID string, clientSecret string, opts ...Option) (*Connection, error) {
	return client.NewConnection(clientID, clientSecret, opts...)
}

func NewSession(accessToken string, opts ...Option) (*Session, error) {
	return client.NewSession(accessToken, opts...)
}
