package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-bankconnect/core"
	"github.com/goliatone/go-bankconnect/models"
	"github.com/goliatone/go-bankconnect/transport"
)

const defaultTransactionCount = 1000

// Session is a user-scoped client authenticated with an access token. All
// resource operations go through it; decoded entities keep a back reference
// to their session for convenience navigation. One request at a time.
type Session struct {
	accessToken string
	config      core.Config
	channel     core.Channel
	logger      core.Logger
}

func NewSession(accessToken string, opts ...Option) (*Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errInvalidArgument("client: session requires an access token")
	}

	s := buildSettings(opts)
	if err := s.resolve("Session", "bankconnect.session"); err != nil {
		return nil, err
	}

	return &Session{
		accessToken: accessToken,
		config:      s.config,
		channel:     s.channel,
		logger:      s.logger,
	}, nil
}

// QueryAPI sends one request to the resource surface. Data is JSON-encoded
// when present.
func (s *Session) QueryAPI(ctx context.Context, path string, method string, data any) (json.RawMessage, error) {
	if s == nil || s.channel == nil {
		return nil, errInvalidArgument("client: session is not initialized")
	}

	var body []byte
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, errInvalidArgument("client: encode request payload: " + err.Error())
		}
		body = encoded
	}

	return transport.Execute(ctx, s.channel, core.TransportRequest{
		Method: method,
		Path:   path,
		Headers: map[string]string{
			"Authorization": "Bearer " + s.accessToken,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
}

// queryObject issues a request and decodes a single entity from the result.
// A null payload decodes to nil.
func queryObject[E any, P interface {
	*E
	models.Entity
}](ctx context.Context, s *Session, path string, method string, data any) (*E, error) {
	raw, err := s.QueryAPI(ctx, path, method, data)
	if err != nil {
		return nil, err
	}
	return models.Decode[E, P](s, raw)
}

// queryCollection issues a request and decodes a named collection from the
// result.
func queryCollection[E any, P interface {
	*E
	models.Entity
}](ctx context.Context, s *Session, path string, collectionKey string) ([]*E, error) {
	raw, err := s.QueryAPI(ctx, path, "GET", nil)
	if err != nil {
		return nil, err
	}
	return models.DecodeCollection[E, P](s, raw, collectionKey)
}

func (s *Session) GetUser(ctx context.Context) (*models.User, error) {
	return queryObject[models.User](ctx, s, "/rest/user", "GET", nil)
}

func (s *Session) ModifyUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errInvalidArgument("client: user is required")
	}
	return queryObject[models.User](ctx, s, "/rest/user", "PUT", user.WritablePayload())
}

func (s *Session) RemoveUser(ctx context.Context) error {
	_, err := s.QueryAPI(ctx, "/rest/user", "DELETE", nil)
	return err
}

func (s *Session) GetAccounts(ctx context.Context) ([]*models.Account, error) {
	return queryCollection[models.Account](ctx, s, "/rest/accounts", "accounts")
}

func (s *Session) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	return queryObject[models.Account](ctx, s, "/rest/accounts/"+url.PathEscape(accountID), "GET", nil)
}

func (s *Session) ModifyAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account == nil {
		return nil, errInvalidArgument("client: account is required")
	}
	if err := requireID(account.AccountID, "account id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(account.AccountID)
	return queryObject[models.Account](ctx, s, path, "PUT", account.WritablePayload())
}

func (s *Session) RemoveAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errInvalidArgument("client: account is required")
	}
	if err := requireID(account.AccountID, "account id"); err != nil {
		return err
	}
	_, err := s.QueryAPI(ctx, "/rest/accounts/"+url.PathEscape(account.AccountID), "DELETE", nil)
	return err
}

func (s *Session) GetAccountBalance(ctx context.Context, accountID string) (*models.AccountBalance, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(accountID) + "/balance"
	return queryObject[models.AccountBalance](ctx, s, path, "GET", nil)
}

func (s *Session) ModifyAccountBalance(ctx context.Context, accountID string, balance *models.AccountBalance) (*models.AccountBalance, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, errInvalidArgument("client: account balance is required")
	}
	path := "/rest/accounts/" + url.PathEscape(accountID) + "/balance"
	return queryObject[models.AccountBalance](ctx, s, path, "PUT", balance.WritablePayload())
}

func (s *Session) GetBank(ctx context.Context, bankID string) (*models.Bank, error) {
	if err := requireID(bankID, "bank id"); err != nil {
		return nil, err
	}
	return queryObject[models.Bank](ctx, s, "/rest/banks/"+url.PathEscape(bankID), "GET", nil)
}

func (s *Session) ModifyBank(ctx context.Context, bank *models.Bank) (*models.Bank, error) {
	if bank == nil {
		return nil, errInvalidArgument("client: bank is required")
	}
	if err := requireID(bank.BankID, "bank id"); err != nil {
		return nil, err
	}
	path := "/rest/banks/" + url.PathEscape(bank.BankID)
	return queryObject[models.Bank](ctx, s, path, "PUT", bank.WritablePayload())
}

// RemoveBankPIN drops the PIN stored for a bank, if any.
func (s *Session) RemoveBankPIN(ctx context.Context, bank *models.Bank) error {
	if bank == nil {
		return errInvalidArgument("client: bank is required")
	}
	if err := requireID(bank.BankID, "bank id"); err != nil {
		return err
	}
	_, err := s.QueryAPI(ctx, "/rest/banks/"+url.PathEscape(bank.BankID)+"/remove_pin", "POST", nil)
	return err
}

// GetTransactions lists transactions, across all accounts or scoped to
// query.AccountID. Since may be a point in time or an opaque cursor from an
// earlier listing; pending transactions are always delivered as a complete
// set when included.
func (s *Session) GetTransactions(ctx context.Context, query models.TransactionQuery) ([]*models.Transaction, error) {
	params := url.Values{}
	switch {
	case query.Since != nil:
		params.Set("since", query.Since.UTC().Format(time.RFC3339))
	case strings.TrimSpace(query.SinceCursor) != "":
		params.Set("since", strings.TrimSpace(query.SinceCursor))
	}
	count := query.Count
	if count <= 0 {
		count = defaultTransactionCount
	}
	params.Set("count", strconv.Itoa(count))
	params.Set("offset", strconv.Itoa(query.Offset))
	if query.IncludePending {
		params.Set("include_pending", "1")
	} else {
		params.Set("include_pending", "0")
	}

	path := "/rest/transactions"
	if accountID := strings.TrimSpace(query.AccountID); accountID != "" {
		path = "/rest/accounts/" + url.PathEscape(accountID) + "/transactions"
	}
	return queryCollection[models.Transaction](ctx, s, path+"?"+params.Encode(), "transactions")
}

func (s *Session) GetTransaction(ctx context.Context, accountID string, transactionID string) (*models.Transaction, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	if err := requireID(transactionID, "transaction id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(accountID) + "/transactions/" + url.PathEscape(transactionID)
	return queryObject[models.Transaction](ctx, s, path, "GET", nil)
}

// GetSyncURL starts a synchronization task and returns the URL the user must
// open to complete it.
func (s *Session) GetSyncURL(ctx context.Context, redirectURI string, state string) (string, error) {
	raw, err := s.QueryAPI(ctx, "/rest/sync", "POST", map[string]any{
		"redirect_uri": redirectURI,
		"state":        state,
	})
	if err != nil {
		return "", err
	}
	return s.taskStartURL(raw)
}

func (s *Session) GetNotifications(ctx context.Context) ([]*models.Notification, error) {
	return queryCollection[models.Notification](ctx, s, "/rest/notifications", "notifications")
}

func (s *Session) GetNotification(ctx context.Context, notificationID string) (*models.Notification, error) {
	if err := requireID(notificationID, "notification id"); err != nil {
		return nil, err
	}
	path := "/rest/notifications/" + url.PathEscape(notificationID)
	return queryObject[models.Notification](ctx, s, path, "GET", nil)
}

func (s *Session) AddNotification(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification == nil {
		return nil, errInvalidArgument("client: notification is required")
	}
	return queryObject[models.Notification](ctx, s, "/rest/notifications", "POST", notification.WritablePayload())
}

func (s *Session) ModifyNotification(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification == nil {
		return nil, errInvalidArgument("client: notification is required")
	}
	if err := requireID(notification.NotificationID, "notification id"); err != nil {
		return nil, err
	}
	path := "/rest/notifications/" + url.PathEscape(notification.NotificationID)
	return queryObject[models.Notification](ctx, s, path, "PUT", notification.WritablePayload())
}

func (s *Session) RemoveNotification(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return errInvalidArgument("client: notification is required")
	}
	if err := requireID(notification.NotificationID, "notification id"); err != nil {
		return err
	}
	_, err := s.QueryAPI(ctx, "/rest/notifications/"+url.PathEscape(notification.NotificationID), "DELETE", nil)
	return err
}

// GetPayments lists payments, across all accounts when accountID is empty.
func (s *Session) GetPayments(ctx context.Context, accountID string) ([]*models.Payment, error) {
	path := "/rest/payments"
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		path = "/rest/accounts/" + url.PathEscape(accountID) + "/payments"
	}
	return queryCollection[models.Payment](ctx, s, path, "payments")
}

func (s *Session) GetPayment(ctx context.Context, accountID string, paymentID string) (*models.Payment, error) {
	if err := requireID(accountID, "account id"); err != nil {
		return nil, err
	}
	if err := requireID(paymentID, "payment id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(accountID) + "/payments/" + url.PathEscape(paymentID)
	return queryObject[models.Payment](ctx, s, path, "GET", nil)
}

func (s *Session) AddPayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment == nil {
		return nil, errInvalidArgument("client: payment is required")
	}
	if err := requireID(payment.AccountID, "account id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(payment.AccountID) + "/payments"
	return queryObject[models.Payment](ctx, s, path, "POST", payment.WritablePayload())
}

func (s *Session) ModifyPayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment == nil {
		return nil, errInvalidArgument("client: payment is required")
	}
	if err := requireID(payment.AccountID, "account id"); err != nil {
		return nil, err
	}
	if err := requireID(payment.PaymentID, "payment id"); err != nil {
		return nil, err
	}
	path := "/rest/accounts/" + url.PathEscape(payment.AccountID) + "/payments/" + url.PathEscape(payment.PaymentID)
	return queryObject[models.Payment](ctx, s, path, "PUT", payment.WritablePayload())
}

func (s *Session) RemovePayment(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return errInvalidArgument("client: payment is required")
	}
	if err := requireID(payment.AccountID, "account id"); err != nil {
		return err
	}
	if err := requireID(payment.PaymentID, "payment id"); err != nil {
		return err
	}
	path := "/rest/accounts/" + url.PathEscape(payment.AccountID) + "/payments/" + url.PathEscape(payment.PaymentID)
	_, err := s.QueryAPI(ctx, path, "DELETE", nil)
	return err
}

// SubmitPayment hands a payment to the bank server and returns the task-start
// URL the user must open to approve it with the selected TAN scheme.
func (s *Session) SubmitPayment(ctx context.Context, payment *models.Payment, tanSchemeID string, state string, redirectURI string) (string, error) {
	if payment == nil {
		return "", errInvalidArgument("client: payment is required")
	}
	if err := requireID(payment.AccountID, "account id"); err != nil {
		return "", err
	}
	if err := requireID(payment.PaymentID, "payment id"); err != nil {
		return "", err
	}

	params := map[string]any{
		"tan_scheme_id": tanSchemeID,
		"state":         state,
	}
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		params["redirect_uri"] = redirectURI
	}

	path := "/rest/accounts/" + url.PathEscape(payment.AccountID) + "/payments/" + url.PathEscape(payment.PaymentID) + "/submit"
	raw, err := s.QueryAPI(ctx, path, "POST", params)
	if err != nil {
		return "", err
	}
	return s.taskStartURL(raw)
}

// taskStartURL extracts task_token from a response and builds the fully
// qualified URL for the out-of-band approval step.
func (s *Session) taskStartURL(raw json.RawMessage) (string, error) {
	var payload struct {
		TaskToken string `json:"task_token"`
	}
	if len(raw) == 0 {
		return "", errMissingTaskToken()
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", errMissingTaskToken()
	}
	if strings.TrimSpace(payload.TaskToken) == "" {
		return "", errMissingTaskToken()
	}
	return s.config.BaseURL() + "/task/start?id=" + url.QueryEscape(payload.TaskToken), nil
}

func requireID(id string, label string) error {
	if strings.TrimSpace(id) == "" {
		return errInvalidArgument("client: " + label + " is required")
	}
	return nil
}

var _ models.Navigator = (*Session)(nil)
