package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-bankconnect/core"
	"github.com/goliatone/go-bankconnect/models"
)

func newTestSession(t *testing.T, channel core.Channel) *Session {
	t.Helper()
	session, err := NewSession("ASHWLIkouP", WithChannel(channel))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func TestNewSessionRequiresAccessToken(t *testing.T) {
	if _, err := NewSession("   ", WithChannel(&recordingChannel{})); err == nil {
		t.Fatal("expected error for missing access token")
	}
}

func TestSessionQueryAPIEnvelope(t *testing.T) {
	channel := &recordingChannel{}
	session := newTestSession(t, channel)

	if _, err := session.QueryAPI(context.Background(), "/rest/user", "PUT", map[string]any{"name": "Jane"}); err != nil {
		t.Fatalf("query api: %v", err)
	}

	req := channel.last(t)
	if req.Headers["Authorization"] != "Bearer ASHWLIkouP" {
		t.Fatalf("unexpected authorization header: %q", req.Headers["Authorization"])
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected content type: %q", req.Headers["Content-Type"])
	}
	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if payload["name"] != "Jane" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGetAccountsDecodesCollection(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body: []byte(`{"accounts":[
			{"account_id":"A1.1","name":"Girokonto"},
			{"account_id":"A1.2","name":"Tagesgeld"}
		]}`),
	}}}
	session := newTestSession(t, channel)

	accounts, err := session.GetAccounts(context.Background())
	if err != nil {
		t.Fatalf("get accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	// Decoded entities can navigate through the session.
	if _, err := accounts[0].Payments(context.Background()); err != nil {
		t.Fatalf("account payments via back reference: %v", err)
	}
	if got := channel.last(t).Path; got != "/rest/accounts/A1.1/payments" {
		t.Fatalf("unexpected navigation path: %s", got)
	}
}

func TestGetAccountAbsentResolvesNil(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{StatusCode: 404, Body: []byte(`{"error":"not_found"}`)}}}
	session := newTestSession(t, channel)

	account, err := session.GetAccount(context.Background(), "A9.9")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account for 404, got %+v", account)
	}
}

func TestModifyAccountSendsWritableSubset(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"account_id":"A1.1","name":"Renamed"}`),
	}}}
	session := newTestSession(t, channel)

	account := &models.Account{
		AccountID: "A1.1",
		BankID:    "B1.1",
		Name:      models.String("Renamed"),
		IBAN:      "DE99012345678910020030",
	}
	if _, err := session.ModifyAccount(context.Background(), account); err != nil {
		t.Fatalf("modify account: %v", err)
	}

	req := channel.last(t)
	if req.Method != "PUT" || req.Path != "/rest/accounts/A1.1" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if payload["name"] != "Renamed" {
		t.Fatalf("expected writable name, got %v", payload)
	}
	if _, ok := payload["iban"]; ok {
		t.Fatalf("read-only field leaked into payload: %v", payload)
	}
	if _, ok := payload["account_id"]; ok {
		t.Fatalf("identifier leaked into payload: %v", payload)
	}
}

func TestGetTransactionsQueryNormalization(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"transactions":[]}`),
	}}}
	session := newTestSession(t, channel)

	since := time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := session.GetTransactions(context.Background(), models.TransactionQuery{
		AccountID: "A1",
		Since:     &since,
		Count:     50,
	})
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}

	req := channel.last(t)
	path, rawQuery, found := strings.Cut(req.Path, "?")
	if !found {
		t.Fatalf("expected query string, got %s", req.Path)
	}
	if path != "/rest/accounts/A1/transactions" {
		t.Fatalf("expected account-scoped path, got %s", path)
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if query.Get("since") != "2013-04-01T00:00:00Z" {
		t.Fatalf("unexpected since: %q", query.Get("since"))
	}
	if query.Get("count") != "50" || query.Get("offset") != "0" || query.Get("include_pending") != "0" {
		t.Fatalf("unexpected normalization: %v", query)
	}
	if query.Has("account_id") {
		t.Fatalf("account_id must be folded into the path, got %v", query)
	}
}

func TestGetTransactionsDefaultsAndCursor(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"transactions":[]}`),
	}}}
	session := newTestSession(t, channel)

	_, err := session.GetTransactions(context.Background(), models.TransactionQuery{
		SinceCursor:    "T99.77",
		IncludePending: true,
	})
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}

	req := channel.last(t)
	path, rawQuery, _ := strings.Cut(req.Path, "?")
	if path != "/rest/transactions" {
		t.Fatalf("expected collection-wide path, got %s", path)
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if query.Get("since") != "T99.77" {
		t.Fatalf("expected opaque cursor passed through, got %q", query.Get("since"))
	}
	if query.Get("count") != "1000" || query.Get("include_pending") != "1" {
		t.Fatalf("unexpected defaults: %v", query)
	}
}

func TestGetSyncURLBuildsTaskStartURL(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"task_token":"T1"}`),
	}}}
	session := newTestSession(t, channel)

	syncURL, err := session.GetSyncURL(context.Background(), "https://example.com/done", "state1")
	if err != nil {
		t.Fatalf("get sync url: %v", err)
	}
	if syncURL != "https://api.figo.me/task/start?id=T1" {
		t.Fatalf("unexpected sync url: %s", syncURL)
	}

	req := channel.last(t)
	if req.Method != "POST" || req.Path != "/rest/sync" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
	var payload map[string]string
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if payload["redirect_uri"] != "https://example.com/done" || payload["state"] != "state1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSubmitPaymentBuildsTaskStartURL(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"task_token":"T1"}`),
	}}}
	session := newTestSession(t, channel)

	payment := &models.Payment{AccountID: "A1.1", PaymentID: "P1"}
	taskURL, err := session.SubmitPayment(context.Background(), payment, "M1", "state1", "")
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}
	if taskURL != "https://api.figo.me/task/start?id=T1" {
		t.Fatalf("unexpected task url: %s", taskURL)
	}

	req := channel.last(t)
	if req.Path != "/rest/accounts/A1.1/payments/P1/submit" {
		t.Fatalf("unexpected path: %s", req.Path)
	}
	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if payload["tan_scheme_id"] != "M1" || payload["state"] != "state1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["redirect_uri"]; ok {
		t.Fatalf("empty redirect uri must be omitted: %v", payload)
	}
}

func TestSubmitPaymentMissingTaskToken(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"status":"ok"}`),
	}}}
	session := newTestSession(t, channel)

	payment := &models.Payment{AccountID: "A1.1", PaymentID: "P1"}
	if _, err := session.SubmitPayment(context.Background(), payment, "M1", "s", ""); err == nil {
		t.Fatal("expected error for missing task token")
	}
}

func TestGetPaymentsCollectionWide(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{
		StatusCode: 200,
		Body:       []byte(`{"payments":[{"payment_id":"P1","account_id":"A1.1"}]}`),
	}}}
	session := newTestSession(t, channel)

	payments, err := session.GetPayments(context.Background(), "")
	if err != nil {
		t.Fatalf("get payments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	if got := channel.last(t).Path; got != "/rest/payments" {
		t.Fatalf("unexpected path: %s", got)
	}
}

func TestRemoveBankPIN(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{StatusCode: 200}}}
	session := newTestSession(t, channel)

	if err := session.RemoveBankPIN(context.Background(), &models.Bank{BankID: "B1.1"}); err != nil {
		t.Fatalf("remove bank pin: %v", err)
	}
	req := channel.last(t)
	if req.Method != "POST" || req.Path != "/rest/banks/B1.1/remove_pin" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.Path)
	}
}

func TestSessionErrorsPropagateUnchanged(t *testing.T) {
	channel := &recordingChannel{responses: []core.TransportResponse{{StatusCode: 401}}}
	session := newTestSession(t, channel)

	_, err := session.GetUser(context.Background())
	if core.ErrorCode(err) != core.ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
