package models

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type stubNavigator struct {
	transactionQueries []TransactionQuery
	paymentsAccountID  string
	bankID             string
}

func (s *stubNavigator) GetTransactions(_ context.Context, query TransactionQuery) ([]*Transaction, error) {
	s.transactionQueries = append(s.transactionQueries, query)
	return []*Transaction{}, nil
}

func (s *stubNavigator) GetTransaction(context.Context, string, string) (*Transaction, error) {
	return nil, nil
}

func (s *stubNavigator) GetPayments(_ context.Context, accountID string) ([]*Payment, error) {
	s.paymentsAccountID = accountID
	return []*Payment{}, nil
}

func (s *stubNavigator) GetPayment(context.Context, string, string) (*Payment, error) {
	return nil, nil
}

func (s *stubNavigator) GetBank(_ context.Context, bankID string) (*Bank, error) {
	s.bankID = bankID
	return &Bank{BankID: bankID}, nil
}

const accountPayload = `{
	"account_id": "A1.1",
	"bank_id": "B1.1",
	"name": "Girokonto",
	"owner": "figo",
	"auto_sync": false,
	"currency": "EUR",
	"status": {
		"code": -1,
		"message": "all fine",
		"sync_timestamp": "2013-09-11T00:00:00.000Z",
		"success_timestamp": "2013-09-11T00:00:00.000Z"
	},
	"balance": {
		"balance": 3250.31,
		"balance_date": "2013-09-11T00:00:00.000Z",
		"credit_line": 0,
		"monthly_spending_limit": 0
	}
}`

func TestDecodePromotesNestedEntities(t *testing.T) {
	nav := &stubNavigator{}

	account, err := Decode[Account](nav, json.RawMessage(accountPayload))
	if err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.AccountID != "A1.1" {
		t.Fatalf("unexpected account id: %s", account.AccountID)
	}
	if account.Status == nil || account.Status.Message != "all fine" {
		t.Fatalf("expected promoted synchronization status, got %+v", account.Status)
	}
	expectedSync := time.Date(2013, 9, 11, 0, 0, 0, 0, time.UTC)
	if account.Status.SyncTimestamp == nil || !account.Status.SyncTimestamp.Time.Equal(expectedSync) {
		t.Fatalf("expected coerced sync timestamp, got %+v", account.Status.SyncTimestamp)
	}
	if account.Balance == nil || account.Balance.Balance == nil || *account.Balance.Balance != 3250.31 {
		t.Fatalf("expected promoted balance, got %+v", account.Balance)
	}
	if account.Balance.BalanceDate == nil || !account.Balance.BalanceDate.Time.Equal(expectedSync) {
		t.Fatalf("expected coerced balance date, got %+v", account.Balance.BalanceDate)
	}
}

func TestDecodeNullPayloadYieldsNil(t *testing.T) {
	account, err := Decode[Account](nil, nil)
	if err != nil {
		t.Fatalf("decode nil payload: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil entity, got %+v", account)
	}

	account, err = Decode[Account](nil, json.RawMessage("null"))
	if err != nil {
		t.Fatalf("decode null payload: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil entity, got %+v", account)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	if _, err := Decode[Account](nil, json.RawMessage(`{"name":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeCollection(t *testing.T) {
	payload := json.RawMessage(`{
		"accounts": [
			{"account_id": "A1.1", "name": "Girokonto"},
			{"account_id": "A1.2", "name": "Tagesgeld"}
		]
	}`)

	accounts, err := DecodeCollection[Account](&stubNavigator{}, payload, "accounts")
	if err != nil {
		t.Fatalf("decode collection: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[1].AccountID != "A1.2" {
		t.Fatalf("unexpected second account: %+v", accounts[1])
	}
}

func TestDecodeCollectionMissingKey(t *testing.T) {
	accounts, err := DecodeCollection[Account](nil, json.RawMessage(`{}`), "accounts")
	if err != nil {
		t.Fatalf("decode collection: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(accounts))
	}

	accounts, err = DecodeCollection[Account](nil, nil, "accounts")
	if err != nil {
		t.Fatalf("decode nil collection: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(accounts))
	}
}

func TestAccountNavigationUsesSessionBackReference(t *testing.T) {
	nav := &stubNavigator{}
	account, err := Decode[Account](nav, json.RawMessage(accountPayload))
	if err != nil {
		t.Fatalf("decode account: %v", err)
	}

	if _, err := account.Transactions(context.Background(), TransactionQuery{Count: 50}); err != nil {
		t.Fatalf("account transactions: %v", err)
	}
	if len(nav.transactionQueries) != 1 {
		t.Fatalf("expected one transaction query, got %d", len(nav.transactionQueries))
	}
	if nav.transactionQueries[0].AccountID != "A1.1" {
		t.Fatalf("expected account scope forced onto query, got %q", nav.transactionQueries[0].AccountID)
	}
	if nav.transactionQueries[0].Count != 50 {
		t.Fatalf("expected caller count preserved, got %d", nav.transactionQueries[0].Count)
	}

	if _, err := account.Payments(context.Background()); err != nil {
		t.Fatalf("account payments: %v", err)
	}
	if nav.paymentsAccountID != "A1.1" {
		t.Fatalf("expected payments scoped to account, got %q", nav.paymentsAccountID)
	}

	bank, err := account.Bank(context.Background())
	if err != nil {
		t.Fatalf("account bank: %v", err)
	}
	if bank.BankID != "B1.1" || nav.bankID != "B1.1" {
		t.Fatalf("expected bank lookup by bank id, got %+v", bank)
	}
}

func TestDetachedAccountNavigationFails(t *testing.T) {
	var account Account
	if err := json.Unmarshal([]byte(accountPayload), &account); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := account.Transactions(context.Background(), TransactionQuery{}); err == nil {
		t.Fatal("expected detached entity error")
	}
}

func TestNavigatorReferenceNeverSerialized(t *testing.T) {
	nav := &stubNavigator{}
	account, err := Decode[Account](nav, json.RawMessage(accountPayload))
	if err != nil {
		t.Fatalf("decode account: %v", err)
	}
	out, err := json.Marshal(account)
	if err != nil {
		t.Fatalf("marshal account: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	for key := range round {
		if key == "nav" || key == "session" {
			t.Fatalf("back reference leaked into payload: %s", key)
		}
	}
}
