package models

import "context"

// Account is one bank account of the user. Name, Owner, and AutoSync are the
// only fields the server accepts back on modify calls.
type Account struct {
	AccountID       string                 `json:"account_id,omitempty"`
	BankID          string                 `json:"bank_id,omitempty"`
	Name            *string                `json:"name,omitempty"`
	Owner           *string                `json:"owner,omitempty"`
	AutoSync        *bool                  `json:"auto_sync,omitempty"`
	AccountNumber   string                 `json:"account_number,omitempty"`
	BankCode        string                 `json:"bank_code,omitempty"`
	BankName        string                 `json:"bank_name,omitempty"`
	Currency        string                 `json:"currency,omitempty"`
	IBAN            string                 `json:"iban,omitempty"`
	BIC             string                 `json:"bic,omitempty"`
	Type            string                 `json:"type,omitempty"`
	Icon            string                 `json:"icon,omitempty"`
	AdditionalIcons map[string]string      `json:"additional_icons,omitempty"`
	Status          *SynchronizationStatus `json:"status,omitempty"`
	Balance         *AccountBalance        `json:"balance,omitempty"`

	nav Navigator
}

func (a *Account) Attach(nav Navigator) {
	if a == nil {
		return
	}
	a.nav = nav
	a.Status.Attach(nav)
	a.Balance.Attach(nav)
}

// WritablePayload returns the subset of fields the server accepts on account
// updates. Unset fields are omitted rather than sent as null.
func (a *Account) WritablePayload() map[string]any {
	payload := map[string]any{}
	if a == nil {
		return payload
	}
	if a.Name != nil {
		payload["name"] = *a.Name
	}
	if a.Owner != nil {
		payload["owner"] = *a.Owner
	}
	if a.AutoSync != nil {
		payload["auto_sync"] = *a.AutoSync
	}
	return payload
}

// Transactions lists this account's transactions. The account scope is forced
// onto the query regardless of what the caller put there.
func (a *Account) Transactions(ctx context.Context, query TransactionQuery) ([]*Transaction, error) {
	if err := a.requireNavigator(); err != nil {
		return nil, err
	}
	query.AccountID = a.AccountID
	return a.nav.GetTransactions(ctx, query)
}

func (a *Account) Transaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if err := a.requireNavigator(); err != nil {
		return nil, err
	}
	return a.nav.GetTransaction(ctx, a.AccountID, transactionID)
}

func (a *Account) Payments(ctx context.Context) ([]*Payment, error) {
	if err := a.requireNavigator(); err != nil {
		return nil, err
	}
	return a.nav.GetPayments(ctx, a.AccountID)
}

func (a *Account) Payment(ctx context.Context, paymentID string) (*Payment, error) {
	if err := a.requireNavigator(); err != nil {
		return nil, err
	}
	return a.nav.GetPayment(ctx, a.AccountID, paymentID)
}

func (a *Account) Bank(ctx context.Context) (*Bank, error) {
	if err := a.requireNavigator(); err != nil {
		return nil, err
	}
	return a.nav.GetBank(ctx, a.BankID)
}

func (a *Account) requireNavigator() error {
	if a == nil || a.nav == nil {
		return errDetachedEntity("Account")
	}
	return nil
}

// AccountBalance is the balance of one bank account. Balance and BalanceDate
// are unset while the bank has not been synchronized yet.
type AccountBalance struct {
	Balance              *float64               `json:"balance,omitempty"`
	BalanceDate          *Timestamp             `json:"balance_date,omitempty"`
	CreditLine           *float64               `json:"credit_line,omitempty"`
	MonthlySpendingLimit *float64               `json:"monthly_spending_limit,omitempty"`
	Status               *SynchronizationStatus `json:"status,omitempty"`

	nav Navigator
}

func (b *AccountBalance) Attach(nav Navigator) {
	if b == nil {
		return
	}
	b.nav = nav
	b.Status.Attach(nav)
}

func (b *AccountBalance) WritablePayload() map[string]any {
	payload := map[string]any{}
	if b == nil {
		return payload
	}
	if b.CreditLine != nil {
		payload["credit_line"] = *b.CreditLine
	}
	if b.MonthlySpendingLimit != nil {
		payload["monthly_spending_limit"] = *b.MonthlySpendingLimit
	}
	return payload
}
