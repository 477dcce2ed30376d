package models

import (
	"context"
	"time"
)

// Navigator is the slice of the session surface entities use for convenience
// navigation, such as an account fetching its own transactions. It is a
// non-owning back reference and never appears in serialized payloads.
type Navigator interface {
	GetTransactions(ctx context.Context, query TransactionQuery) ([]*Transaction, error)
	GetTransaction(ctx context.Context, accountID string, transactionID string) (*Transaction, error)
	GetPayments(ctx context.Context, accountID string) ([]*Payment, error)
	GetPayment(ctx context.Context, accountID string, paymentID string) (*Payment, error)
	GetBank(ctx context.Context, bankID string) (*Bank, error)
}

// TransactionQuery selects transactions. Since and SinceCursor are mutually
// exclusive: Since is a point in time, SinceCursor an opaque transaction ID
// handed back by an earlier listing. When AccountID is set the query is scoped
// to that account's transaction collection.
type TransactionQuery struct {
	AccountID      string
	Since          *time.Time
	SinceCursor    string
	Count          int
	Offset         int
	IncludePending bool
}

// Entity is implemented by every decoded model object. Attach installs the
// session back reference after decoding; it cascades into nested entities.
type Entity interface {
	Attach(nav Navigator)
}
