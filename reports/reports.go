// Package reports derives small investment reports from transaction listings:
// day filters on the booking date and extraction of invest/project references
// encoded in transaction purpose strings.
package reports

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-bankconnect/models"
)

// ErrNoPurposeRef reports a purpose string without an invest.project pair.
var ErrNoPurposeRef = errors.New("reports: purpose carries no invest.project reference")

var purposeRefPattern = regexp.MustCompile(`\d+\.\d+`)

// PurposeRef is the invest/project pair embedded in a transaction purpose,
// e.g. "contribution 4711.42" yields {InvestID: "4711", ProjectID: "42"}.
type PurposeRef struct {
	InvestID  string
	ProjectID string
}

// ParsePurposeRef extracts the first invest.project pair from a purpose
// string.
func ParsePurposeRef(purpose string) (PurposeRef, error) {
	match := purposeRefPattern.FindString(purpose)
	if match == "" {
		return PurposeRef{}, ErrNoPurposeRef
	}
	investID, projectID, _ := strings.Cut(match, ".")
	return PurposeRef{InvestID: investID, ProjectID: projectID}, nil
}

// BookedOn keeps the transactions whose booking date falls on the same
// calendar day as day, compared in day's location. Transactions without a
// booking date are dropped.
func BookedOn(transactions []*models.Transaction, day time.Time) []*models.Transaction {
	year, month, dayOfMonth := day.Date()
	kept := make([]*models.Transaction, 0, len(transactions))
	for _, transaction := range transactions {
		if transaction == nil || transaction.BookingDate == nil || transaction.BookingDate.IsZero() {
			continue
		}
		y, m, d := transaction.BookingDate.In(day.Location()).Date()
		if y == year && m == month && d == dayOfMonth {
			kept = append(kept, transaction)
		}
	}
	return kept
}

// TransactionLister is the session slice the report functions consume.
type TransactionLister interface {
	GetTransactions(ctx context.Context, query models.TransactionQuery) ([]*models.Transaction, error)
}

// Entry is one transaction together with its parsed purpose reference.
type Entry struct {
	Transaction *models.Transaction
	Ref         PurposeRef
}

// DailyReport is the outcome of scanning one day of transactions. Skipped
// counts transactions booked that day whose purpose carries no reference.
type DailyReport struct {
	Entries []Entry
	Skipped int
}

// DailyInvestments lists the transactions booked on day whose purpose names
// an invest/project pair. AccountID scopes the listing when set.
func DailyInvestments(ctx context.Context, lister TransactionLister, accountID string, day time.Time) (DailyReport, error) {
	if lister == nil {
		return DailyReport{}, errors.New("reports: transaction lister is required")
	}
	transactions, err := lister.GetTransactions(ctx, models.TransactionQuery{AccountID: accountID})
	if err != nil {
		return DailyReport{}, err
	}

	report := DailyReport{Entries: []Entry{}}
	for _, transaction := range BookedOn(transactions, day) {
		ref, err := ParsePurposeRef(transaction.Purpose)
		if err != nil {
			report.Skipped++
			continue
		}
		report.Entries = append(report.Entries, Entry{Transaction: transaction, Ref: ref})
	}
	return report, nil
}
