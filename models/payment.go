package models

// Payment is a payment order on one of the user's accounts. The writable
// fields describe the counterparty and the order itself; everything else is
// server-assigned metadata.
type Payment struct {
	PaymentID             string            `json:"payment_id,omitempty"`
	AccountID             string            `json:"account_id,omitempty"`
	Type                  *string           `json:"type,omitempty"`
	Name                  *string           `json:"name,omitempty"`
	AccountNumber         *string           `json:"account_number,omitempty"`
	BankCode              *string           `json:"bank_code,omitempty"`
	BankName              string            `json:"bank_name,omitempty"`
	BankIcon              string            `json:"bank_icon,omitempty"`
	BankAdditionalIcons   map[string]string `json:"bank_additional_icons,omitempty"`
	Amount                *float64          `json:"amount,omitempty"`
	Currency              *string           `json:"currency,omitempty"`
	Purpose               *string           `json:"purpose,omitempty"`
	SubmissionTimestamp   *Timestamp        `json:"submission_timestamp,omitempty"`
	CreationTimestamp     *Timestamp        `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp        `json:"modification_timestamp,omitempty"`
	TransactionID         string            `json:"transaction_id,omitempty"`

	nav Navigator
}

func (p *Payment) Attach(nav Navigator) {
	if p == nil {
		return
	}
	p.nav = nav
}

func (p *Payment) WritablePayload() map[string]any {
	payload := map[string]any{}
	if p == nil {
		return payload
	}
	if p.Type != nil {
		payload["type"] = *p.Type
	}
	if p.Name != nil {
		payload["name"] = *p.Name
	}
	if p.AccountNumber != nil {
		payload["account_number"] = *p.AccountNumber
	}
	if p.BankCode != nil {
		payload["bank_code"] = *p.BankCode
	}
	if p.Amount != nil {
		payload["amount"] = *p.Amount
	}
	if p.Currency != nil {
		payload["currency"] = *p.Currency
	}
	if p.Purpose != nil {
		payload["purpose"] = *p.Purpose
	}
	return payload
}
