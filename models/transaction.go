package models

// Transaction is one booked or pending bank transaction. Transactions are
// read-only: the server never accepts one back, so there is no writable
// payload.
type Transaction struct {
	TransactionID         string     `json:"transaction_id,omitempty"`
	AccountID             string     `json:"account_id,omitempty"`
	Name                  string     `json:"name,omitempty"`
	AccountNumber         string     `json:"account_number,omitempty"`
	BankCode              string     `json:"bank_code,omitempty"`
	BankName              string     `json:"bank_name,omitempty"`
	Amount                float64    `json:"amount,omitempty"`
	Currency              string     `json:"currency,omitempty"`
	BookingDate           *Timestamp `json:"booking_date,omitempty"`
	ValueDate             *Timestamp `json:"value_date,omitempty"`
	Purpose               string     `json:"purpose,omitempty"`
	Type                  string     `json:"type,omitempty"`
	BookingText           string     `json:"booking_text,omitempty"`
	Booked                bool       `json:"booked,omitempty"`
	CreationTimestamp     *Timestamp `json:"creation_timestamp,omitempty"`
	ModificationTimestamp *Timestamp `json:"modification_timestamp,omitempty"`

	nav Navigator
}

func (t *Transaction) Attach(nav Navigator) {
	if t == nil {
		return
	}
	t.nav = nav
}

// SynchronizationStatus reports the outcome of the last bank server
// synchronization. Read-only.
type SynchronizationStatus struct {
	Code             int        `json:"code,omitempty"`
	Message          string     `json:"message,omitempty"`
	SyncTimestamp    *Timestamp `json:"sync_timestamp,omitempty"`
	SuccessTimestamp *Timestamp `json:"success_timestamp,omitempty"`

	nav Navigator
}

func (s *SynchronizationStatus) Attach(nav Navigator) {
	if s == nil {
		return
	}
	s.nav = nav
}
