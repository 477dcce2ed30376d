package models

// Notification is a registered webhook or email hook. ObserveKey selects the
// events to watch, NotifyURI receives the callbacks, and State is echoed back
// verbatim in every delivery.
type Notification struct {
	NotificationID string  `json:"notification_id,omitempty"`
	ObserveKey     *string `json:"observe_key,omitempty"`
	NotifyURI      *string `json:"notify_uri,omitempty"`
	State          *string `json:"state,omitempty"`

	nav Navigator
}

func (n *Notification) Attach(nav Navigator) {
	if n == nil {
		return
	}
	n.nav = nav
}

func (n *Notification) WritablePayload() map[string]any {
	payload := map[string]any{}
	if n == nil {
		return payload
	}
	if n.ObserveKey != nil {
		payload["observe_key"] = *n.ObserveKey
	}
	if n.NotifyURI != nil {
		payload["notify_uri"] = *n.NotifyURI
	}
	if n.State != nil {
		payload["state"] = *n.State
	}
	return payload
}

// Bank is a bank contact the user has connected.
type Bank struct {
	BankID         string  `json:"bank_id,omitempty"`
	SEPACreditorID *string `json:"sepa_creditor_id,omitempty"`
	SavePin        bool    `json:"save_pin,omitempty"`

	nav Navigator
}

func (b *Bank) Attach(nav Navigator) {
	if b == nil {
		return
	}
	b.nav = nav
}

func (b *Bank) WritablePayload() map[string]any {
	payload := map[string]any{}
	if b == nil {
		return payload
	}
	if b.SEPACreditorID != nil {
		payload["sepa_creditor_id"] = *b.SEPACreditorID
	}
	return payload
}
