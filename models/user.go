package models

// User is the account holder.
type User struct {
	UserID              string         `json:"user_id,omitempty"`
	Name                *string        `json:"name,omitempty"`
	Email               string         `json:"email,omitempty"`
	Address             map[string]any `json:"address,omitempty"`
	VerifiedEmail       bool           `json:"verified_email,omitempty"`
	SendNewsletter      *bool          `json:"send_newsletter,omitempty"`
	Language            *string        `json:"language,omitempty"`
	Premium             bool           `json:"premium,omitempty"`
	PremiumExpiresOn    *Timestamp     `json:"premium_expires_on,omitempty"`
	PremiumSubscription string         `json:"premium_subscription,omitempty"`
	JoinDate            *Timestamp     `json:"join_date,omitempty"`

	nav Navigator
}

func (u *User) Attach(nav Navigator) {
	if u == nil {
		return
	}
	u.nav = nav
}

func (u *User) WritablePayload() map[string]any {
	payload := map[string]any{}
	if u == nil {
		return payload
	}
	if u.Name != nil {
		payload["name"] = *u.Name
	}
	if len(u.Address) > 0 {
		payload["address"] = u.Address
	}
	if u.SendNewsletter != nil {
		payload["send_newsletter"] = *u.SendNewsletter
	}
	if u.Language != nil {
		payload["language"] = *u.Language
	}
	return payload
}
