package sqlstore

import (
	"time"

	"github.com/goliatone/go-bankconnect/core"
	"github.com/uptrace/bun"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:connect_tokens,alias:ct"`

	ID               string     `bun:"id,pk"`
	UserID           string     `bun:"user_id,notnull"`
	Version          int        `bun:"version,notnull"`
	AccessToken      string     `bun:"access_token,notnull"`
	RefreshToken     string     `bun:"refresh_token,notnull"`
	Scope            string     `bun:"scope,notnull"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`
	Status           string     `bun:"status,notnull"`
	RevocationReason string     `bun:"revocation_reason,notnull"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newTokenRecord(in core.SaveTokenInput, version int, now time.Time) *tokenRecord {
	record := &tokenRecord{
		UserID:       in.UserID,
		Version:      version,
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		Scope:        in.Scope,
		Status:       string(in.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.ExpiresAt != nil {
		expiresAt := *in.ExpiresAt
		record.ExpiresAt = &expiresAt
	}
	return record
}

func (r *tokenRecord) toDomain() core.StoredToken {
	if r == nil {
		return core.StoredToken{}
	}
	token := core.StoredToken{
		ID:               r.ID,
		UserID:           r.UserID,
		Version:          r.Version,
		AccessToken:      r.AccessToken,
		RefreshToken:     r.RefreshToken,
		Scope:            r.Scope,
		Status:           core.TokenStatus(r.Status),
		RevocationReason: r.RevocationReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ExpiresAt != nil {
		expiresAt := *r.ExpiresAt
		token.ExpiresAt = &expiresAt
	}
	return token
}
