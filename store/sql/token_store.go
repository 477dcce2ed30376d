package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bankconnect/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TokenStore persists issued access credentials as an append-only version
// chain per user. Saving a new version revokes the previously active row in
// the same transaction, so at most one version per user is active.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) SaveNewVersion(ctx context.Context, in core.SaveTokenInput) (core.StoredToken, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.StoredToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmedUserID := strings.TrimSpace(in.UserID)
	if trimmedUserID == "" {
		return core.StoredToken{}, fmt.Errorf("sqlstore: user id is required")
	}
	if strings.TrimSpace(in.AccessToken) == "" {
		return core.StoredToken{}, fmt.Errorf("sqlstore: access token is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.TokenStatusActive
	}
	in.UserID = trimmedUserID
	in.Status = status
	now := time.Now().UTC()

	var created core.StoredToken
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, trimmedUserID)
		if versionErr != nil {
			return versionErr
		}

		if status == core.TokenStatusActive {
			_, updateErr := tx.NewUpdate().
				Model((*tokenRecord)(nil)).
				Set("status = ?", string(core.TokenStatusRevoked)).
				Set("revocation_reason = ?", "rotated").
				Set("updated_at = ?", now).
				Where("user_id = ?", trimmedUserID).
				Where("status = ?", string(core.TokenStatusActive)).
				Exec(ctx)
			if updateErr != nil {
				return updateErr
			}
		}

		record := newTokenRecord(in, nextVersion, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.StoredToken{}, err
	}

	return created, nil
}

func (s *TokenStore) GetActiveByUser(ctx context.Context, userID string) (core.StoredToken, error) {
	if s == nil || s.repo == nil {
		return core.StoredToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("status", "=", string(core.TokenStatusActive)),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.StoredToken{}, err
	}
	if len(records) == 0 {
		return core.StoredToken{}, fmt.Errorf("sqlstore: active token not found for user %q", userID)
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) RevokeActive(ctx context.Context, userID string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmedUserID := strings.TrimSpace(userID)
	if trimmedUserID == "" {
		return fmt.Errorf("sqlstore: user id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	_, err := s.db.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("status = ?", string(core.TokenStatusRevoked)).
		Set("revocation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", trimmedUserID).
		Where("status = ?", string(core.TokenStatusActive)).
		Exec(ctx)
	return err
}

func (s *TokenStore) nextVersion(ctx context.Context, tx bun.Tx, userID string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*tokenRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

var _ core.TokenStore = (*TokenStore)(nil)
