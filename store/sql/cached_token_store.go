package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-bankconnect/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const tokenCacheKeyPrefix = "go-bankconnect::token::v1"

// CachedTokenStore wraps a TokenStore with a read-through cache on the
// active-token lookup. Writes invalidate the user's cache entry so the next
// read observes the new version.
type CachedTokenStore struct {
	base  core.TokenStore
	cache repositorycache.CacheService
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	return &CachedTokenStore{base: base, cache: cacheService}, nil
}

// TokenCacheKey returns the cache key contract for active-token reads:
// go-bankconnect::token::v1::<user_id> with the user segment URL-path escaped.
func TokenCacheKey(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return strings.Join([]string{tokenCacheKeyPrefix, url.PathEscape(trimmed)}, "::"), nil
}

func (s *CachedTokenStore) SaveNewVersion(ctx context.Context, in core.SaveTokenInput) (core.StoredToken, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredToken{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	created, err := s.base.SaveNewVersion(ctx, in)
	if err != nil {
		return core.StoredToken{}, err
	}
	if err := s.invalidate(ctx, created.UserID); err != nil {
		return core.StoredToken{}, err
	}
	return created, nil
}

func (s *CachedTokenStore) GetActiveByUser(ctx context.Context, userID string) (core.StoredToken, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredToken{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	cacheKey, err := TokenCacheKey(userID)
	if err != nil {
		return core.StoredToken{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.StoredToken, error) {
		return s.base.GetActiveByUser(ctx, userID)
	})
}

func (s *CachedTokenStore) RevokeActive(ctx context.Context, userID string, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	if err := s.base.RevokeActive(ctx, userID, reason); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, userID string) error {
	cacheKey, err := TokenCacheKey(userID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.TokenStore = (*CachedTokenStore)(nil)
