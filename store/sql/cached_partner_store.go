package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goident/partneragent/core"
)

const partnerCacheKeyPrefix = "partneragent::partner::v1"

// CachedPartnerStore layers read-through caching over a partner store.
// Profile reads dominate the workload; writes invalidate both the id and
// did keys so the two access paths never disagree.
type CachedPartnerStore struct {
	base  core.PartnerStore
	cache repositorycache.CacheService
}

func NewCachedPartnerStore(base core.PartnerStore, cacheService repositorycache.CacheService) (*CachedPartnerStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base partner store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: partner cache service is required")
	}
	return &CachedPartnerStore{base: base, cache: cacheService}, nil
}

// PartnerCacheKey returns the deterministic cache key for a partner read:
// partneragent::partner::v1::<kind>::<value> with the value URL-path escaped.
func PartnerCacheKey(kind, value string) string {
	return strings.Join([]string{partnerCacheKeyPrefix, kind, url.PathEscape(strings.TrimSpace(value))}, "::")
}

func (s *CachedPartnerStore) Create(ctx context.Context, in core.CreatePartnerInput) (core.Partner, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.Partner{}, err
	}
	s.invalidate(ctx, created)
	return created, nil
}

func (s *CachedPartnerStore) Get(ctx context.Context, id string) (core.Partner, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, PartnerCacheKey("id", id), func(ctx context.Context) (core.Partner, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedPartnerStore) GetByDID(ctx context.Context, did string) (core.Partner, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, PartnerCacheKey("did", did), func(ctx context.Context) (core.Partner, error) {
		return s.base.GetByDID(ctx, did)
	})
}

func (s *CachedPartnerStore) Update(ctx context.Context, partner core.Partner) (core.Partner, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Partner{}, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	updated, err := s.base.Update(ctx, partner)
	if err != nil {
		return core.Partner{}, err
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

func (s *CachedPartnerStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	current, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, current)
	_ = s.cache.Delete(ctx, PartnerCacheKey("id", id))
	return nil
}

// List and ListNeedingRefresh bypass the cache; both back sweeps and admin
// views where a stale answer is worse than the extra query.
func (s *CachedPartnerStore) List(ctx context.Context) ([]core.Partner, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	return s.base.List(ctx)
}

func (s *CachedPartnerStore) ListNeedingRefresh(ctx context.Context, limit int) ([]core.Partner, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached partner store is not configured")
	}
	return s.base.ListNeedingRefresh(ctx, limit)
}

func (s *CachedPartnerStore) invalidate(ctx context.Context, partner core.Partner) {
	if partner.ID != "" {
		_ = s.cache.Delete(ctx, PartnerCacheKey("id", partner.ID))
	}
	if partner.DID != "" {
		_ = s.cache.Delete(ctx, PartnerCacheKey("did", partner.DID))
	}
}

var _ core.PartnerStore = (*CachedPartnerStore)(nil)
