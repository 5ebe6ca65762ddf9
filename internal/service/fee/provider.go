package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/mindease/booking-api/internal/repository"
)

// Provider resolves the per-session fee for a counsellor, in minor units.
type Provider interface {
	Fee(ctx context.Context, counsellorID uuid.UUID) (int64, error)
}

// cachedProvider is a read-through cache over the counsellor repository.
// Fees change rarely; a short TTL keeps the booking path off the database.
type cachedProvider struct {
	repo  repository.CounsellorRepository
	cache *cache.Cache
}

func NewCachedProvider(repo repository.CounsellorRepository, ttl time.Duration) Provider {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &cachedProvider{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *cachedProvider) Fee(ctx context.Context, counsellorID uuid.UUID) (int64, error) {
	key := counsellorID.String()
	if v, ok := p.cache.Get(key); ok {
		return v.(int64), nil
	}

	fee, err := p.repo.GetFee(ctx, counsellorID)
	if err != nil {
		return 0, err
	}
	p.cache.Set(key, fee, cache.DefaultExpiration)
	return fee, nil
}
