package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/pkg/cache"
	"golang-storefront-backend/pkg/logging"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPickupCacheTTL = 60 * time.Second
	pickupCachePrefix     = "pickup_locations"
)

// LocationCache is the subset of the redis cache the pickup lookup needs.
type LocationCache interface {
	GetWithPrefix(ctx context.Context, prefix, key string, dest interface{}) error
	SetWithPrefix(ctx context.Context, prefix, key string, value interface{}, expiration time.Duration) error
}

// PickupLocationCache serves pickup locations per state, fresh for ttl.
type PickupLocationCache struct {
	backend CheckoutBackend
	cache   LocationCache
	ttl     time.Duration
	log     *logrus.Logger
}

// NewPickupLocationCache caches in c, or in process memory when c is nil.
func NewPickupLocationCache(backend CheckoutBackend, c LocationCache, ttl time.Duration) *PickupLocationCache {
	if ttl <= 0 {
		ttl = DefaultPickupCacheTTL
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &PickupLocationCache{
		backend: backend,
		cache:   c,
		ttl:     ttl,
		log:     logging.Logger(),
	}
}

// Locations returns the pickup locations for state, from cache when fresh.
// Cache failures fall through to the backend.
func (p *PickupLocationCache) Locations(ctx context.Context, session *models.CartSession, state string) ([]models.PickupLocation, error) {
	key := strings.ToLower(strings.TrimSpace(state))
	if key == "" {
		return nil, ErrPickupStateRequired
	}

	var cached []models.PickupLocation
	err := p.cache.GetWithPrefix(ctx, pickupCachePrefix, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.log.WithError(err).WithField("state", state).Warn("pickup cache read failed")
	}

	locations, err := p.backend.PickupLocations(ctx, session, state)
	if err != nil {
		return nil, err
	}
	if locations == nil {
		locations = []models.PickupLocation{}
	}

	if err := p.cache.SetWithPrefix(ctx, pickupCachePrefix, key, locations, p.ttl); err != nil {
		p.log.WithError(err).WithField("state", state).Warn("pickup cache write failed")
	}
	return locations, nil
}
