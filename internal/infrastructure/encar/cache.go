package encar

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
)

// CachedFetcher memoizes successful fetches so repeated button presses on
// the same listing do not refetch. Failures are not cached.
type CachedFetcher struct {
	next  application.ListingFetcher
	cache *gocache.Cache
}

var _ application.ListingFetcher = (*CachedFetcher)(nil)

func NewCachedFetcher(next application.ListingFetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, id string) (domain.VehicleListing, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(domain.VehicleListing), nil
	}
	listing, err := c.next.Fetch(ctx, id)
	if err != nil {
		return domain.VehicleListing{}, err
	}
	c.cache.SetDefault(id, listing)
	return listing, nil
}
