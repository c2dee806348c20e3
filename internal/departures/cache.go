package departures

import (
	"time"

	"github.com/patrickmn/go-cache"

	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/timeutil"
)

const cacheKey = "rides"

// Cache holds the last extracted ride list in a single slot. The slot TTL
// depends on the time of day: the upstream feed refreshes less often
// overnight, so entries written between 02:00 and 06:59 French time live
// longer.
type Cache struct {
	store *cache.Cache
	now   func() time.Time
}

// NewCache creates the single-slot ride cache.
func NewCache() *Cache {
	return &Cache{
		store: cache.New(time.Minute, 5*time.Minute),
		now:   time.Now,
	}
}

// Get returns the cached rides if the slot is still fresh.
func (c *Cache) Get() ([]model.Ride, bool) {
	entry, found := c.store.Get(cacheKey)
	if !found {
		return nil, false
	}
	rides, ok := entry.([]model.Ride)
	return rides, ok
}

// Put overwrites the slot wholesale with the freshly extracted rides.
func (c *Cache) Put(rides []model.Ride) {
	c.store.Set(cacheKey, rides, c.duration())
}

func (c *Cache) duration() time.Duration {
	hour := timeutil.ParisHour(c.now())
	if hour >= 2 && hour < 7 {
		return 2 * time.Minute
	}
	return time.Minute
}
