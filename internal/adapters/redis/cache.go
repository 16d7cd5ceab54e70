package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetHoldLock takes a short advisory lock on a venue slot before the store
// insert is attempted. The store remains the authority on exclusivity;
// this only sheds obviously-doomed transactions early.
func (c *Cache) SetHoldLock(ctx context.Context, venueID, slot string, hostID string, ttl time.Duration) (bool, error) {
	key := "hold:" + venueID + ":" + slot
	res := c.client.SetNX(ctx, key, hostID, ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseHoldLock(ctx context.Context, venueID, slot string) error {
	return c.client.Del(ctx, "hold:"+venueID+":"+slot).Err()
}
