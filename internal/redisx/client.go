package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type cachedStatus struct {
	OrderID int64                  `json:"order_id"`
	Status  settlement.OrderStatus `json:"status"`
}

// StatusCache keeps the latest order status for the status endpoint.
type StatusCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ settlement.StatusCache = (*StatusCache)(nil)

func (c *StatusCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLStatusCache
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID int64, status settlement.OrderStatus) error {
	b, err := json.Marshal(cachedStatus{OrderID: orderID, Status: status})
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, c.ttl()).Err()
}

// GetStatus returns ok=false on a cache miss.
func (c *StatusCache) GetStatus(ctx context.Context, orderID int64) (settlement.OrderStatus, bool, error) {
	s, err := c.Client.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var cs cachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return "", false, err
	}
	return cs.Status, true, nil
}
