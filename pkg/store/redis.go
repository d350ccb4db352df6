package store

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var distributedErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "store_l2_errors_total",
		Help: "Total number of L2 distributed store operation errors",
	},
	[]string{"operation"}, // get, set, remove
)

// DistributedStore is the L2 collaborator: a TTL-capable remote KV backed
// by Redis. Set honors ttl as an absolute expiry; Get returns ErrNotFound
// once the key has expired, matching Redis's own semantics.
type DistributedStore struct {
	client *redis.Client
}

// NewDistributedStore wraps an existing Redis client as an L2 store.
func NewDistributedStore(client *redis.Client) *DistributedStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &DistributedStore{client: client}
}

// Get returns the value for key, or ErrNotFound if absent or expired.
func (d *DistributedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := d.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		distributedErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	return data, nil
}

// Set stores value under key with an absolute ttl. A zero ttl means no
// expiry is applied.
func (d *DistributedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := d.client.Set(ctx, key, value, ttl).Err(); err != nil {
		distributedErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (d *DistributedStore) Remove(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, key).Err(); err != nil {
		distributedErrorsTotal.WithLabelValues("remove").Inc()
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}
