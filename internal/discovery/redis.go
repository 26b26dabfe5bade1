package discovery

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry keeps one sorted set per service: member = address, score =
// unix time of the last heartbeat. Instances older than ttl are skipped.
type RedisRegistry struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisRegistry(client redis.Cmdable, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: "registry:",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *RedisRegistry) key(service string) string {
	return r.prefix + service
}

func (r *RedisRegistry) Instances(ctx context.Context, service string) ([]string, error) {
	cutoff := r.now().Add(-r.ttl).Unix()
	return r.client.ZRangeByScore(ctx, r.key(service), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
}

// Register records a heartbeat for addr. Calling it again refreshes the score.
func (r *RedisRegistry) Register(ctx context.Context, service, addr string) error {
	return r.client.ZAdd(ctx, r.key(service), redis.Z{
		Score:  float64(r.now().Unix()),
		Member: addr,
	}).Err()
}

func (r *RedisRegistry) Deregister(ctx context.Context, service, addr string) error {
	return r.client.ZRem(ctx, r.key(service), addr).Err()
}
