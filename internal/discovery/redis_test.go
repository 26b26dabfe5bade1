package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microshop/internal/domain"
)

func newMockRegistry(t *testing.T) (*RedisRegistry, redismock.ClientMock, time.Time) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	reg := NewRedisRegistry(db, 30*time.Second)
	now := time.Unix(1_760_000_000, 0)
	reg.now = func() time.Time { return now }
	return reg, mock, now
}

func TestRedisRegistry_Instances(t *testing.T) {
	reg, mock, _ := newMockRegistry(t)

	mock.ExpectZRangeByScore("registry:catalogue", &redis.ZRangeBy{
		Min: "1759999970",
		Max: "+inf",
	}).SetVal([]string{"http://c1:8082"})

	got, err := reg.Instances(context.Background(), "catalogue")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://c1:8082"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_RegisterDeregister(t *testing.T) {
	reg, mock, now := newMockRegistry(t)
	ctx := context.Background()

	mock.ExpectZAdd("registry:order", redis.Z{Score: float64(now.Unix()), Member: "http://o1"}).SetVal(1)
	mock.ExpectZRem("registry:order", "http://o1").SetVal(1)

	require.NoError(t, reg.Register(ctx, "order", "http://o1"))
	require.NoError(t, reg.Deregister(ctx, "order", "http://o1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRegistry_EmptyMeansUnavailable(t *testing.T) {
	reg, mock, _ := newMockRegistry(t)
	mock.ExpectZRangeByScore("registry:identity", &redis.ZRangeBy{
		Min: "1759999970",
		Max: "+inf",
	}).SetVal([]string{})

	_, err := NewLocator(reg).Resolve(context.Background(), "identity")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
