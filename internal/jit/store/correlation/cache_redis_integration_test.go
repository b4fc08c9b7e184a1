//go:build integration

package correlation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"jitbridge/internal/jit/store/correlation"
	"jitbridge/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *correlation.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = correlation.NewRedisCache(s.redis.Client, time.Hour)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestGetMiss() {
	ticketID, err := s.cache.Get(context.Background(), "sess-unknown")
	s.NoError(err)
	s.Empty(ticketID)
}

func (s *RedisCacheSuite) TestPutThenGet() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, "sess-1", "ticket-1"))

	ticketID, err := s.cache.Get(ctx, "sess-1")
	s.NoError(err)
	s.Equal("ticket-1", ticketID)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	shortLived := correlation.NewRedisCache(s.redis.Client, 50*time.Millisecond)
	s.Require().NoError(shortLived.Put(ctx, "sess-2", "ticket-2"))

	time.Sleep(100 * time.Millisecond)

	ticketID, err := shortLived.Get(ctx, "sess-2")
	s.NoError(err)
	s.Empty(ticketID)
}
