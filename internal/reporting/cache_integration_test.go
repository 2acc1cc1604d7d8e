//go:build integration

package reporting_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	platformredis "loomworks/internal/platform/redis"
	"loomworks/internal/reporting"
	"loomworks/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	client *platformredis.Client
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())

	client, err := platformredis.New(s.redis.URL)
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.client = client
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *CacheSuite) newCache(ttl time.Duration) *reporting.Cache {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reporting.NewCache(s.client, ttl, logger)
}

func (s *CacheSuite) TestRoundTrip() {
	ctx := context.Background()
	cache := s.newCache(time.Minute)

	_, ok := cache.Get(ctx)
	s.False(ok, "empty cache misses")

	payload := reporting.StatsPayload{
		KPIs: reporting.KPIs{
			ApprovedEmployees: 7,
			ExportValue:       decimal.RequireFromString("1700"),
			AccuracyRate:      "98.5",
		},
		GeneratedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	cache.Set(ctx, payload)

	got, ok := cache.Get(ctx)
	s.Require().True(ok)
	s.Equal(7, got.KPIs.ApprovedEmployees)
	s.True(got.KPIs.ExportValue.Equal(payload.KPIs.ExportValue))
	s.Equal(payload.GeneratedAt, got.GeneratedAt)
}

func (s *CacheSuite) TestEntryExpires() {
	ctx := context.Background()
	cache := s.newCache(time.Second)

	cache.Set(ctx, reporting.StatsPayload{KPIs: reporting.KPIs{ApprovedEmployees: 1}})
	_, ok := cache.Get(ctx)
	s.Require().True(ok)

	require.Eventually(s.T(), func() bool {
		_, ok := cache.Get(ctx)
		return !ok
	}, 5*time.Second, 100*time.Millisecond, "entry outlived its TTL")
}

func (s *CacheSuite) TestUnreadableEntryIsAMiss() {
	ctx := context.Background()
	cache := s.newCache(time.Minute)

	s.Require().NoError(s.client.Set(ctx, "loomworks:stats:v1", "not-json", time.Minute).Err())

	_, ok := cache.Get(ctx)
	s.False(ok, "corrupt entries cost a recompute, never an error")
}

func (s *CacheSuite) TestNilCacheIsInert() {
	ctx := context.Background()
	var cache *reporting.Cache

	cache.Set(ctx, reporting.StatsPayload{})
	_, ok := cache.Get(ctx)
	s.False(ok)
}
