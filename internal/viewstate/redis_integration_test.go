//go:build integration

package viewstate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/viewstate"
	"github.com/CthulhuOnIce/Stasi-sub000/pkg/testutil/containers"
)

type RedisViewStateSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *viewstate.Redis
}

func TestRedisViewStateSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisViewStateSuite))
}

func (s *RedisViewStateSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = viewstate.NewRedis(s.redis.Client)
}

func (s *RedisViewStateSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisViewStateSuite) TestRoundTrip() {
	ctx := context.Background()

	caseID, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.True(caseID.IsZero(), "unset user has no view")

	s.Require().NoError(s.store.Set(ctx, "user-1", "2026-03-01-ABCD"))
	caseID, err = s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.EqualValues("2026-03-01-ABCD", caseID)
}

func (s *RedisViewStateSuite) TestZeroCaseClears() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "user-1", "2026-03-01-ABCD"))
	s.Require().NoError(s.store.Set(ctx, "user-1", ""))

	caseID, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.True(caseID.IsZero())
}

func (s *RedisViewStateSuite) TestUsersAreIsolated() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "user-1", "2026-03-01-ABCD"))
	s.Require().NoError(s.store.Set(ctx, "user-2", "2026-03-02-EFGH"))

	caseID, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.EqualValues("2026-03-01-ABCD", caseID)
}
