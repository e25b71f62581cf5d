//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"donaria/internal/donor/revocation"
	"donaria/pkg/testutil/containers"
)

type RedisRevocationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.Redis
}

func TestRedisRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRevocationSuite))
}

func (s *RedisRevocationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.list = revocation.NewRedis(s.redis.Client)
}

func (s *RedisRevocationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRevocationSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	const token = "header.payload.signature"

	revoked, err := s.list.IsRevoked(ctx, token)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, token, time.Minute))

	revoked, err = s.list.IsRevoked(ctx, token)
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.list.IsRevoked(ctx, "header.payload.other")
	s.Require().NoError(err)
	s.False(revoked, "revocation is per token")
}

func (s *RedisRevocationSuite) TestEntryExpiresWithTTL() {
	ctx := context.Background()
	const token = "short.lived.token"

	s.Require().NoError(s.list.Revoke(ctx, token, 500*time.Millisecond))

	revoked, err := s.list.IsRevoked(ctx, token)
	s.Require().NoError(err)
	s.True(revoked)

	s.Require().Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, token)
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond, "entry should lapse with its TTL")
}

func (s *RedisRevocationSuite) TestRevokeNoOps() {
	ctx := context.Background()

	s.Require().NoError(s.list.Revoke(ctx, "", time.Minute))
	s.Require().NoError(s.list.Revoke(ctx, "some.token.string", 0))

	revoked, err := s.list.IsRevoked(ctx, "some.token.string")
	s.Require().NoError(err)
	s.False(revoked, "non-positive TTL never lands on the list")
}
