package viewstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/CthulhuOnIce/Stasi-sub000/pkg/domain"
)

const viewKeyPrefix = "view:user:"

// Redis is the production store. Keys have no TTL; viewer state is cheap and
// explicitly overwritten.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Set(ctx context.Context, user domain.UserID, caseID domain.CaseID) error {
	key := viewKeyPrefix + user.String()
	if caseID.IsZero() {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear viewer state: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, key, caseID.String(), 0).Err(); err != nil {
		return fmt.Errorf("set viewer state: %w", err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, user domain.UserID) (domain.CaseID, error) {
	val, err := s.client.Get(ctx, viewKeyPrefix+user.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get viewer state: %w", err)
	}
	return domain.CaseID(val), nil
}
