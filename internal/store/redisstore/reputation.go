// Package redisstore keeps reputation scores in a Redis sorted set.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/store"
)

// DefaultKey is the sorted set holding address scores.
const DefaultKey = "ledger:reputation"

// Reputation implements store.Reputation. ZINCRBY is the atomic
// add-and-return primitive; ties in the leaderboard fall back to Redis'
// lexicographic member order.
type Reputation struct {
	client *redis.Client
	key    string
}

var _ store.Reputation = (*Reputation)(nil)

func New(client *redis.Client, key string) *Reputation {
	if key == "" {
		key = DefaultKey
	}
	return &Reputation{client: client, key: key}
}

func (r *Reputation) Credit(ctx context.Context, address string, delta float64) (float64, error) {
	score, err := r.client.ZIncrBy(ctx, r.key, delta, address).Result()
	if err != nil {
		return 0, fmt.Errorf("reputation credit failed: %w", err)
	}
	return score, nil
}

func (r *Reputation) Score(ctx context.Context, address string) (float64, error) {
	score, err := r.client.ZScore(ctx, r.key, address).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reputation lookup failed: %w", err)
	}
	return score, nil
}

func (r *Reputation) Top(ctx context.Context, limit int) ([]domain.ReputationEntry, error) {
	if limit <= 0 {
		return []domain.ReputationEntry{}, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard query failed: %w", err)
	}

	out := make([]domain.ReputationEntry, 0, len(zs))
	for _, z := range zs {
		addr, _ := z.Member.(string)
		out = append(out, domain.ReputationEntry{Address: addr, Score: z.Score})
	}
	return out, nil
}
