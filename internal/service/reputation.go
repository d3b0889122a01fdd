package service

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Reputation is the single point through which scores change. Scores only
// grow.
type Reputation struct {
	store store.Reputation
	log   logrus.FieldLogger
}

func NewReputation(st store.Reputation, log logrus.FieldLogger) *Reputation {
	return &Reputation{store: st, log: log.WithField("component", "reputation")}
}

// Credit adds delta to address and returns the new score.
func (r *Reputation) Credit(ctx context.Context, address string, delta float64) (float64, error) {
	if address == "" {
		return 0, validationError("address is required")
	}
	if delta < 0 {
		return 0, validationError("reputation cannot decrease")
	}

	score, err := r.store.Credit(ctx, address, delta)
	if err != nil {
		return 0, err
	}
	reputationCreditsTotal.Inc()
	r.log.WithFields(logrus.Fields{"address": address, "delta": delta, "score": score}).Debug("reputation credited")
	return score, nil
}

// Score returns 0 for addresses without history.
func (r *Reputation) Score(ctx context.Context, address string) (float64, error) {
	score, err := r.store.Score(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("reputation lookup: %w", err)
	}
	return score, nil
}

// Leaderboard returns the highest scores first. limit is clamped to
// [1, MaxLeaderboardLimit]; zero means DefaultLeaderboardLimit.
func (r *Reputation) Leaderboard(ctx context.Context, limit int) ([]domain.ReputationEntry, error) {
	switch {
	case limit == 0:
		limit = DefaultLeaderboardLimit
	case limit < 1:
		limit = 1
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}
	return r.store.Top(ctx, limit)
}
