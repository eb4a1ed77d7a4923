package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ScoreLedger stores one counter per user: INCRBY quiz:score:{userID} delta.
type ScoreLedger struct {
	client *redis.Client
}

func NewScoreLedger(client *redis.Client) *ScoreLedger {
	return &ScoreLedger{client: client}
}

func (l *ScoreLedger) Adjust(ctx context.Context, userID, delta int64) (int64, error) {
	score, err := l.client.IncrBy(ctx, l.key(userID), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("adjust score: %w", err)
	}
	return score, nil
}

func (l *ScoreLedger) Get(ctx context.Context, userID int64) (int64, error) {
	score, err := l.client.Get(ctx, l.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get score: %w", err)
	}
	return score, nil
}

func (l *ScoreLedger) key(userID int64) string {
	return "quiz:score:" + strconv.FormatInt(userID, 10)
}
