package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const subscriptionsKey = "quiz:subscriptions"

// SubscriptionSet keeps subscribed chat ids in a Redis set.
type SubscriptionSet struct {
	client *redis.Client
}

func NewSubscriptionSet(client *redis.Client) *SubscriptionSet {
	return &SubscriptionSet{client: client}
}

func (s *SubscriptionSet) Add(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.client.SAdd(ctx, subscriptionsKey, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("add subscription: %w", err)
	}
	return n == 1, nil
}

func (s *SubscriptionSet) Remove(ctx context.Context, chatID int64) error {
	if err := s.client.SRem(ctx, subscriptionsKey, chatID).Err(); err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}

func (s *SubscriptionSet) List(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, subscriptionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	chats := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats, nil
}
