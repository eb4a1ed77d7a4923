package memory

import (
	"context"
	"sort"
	"sync"
)

// SubscriptionSet is an in-memory set of subscribed chats.
type SubscriptionSet struct {
	chats sync.Map // map[int64]struct{}
}

func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{}
}

func (s *SubscriptionSet) Add(_ context.Context, chatID int64) (bool, error) {
	_, loaded := s.chats.LoadOrStore(chatID, struct{}{})
	return !loaded, nil
}

func (s *SubscriptionSet) Remove(_ context.Context, chatID int64) error {
	s.chats.Delete(chatID)
	return nil
}

func (s *SubscriptionSet) List(_ context.Context) ([]int64, error) {
	var chats []int64
	s.chats.Range(func(k, _ any) bool {
		chats = append(chats, k.(int64))
		return true
	})
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats, nil
}
