package memory

import (
	"context"
	"sync"
	"time"

	"group-quiz-bot/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Each chat
// has its own lock; the map of chats is a sync.Map so lookups for different
// chats never serialize.
type SessionStore struct {
	chats sync.Map // map[int64]*chatSlot
	now   func() time.Time
}

type chatSlot struct {
	mu       sync.Mutex
	seq      int64
	round    domain.Round
	live     bool
	answered map[int64]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{now: time.Now}
}

func (s *SessionStore) slot(chatID int64) *chatSlot {
	if v, ok := s.chats.Load(chatID); ok {
		return v.(*chatSlot)
	}
	v, _ := s.chats.LoadOrStore(chatID, &chatSlot{})
	return v.(*chatSlot)
}

func (s *SessionStore) Open(_ context.Context, chatID int64, answer string) (domain.Round, error) {
	slot := s.slot(chatID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.seq++
	slot.round = domain.Round{
		ChatID:   chatID,
		Seq:      slot.seq,
		Answer:   answer,
		OpenedAt: s.now(),
	}
	slot.live = true
	slot.answered = make(map[int64]struct{})
	return slot.round, nil
}

func (s *SessionStore) Lookup(_ context.Context, chatID int64) (domain.Round, error) {
	v, ok := s.chats.Load(chatID)
	if !ok {
		return domain.Round{}, domain.ErrNoActiveQuiz
	}
	slot := v.(*chatSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if !slot.live {
		return domain.Round{}, domain.ErrNoActiveQuiz
	}
	return slot.round, nil
}

func (s *SessionStore) MarkAnswered(_ context.Context, chatID, userID int64) (domain.Round, bool, error) {
	v, ok := s.chats.Load(chatID)
	if !ok {
		return domain.Round{}, false, nil
	}
	slot := v.(*chatSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if !slot.live {
		return domain.Round{}, false, nil
	}
	if _, done := slot.answered[userID]; done {
		return slot.round, false, nil
	}
	slot.answered[userID] = struct{}{}
	return slot.round, true, nil
}
