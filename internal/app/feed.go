package app

import (
	"sync"

	"group-quiz-bot/internal/domain"
)

// Feed fans out round and answer events to per-chat subscribers.
type Feed struct {
	chats sync.Map // map[int64]*chatFeed
}

type chatFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe returns a channel that receives events for the chat.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe(chatID int64) (<-chan domain.Event, func()) {
	v, _ := f.chats.LoadOrStore(chatID, &chatFeed{subscribers: make(map[chan domain.Event]struct{})})
	cf := v.(*chatFeed)

	ch := make(chan domain.Event, 8)
	cf.mu.Lock()
	cf.subscribers[ch] = struct{}{}
	cf.mu.Unlock()

	cancel := func() {
		cf.mu.Lock()
		if _, ok := cf.subscribers[ch]; ok {
			delete(cf.subscribers, ch)
			close(ch)
		}
		cf.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of its chat without blocking.
func (f *Feed) Publish(ev domain.Event) {
	v, ok := f.chats.Load(ev.ChatID)
	if !ok {
		return
	}
	cf := v.(*chatFeed)

	cf.mu.Lock()
	defer cf.mu.Unlock()
	for ch := range cf.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow reader: drop the oldest event to make room.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
