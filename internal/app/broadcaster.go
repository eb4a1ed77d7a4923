package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"group-quiz-bot/internal/domain"
	"group-quiz-bot/internal/presenter"
	"golang.org/x/sync/errgroup"
)

// SubscriptionSet holds the chats that receive scheduled rounds.
type SubscriptionSet interface {
	// Add subscribes the chat and reports whether it was newly added.
	Add(ctx context.Context, chatID int64) (bool, error)
	Remove(ctx context.Context, chatID int64) error
	// List returns a snapshot of subscribed chats.
	List(ctx context.Context) ([]int64, error)
}

// Sender delivers outbound text. Failures should be *domain.DeliveryError so
// permanent ones can be told apart.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// BroadcastOptions tunes the scheduler.
type BroadcastOptions struct {
	Interval    time.Duration
	SendTimeout time.Duration
	MaxParallel int
}

// Broadcaster starts a round in every subscribed chat on a fixed interval.
type Broadcaster struct {
	engine *QuizEngine
	subs   SubscriptionSet
	sender Sender
	opts   BroadcastOptions
}

func NewBroadcaster(engine *QuizEngine, subs SubscriptionSet, sender Sender, opts BroadcastOptions) *Broadcaster {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 8
	}
	return &Broadcaster{engine: engine, subs: subs, sender: sender, opts: opts}
}

// Interval returns the broadcast period.
func (b *Broadcaster) Interval() time.Duration {
	return b.opts.Interval
}

// Subscribe adds the chat to the broadcast set. Re-subscribing is a no-op.
func (b *Broadcaster) Subscribe(ctx context.Context, chatID int64) (bool, error) {
	added, err := b.subs.Add(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("subscribe chat %d: %w", chatID, err)
	}
	if added {
		log.Printf("[broadcast] chat %d subscribed", chatID)
	}
	return added, nil
}

// Run ticks until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	log.Printf("[broadcast] scheduling rounds every %s", b.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick starts one round per subscribed chat. Chats are processed concurrently
// and each delivery is bounded by SendTimeout, so one stuck chat cannot stall
// the rest.
func (b *Broadcaster) Tick(ctx context.Context) {
	chats, err := b.subs.List(ctx)
	if err != nil {
		log.Printf("[broadcast] list subscriptions: %v", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(b.opts.MaxParallel)
	for _, chatID := range chats {
		chatID := chatID
		g.Go(func() error {
			chatCtx, cancel := context.WithTimeout(ctx, b.opts.SendTimeout)
			defer cancel()
			b.Deliver(chatCtx, chatID)
			return nil
		})
	}
	_ = g.Wait()
}

// Deliver starts a round in one chat and sends it, falling back to the fixed
// notice when no questions are loaded. Errors are logged, never returned.
func (b *Broadcaster) Deliver(ctx context.Context, chatID int64) {
	text, err := b.engine.StartRound(ctx, chatID)
	switch {
	case errors.Is(err, domain.ErrNoQuestions):
		text = presenter.NoQuestionsNotice
	case err != nil:
		log.Printf("[broadcast] start round in chat %d: %v", chatID, err)
		return
	}

	if err := b.sender.Send(ctx, chatID, text); err != nil {
		b.handleDeliveryError(ctx, chatID, err)
	}
}

func (b *Broadcaster) handleDeliveryError(ctx context.Context, chatID int64, err error) {
	var derr *domain.DeliveryError
	if !errors.As(err, &derr) {
		log.Printf("[broadcast] send to chat %d: %v", chatID, err)
		return
	}

	// The per-chat deadline may already be spent on the failed send.
	ctx = context.WithoutCancel(ctx)
	switch {
	case derr.Permanent():
		log.Printf("[broadcast] unsubscribing chat %d: %v", chatID, derr)
		if err := b.subs.Remove(ctx, chatID); err != nil {
			log.Printf("[broadcast] remove chat %d: %v", chatID, err)
		}
	case derr.Reason == domain.ReasonChatMigrated && derr.MigratedTo != 0:
		log.Printf("[broadcast] chat %d migrated to %d", chatID, derr.MigratedTo)
		if err := b.subs.Remove(ctx, chatID); err != nil {
			log.Printf("[broadcast] remove chat %d: %v", chatID, err)
		}
		if _, err := b.subs.Add(ctx, derr.MigratedTo); err != nil {
			log.Printf("[broadcast] add chat %d: %v", derr.MigratedTo, err)
		}
	default:
		log.Printf("[broadcast] skipped chat %d this cycle: %v", chatID, derr)
	}
}
