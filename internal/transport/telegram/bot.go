package telegram

import (
	"context"
	"log"
	"sync"

	"group-quiz-bot/internal/app"
	"group-quiz-bot/internal/domain"
	"group-quiz-bot/internal/presenter"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot dispatches inbound Telegram updates to the quiz use cases. Every update
// is handled on its own goroutine.
type Bot struct {
	api         API
	selfID      int64
	sender      *Sender
	engine      *app.QuizEngine
	broadcaster *app.Broadcaster
	pollTimeout int

	wg sync.WaitGroup
}

func NewBot(api API, selfID int64, sender *Sender, engine *app.QuizEngine, broadcaster *app.Broadcaster, pollTimeout int) *Bot {
	return &Bot{
		api:         api,
		selfID:      selfID,
		sender:      sender,
		engine:      engine,
		broadcaster: broadcaster,
		pollTimeout: pollTimeout,
	}
}

// Run long-polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes one update: /start, /score, /quiz, or a reply to a
// quiz carrying an option label. Anything else is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "score":
			b.handleScore(ctx, msg)
		case "quiz":
			b.handleQuiz(ctx, msg)
		}
		return
	}

	if label, ok := b.answerLabel(msg); ok {
		b.handleAnswer(ctx, msg, label)
	}
}

// answerLabel applies the dispatch filter for answers: group chat, reply to
// one of our messages, and text that is an option label.
func (b *Bot) answerLabel(msg *tgbotapi.Message) (string, bool) {
	if !isGroup(msg.Chat) {
		return "", false
	}
	reply := msg.ReplyToMessage
	if reply == nil || reply.From == nil || reply.From.ID != b.selfID {
		return "", false
	}
	return domain.NormalizeAnswer(msg.Text)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg.Chat) {
		b.reply(ctx, msg, presenter.PrivateStartNotice)
		return
	}
	if _, err := b.broadcaster.Subscribe(ctx, msg.Chat.ID); err != nil {
		log.Printf("[telegram] %v", err)
		b.reply(ctx, msg, presenter.ErrorNotice)
		return
	}
	b.reply(ctx, msg, presenter.Welcome(b.broadcaster.Interval().String()))
}

func (b *Bot) handleScore(ctx context.Context, msg *tgbotapi.Message) {
	score, err := b.engine.Score(ctx, msg.From.ID)
	if err != nil {
		log.Printf("[telegram] score for user %d: %v", msg.From.ID, err)
		b.reply(ctx, msg, presenter.ErrorNotice)
		return
	}
	b.reply(ctx, msg, presenter.Score(score))
}

func (b *Bot) handleQuiz(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg.Chat) {
		b.reply(ctx, msg, presenter.GroupOnlyNotice)
		return
	}
	b.broadcaster.Deliver(ctx, msg.Chat.ID)
}

func (b *Bot) handleAnswer(ctx context.Context, msg *tgbotapi.Message, label string) {
	outcome, err := b.engine.ResolveAnswer(ctx, msg.Chat.ID, msg.From.ID, label)
	if err != nil {
		log.Printf("[telegram] resolve answer in chat %d: %v", msg.Chat.ID, err)
		b.reply(ctx, msg, presenter.ErrorNotice)
		return
	}
	b.reply(ctx, msg, presenter.Response(outcome))
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if err := b.sender.Reply(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		log.Printf("[telegram] reply in chat %d: %v", msg.Chat.ID, err)
	}
}

func isGroup(chat *tgbotapi.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
