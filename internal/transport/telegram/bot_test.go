package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"group-quiz-bot/internal/app"
	"group-quiz-bot/internal/domain"
	"group-quiz-bot/internal/infra/memory"
	"group-quiz-bot/internal/presenter"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	botID   = int64(1000)
	groupID = int64(-500)
	aliceID = int64(7)
)

type recordingAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func newRecordingAPI() *recordingAPI {
	return &recordingAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (a *recordingAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return a.updates
}

func (a *recordingAPI) StopReceivingUpdates() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
}

func (a *recordingAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		a.sent = append(a.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (a *recordingAPI) messages() []tgbotapi.MessageConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), a.sent...)
}

func (a *recordingAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := a.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type fixture struct {
	api  *recordingAPI
	bot  *Bot
	subs *memory.SubscriptionSet
}

func newFixture() fixture {
	api := newRecordingAPI()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(map[string][]domain.Question{
		"biology": {{
			Subject: "biology",
			Prompt:  "Powerhouse of the cell?",
			Options: []domain.Option{
				{Label: "A", Text: "Nucleus"},
				{Label: "B", Text: "Mitochondria"},
				{Label: "C", Text: "Ribosome"},
				{Label: "D", Text: "Golgi"},
			},
			Answer: "B",
		}},
	}), time.Minute)
	engine := app.NewQuizEngine(memory.NewSessionStore(), memory.NewScoreLedger(), bank, app.NewFeed())
	subs := memory.NewSubscriptionSet()
	sender := NewSender(api)
	broadcaster := app.NewBroadcaster(engine, subs, sender, app.BroadcastOptions{Interval: 30 * time.Minute})
	return fixture{
		api:  api,
		bot:  NewBot(api, botID, sender, engine, broadcaster, 60),
		subs: subs,
	}
}

func groupChat() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: groupID, Type: "group"}
}

func privateChat() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: aliceID, Type: "private"}
}

func command(chat *tgbotapi.Chat, name string) tgbotapi.Update {
	text := "/" + name
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: aliceID},
		Chat:      chat,
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func replyTo(authorID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID:      11,
		From:           &tgbotapi.User{ID: aliceID},
		Chat:           groupChat(),
		Text:           text,
		ReplyToMessage: &tgbotapi.Message{MessageID: 5, From: &tgbotapi.User{ID: authorID, IsBot: true}},
	}}
}

func TestStartSubscribesGroup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, command(groupChat(), "start"))

	chats, err := f.subs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{groupID}, chats)

	msg := f.api.last(t)
	assert.Equal(t, presenter.Welcome("30m0s"), msg.Text)
	assert.Equal(t, 10, msg.ReplyToMessageID)
}

func TestStartInPrivateChat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, command(privateChat(), "start"))

	chats, err := f.subs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.Equal(t, presenter.PrivateStartNotice, f.api.last(t).Text)
}

func TestQuizAnswerAndScore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, command(groupChat(), "quiz"))
	question := f.api.last(t)
	assert.Equal(t, groupID, question.ChatID)
	assert.Contains(t, question.Text, "Subject: BIOLOGY")

	f.bot.HandleUpdate(ctx, replyTo(botID, " b "))
	assert.Contains(t, f.api.last(t).Text, "4")

	f.bot.HandleUpdate(ctx, replyTo(botID, "A"))
	assert.Equal(t, presenter.AlreadyAnsweredNotice, f.api.last(t).Text)

	f.bot.HandleUpdate(ctx, command(privateChat(), "score"))
	assert.Equal(t, presenter.Score(4), f.api.last(t).Text)
}

func TestAnswerWithoutRound(t *testing.T) {
	f := newFixture()

	f.bot.HandleUpdate(context.Background(), replyTo(botID, "C"))

	assert.Equal(t, presenter.NoActiveQuizNotice, f.api.last(t).Text)
}

func TestIgnoredMessages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.bot.HandleUpdate(ctx, command(groupChat(), "quiz"))
	before := len(f.api.messages())

	// reply to another user
	f.bot.HandleUpdate(ctx, replyTo(42, "B"))
	// not an option label
	f.bot.HandleUpdate(ctx, replyTo(botID, "Mitochondria"))
	// plain group message
	plain := replyTo(botID, "B")
	plain.Message.ReplyToMessage = nil
	f.bot.HandleUpdate(ctx, plain)
	// unknown command
	f.bot.HandleUpdate(ctx, command(groupChat(), "help"))
	// non-message update
	f.bot.HandleUpdate(ctx, tgbotapi.Update{})

	assert.Len(t, f.api.messages(), before)
}

func TestQuizCommandOutsideGroup(t *testing.T) {
	f := newFixture()

	f.bot.HandleUpdate(context.Background(), command(privateChat(), "quiz"))

	assert.Equal(t, presenter.GroupOnlyNotice, f.api.last(t).Text)
}

func TestRunDispatchesUntilCanceled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx) }()

	f.api.updates <- command(privateChat(), "score")
	require.Eventually(t, func() bool {
		return len(f.api.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}

	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	assert.True(t, f.api.stopped)
}
