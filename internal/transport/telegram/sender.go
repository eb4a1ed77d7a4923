package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"group-quiz-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the bot relies on.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewAPI authorizes against the Bot API with a bounded HTTP client.
func NewAPI(token string, requestTimeout time.Duration, debug bool) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: requestTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// Sender delivers text to chats and classifies failures as
// *domain.DeliveryError.
type Sender struct {
	api API
}

func NewSender(api API) *Sender {
	return &Sender{api: api}
}

// Send posts text to the chat.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// Reply posts text as a reply to messageID.
func (s *Sender) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = messageID
	msg.AllowSendingWithoutReply = true
	return s.send(ctx, msg)
}

func (s *Sender) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := ctx.Err(); err != nil {
		return &domain.DeliveryError{ChatID: msg.ChatID, Reason: domain.ReasonTransient, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return classify(msg.ChatID, err)
	case <-ctx.Done():
		return &domain.DeliveryError{ChatID: msg.ChatID, Reason: domain.ReasonTransient, Err: ctx.Err()}
	}
}

// classify maps Bot API failures onto delivery reasons. Only "chat not found"
// and 403s (blocked, kicked, deactivated) are permanent.
func classify(chatID int64, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		var valErr tgbotapi.Error
		if !errors.As(err, &valErr) {
			return &domain.DeliveryError{ChatID: chatID, Reason: domain.ReasonTransient, Err: err}
		}
		apiErr = &valErr
	}

	reason := domain.ReasonTransient
	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.MigrateToChatID != 0:
		return &domain.DeliveryError{ChatID: chatID, Reason: domain.ReasonChatMigrated, MigratedTo: apiErr.MigrateToChatID, Err: err}
	case apiErr.Code == http.StatusForbidden:
		reason = domain.ReasonBotBlocked
	case strings.Contains(msg, "chat not found"):
		reason = domain.ReasonChatNotFound
	}
	return &domain.DeliveryError{ChatID: chatID, Reason: reason, Err: err}
}
