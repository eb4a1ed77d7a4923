package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQuestions is returned when the question bank is empty.
	ErrNoQuestions = errors.New("no questions loaded")
	// ErrNoActiveQuiz is returned when a chat has no open round.
	ErrNoActiveQuiz = errors.New("no active quiz for chat")
	// ErrInvalidQuestion marks a question that cannot be asked or scored.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidAnswer is returned when reply text is not an option label.
	ErrInvalidAnswer = errors.New("answer is not an option label")
)

// DeliveryReason classifies a failed outbound message.
type DeliveryReason string

const (
	ReasonChatNotFound DeliveryReason = "chat_not_found"
	ReasonBotBlocked   DeliveryReason = "bot_blocked"
	ReasonChatMigrated DeliveryReason = "chat_migrated"
	ReasonTransient    DeliveryReason = "transient"
)

// DeliveryError is returned by chat transports when a message could not be sent.
type DeliveryError struct {
	ChatID     int64
	Reason     DeliveryReason
	MigratedTo int64
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("deliver to chat %d: %s", e.ChatID, e.Reason)
	}
	return fmt.Sprintf("deliver to chat %d: %s: %v", e.ChatID, e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Permanent reports whether the chat can never receive messages again.
func (e *DeliveryError) Permanent() bool {
	return e.Reason == ReasonChatNotFound || e.Reason == ReasonBotBlocked
}
