package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"group-quiz-bot/internal/domain"
	"group-quiz-bot/internal/presenter"
)

// SessionStore abstracts where live rounds are kept (in-memory, Redis, etc).
// Implementations synchronize per chat; unrelated chats never contend.
type SessionStore interface {
	// Open installs a fresh round for the chat, discarding any prior one.
	Open(ctx context.Context, chatID int64, answer string) (domain.Round, error)
	// Lookup returns the live round or domain.ErrNoActiveQuiz.
	Lookup(ctx context.Context, chatID int64) (domain.Round, error)
	// MarkAnswered records userID on the live round and returns that round.
	// It reports false when the user already answered it or no round exists.
	MarkAnswered(ctx context.Context, chatID, userID int64) (domain.Round, bool, error)
}

// ScoreLedger keeps per-user integer scores. Adjust is atomic per user.
type ScoreLedger interface {
	Adjust(ctx context.Context, userID, delta int64) (int64, error)
	Get(ctx context.Context, userID int64) (int64, error)
}

// QuestionBank hands out questions; PickRandom returns domain.ErrNoQuestions
// when the bank is empty.
type QuestionBank interface {
	PickRandom(ctx context.Context) (domain.Question, error)
}

// QuizEngine contains the round and scoring use cases.
type QuizEngine struct {
	sessions SessionStore
	scores   ScoreLedger
	bank     QuestionBank
	feed     *Feed
	now      func() time.Time
}

func NewQuizEngine(sessions SessionStore, scores ScoreLedger, bank QuestionBank, feed *Feed) *QuizEngine {
	return &QuizEngine{
		sessions: sessions,
		scores:   scores,
		bank:     bank,
		feed:     feed,
		now:      time.Now,
	}
}

// StartRound picks a question, opens a round for the chat and returns the text
// to broadcast. On an empty bank it returns domain.ErrNoQuestions and leaves
// the chat's current round alone. Concurrent calls for one chat are
// last-writer-wins.
func (e *QuizEngine) StartRound(ctx context.Context, chatID int64) (string, error) {
	question, err := e.bank.PickRandom(ctx)
	if err != nil {
		return "", err
	}

	msg := presenter.FormatQuestion(question)
	round, err := e.sessions.Open(ctx, chatID, question.Answer)
	if err != nil {
		return "", fmt.Errorf("open round for chat %d: %w", chatID, err)
	}

	e.publish(domain.Event{
		Type:    domain.EventRoundStarted,
		ChatID:  chatID,
		Subject: question.Subject,
		Round:   &round,
	})
	return msg, nil
}

// ResolveAnswer scores a reply against the chat's live round. The answer must
// already be a normalized option label.
func (e *QuizEngine) ResolveAnswer(ctx context.Context, chatID, userID int64, answer string) (domain.Outcome, error) {
	outcome := domain.Outcome{ChatID: chatID, UserID: userID, Answer: answer}

	if _, err := e.sessions.Lookup(ctx, chatID); err != nil {
		if errors.Is(err, domain.ErrNoActiveQuiz) {
			outcome.Kind = domain.OutcomeNoActiveQuiz
			return outcome, nil
		}
		return domain.Outcome{}, fmt.Errorf("lookup round for chat %d: %w", chatID, err)
	}

	// The round returned here is the one the user was recorded on; comparing
	// against it keeps a superseded lookup from scoring the newer round.
	round, marked, err := e.sessions.MarkAnswered(ctx, chatID, userID)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("mark answered in chat %d: %w", chatID, err)
	}
	if !marked {
		outcome.Kind = domain.OutcomeAlreadyAnswered
		return outcome, nil
	}
	outcome.RoundSeq = round.Seq

	outcome.Kind, outcome.Delta = domain.OutcomeIncorrect, domain.IncorrectDelta
	if answer == round.Answer {
		outcome.Kind, outcome.Delta = domain.OutcomeCorrect, domain.CorrectDelta
	}

	score, err := e.scores.Adjust(ctx, userID, outcome.Delta)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("adjust score for user %d: %w", userID, err)
	}
	outcome.Score = score

	e.publish(domain.Event{Type: domain.EventAnswer, ChatID: chatID, Outcome: &outcome})
	return outcome, nil
}

// Score returns the user's current score without side effects.
func (e *QuizEngine) Score(ctx context.Context, userID int64) (int64, error) {
	return e.scores.Get(ctx, userID)
}

func (e *QuizEngine) publish(ev domain.Event) {
	if e.feed == nil {
		return
	}
	ev.At = e.now()
	e.feed.Publish(ev)
}
