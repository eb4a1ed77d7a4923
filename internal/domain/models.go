package domain

import (
	"fmt"
	"strings"
	"time"
)

// Score deltas applied when an answer is resolved.
const (
	CorrectDelta   int64 = 4
	IncorrectDelta int64 = -1
)

// Labels is the fixed option alphabet, in display order.
var Labels = []string{"A", "B", "C", "D"}

// NormalizeAnswer trims and upper-cases raw reply text and reports whether the
// result is one of the option labels.
func NormalizeAnswer(raw string) (string, bool) {
	label := strings.ToUpper(strings.TrimSpace(raw))
	return label, IsLabel(label)
}

// IsLabel reports whether s is exactly one of Labels.
func IsLabel(s string) bool {
	for _, l := range Labels {
		if s == l {
			return true
		}
	}
	return false
}

// Option is one labelled choice of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question models a multiple-choice question from the bank. Options are kept in
// label order.
type Question struct {
	Subject string   `json:"subject"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Answer  string   `json:"answer"`
}

// Validate checks that the question can be asked and scored.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least two options", ErrInvalidQuestion)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if !IsLabel(opt.Label) {
			return fmt.Errorf("%w: unknown label %q", ErrInvalidQuestion, opt.Label)
		}
		if seen[opt.Label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidQuestion, opt.Label)
		}
		seen[opt.Label] = true
	}
	if !seen[q.Answer] {
		return fmt.Errorf("%w: answer %q is not an option", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

// Round identifies the live quiz of a chat. Seq grows with every Open on the
// same chat so a round can be told apart from the one it superseded.
type Round struct {
	ChatID   int64     `json:"chatId"`
	Seq      int64     `json:"seq"`
	Answer   string    `json:"-"`
	OpenedAt time.Time `json:"openedAt"`
}

// OutcomeKind enumerates the terminal results of resolving an answer.
type OutcomeKind string

const (
	OutcomeNoActiveQuiz    OutcomeKind = "no_active_quiz"
	OutcomeAlreadyAnswered OutcomeKind = "already_answered"
	OutcomeCorrect         OutcomeKind = "correct"
	OutcomeIncorrect       OutcomeKind = "incorrect"
)

// Outcome summarizes an answer resolution for a single user.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	ChatID   int64       `json:"chatId"`
	UserID   int64       `json:"userId"`
	RoundSeq int64       `json:"roundSeq,omitempty"`
	Answer   string      `json:"answer"`
	Delta    int64       `json:"delta"`
	Score    int64       `json:"score"`
}

// Scored reports whether the outcome changed the user's score.
func (o Outcome) Scored() bool {
	return o.Kind == OutcomeCorrect || o.Kind == OutcomeIncorrect
}

// Event types published on the live feed.
const (
	EventRoundStarted = "roundStarted"
	EventAnswer       = "answer"
)

// Event is a feed entry for a chat.
type Event struct {
	Type    string    `json:"type"`
	ChatID  int64     `json:"chatId"`
	Subject string    `json:"subject,omitempty"`
	Round   *Round    `json:"round,omitempty"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}
