// Package presenter turns quiz data and outcomes into chat text.
package presenter

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"group-quiz-bot/internal/domain"
)

// Fixed notices.
const (
	NoQuestionsNotice     = "❌ No questions loaded! Add question files to the questions directory."
	NoActiveQuizNotice    = "❓ No active quiz! Wait for the next one."
	AlreadyAnsweredNotice = "✅ You already answered this quiz!"
	PrivateStartNotice    = "👋 Hi! Add me to a group and type /start to subscribe to quizzes."
	GroupOnlyNotice       = "This command only works in groups."
	ErrorNotice           = "⚠️ Something went wrong, please try again later."
)

var correctPool = []string{
	"🎉 Brilliant, you nailed it! +%d points!\nYour score: %d",
	"🚀 Right on track, future doctor! +%d points!\nYour score: %d",
	"💯 Perfect! You are going to crack this exam! +%d points!\nYour score: %d",
}

var incorrectPool = []string{
	"😔 A bit more practice needed! %d point\nYour score: %d",
	"🫠 Not quite this time! %d point\nYour score: %d",
	"😅 Wrong one, but keep trying! %d point\nYour score: %d",
}

// Welcome is sent when a group subscribes.
func Welcome(interval string) string {
	return fmt.Sprintf("🤖 Welcome! I'll send a quiz every %s. Reply to a quiz with A/B/C/D.\nUse /score to check your points.", interval)
}

// Score formats a score query reply.
func Score(score int64) string {
	return fmt.Sprintf("📊 Your current score: %d points", score)
}

// FormatQuestion renders a question as a broadcast message.
func FormatQuestion(q domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 Quiz Time! Subject: %s\n\n", strings.ToUpper(q.Subject))
	b.WriteString(q.Prompt)
	b.WriteString("\n\n")
	labels := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		fmt.Fprintf(&b, "%s) %s\n", opt.Label, opt.Text)
		labels = append(labels, opt.Label)
	}
	fmt.Fprintf(&b, "\nReply with %s to answer! ⏰", joinLabels(labels))
	return b.String()
}

// Response maps an outcome to reply text. Scored outcomes pick a line from
// the pool of their kind.
func Response(o domain.Outcome) string {
	switch o.Kind {
	case domain.OutcomeNoActiveQuiz:
		return NoActiveQuizNotice
	case domain.OutcomeAlreadyAnswered:
		return AlreadyAnsweredNotice
	case domain.OutcomeCorrect:
		return fmt.Sprintf(pick(correctPool), o.Delta, o.Score)
	case domain.OutcomeIncorrect:
		return fmt.Sprintf(pick(incorrectPool), o.Delta, o.Score)
	default:
		return ErrorNotice
	}
}

func pick(pool []string) string {
	return pool[rand.IntN(len(pool))]
}

// joinLabels renders "A, B, C, or D".
func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " or " + labels[1]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + ", or " + labels[len(labels)-1]
}
