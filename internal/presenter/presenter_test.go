package presenter

import (
	"fmt"
	"strings"
	"testing"

	"group-quiz-bot/internal/domain"
)

func TestFormatQuestion(t *testing.T) {
	msg := FormatQuestion(domain.Question{
		Subject: "physics",
		Prompt:  "SI unit of force?",
		Options: []domain.Option{
			{Label: "A", Text: "Joule"},
			{Label: "B", Text: "Newton"},
			{Label: "C", Text: "Watt"},
			{Label: "D", Text: "Pascal"},
		},
		Answer: "B",
	})

	for _, want := range []string{"Subject: PHYSICS", "SI unit of force?", "A) Joule\n", "D) Pascal\n", "Reply with A, B, C, or D"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Newton\nB") {
		t.Fatalf("options out of order:\n%s", msg)
	}
}

func TestResponseUsesPoolOfOutcomeKind(t *testing.T) {
	correct := Response(domain.Outcome{Kind: domain.OutcomeCorrect, Delta: domain.CorrectDelta, Score: 7})
	if !inPool(correct, correctPool, domain.CorrectDelta, 7) {
		t.Fatalf("correct response %q not in correct pool", correct)
	}

	wrong := Response(domain.Outcome{Kind: domain.OutcomeIncorrect, Delta: domain.IncorrectDelta, Score: -1})
	if !inPool(wrong, incorrectPool, domain.IncorrectDelta, -1) {
		t.Fatalf("incorrect response %q not in incorrect pool", wrong)
	}

	if got := Response(domain.Outcome{Kind: domain.OutcomeAlreadyAnswered}); got != AlreadyAnsweredNotice {
		t.Fatalf("unexpected already answered response %q", got)
	}
	if got := Response(domain.Outcome{Kind: domain.OutcomeNoActiveQuiz}); got != NoActiveQuizNotice {
		t.Fatalf("unexpected no active quiz response %q", got)
	}
}

func TestJoinLabels(t *testing.T) {
	if got := joinLabels([]string{"A", "B"}); got != "A or B" {
		t.Fatalf("got %q", got)
	}
	if got := joinLabels([]string{"A", "B", "C"}); got != "A, B, or C" {
		t.Fatalf("got %q", got)
	}
}

func inPool(msg string, pool []string, delta, score int64) bool {
	for _, tmpl := range pool {
		if fmt.Sprintf(tmpl, delta, score) == msg {
			return true
		}
	}
	return false
}
