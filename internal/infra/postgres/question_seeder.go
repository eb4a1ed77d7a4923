package postgres

import (
	"context"
	"fmt"

	"group-quiz-bot/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID      int64           `bun:"id,pk,autoincrement"`
	Subject string          `bun:"subject,notnull"`
	Prompt  string          `bun:"prompt,notnull"`
	Options []domain.Option `bun:"options,type:jsonb,notnull"`
	Answer  string          `bun:"answer,notnull"`
}

// QuestionSeeder upserts question files into the questions table.
type QuestionSeeder struct {
	db *bun.DB
}

func NewQuestionSeeder(db *bun.DB) *QuestionSeeder {
	return &QuestionSeeder{db: db}
}

// Seed writes every question, replacing options and answer of rows that share
// subject and prompt. It returns the number of rows written.
func (s *QuestionSeeder) Seed(ctx context.Context, bank map[string][]domain.Question) (int, error) {
	rows := make([]questionRow, 0)
	// one upsert may not touch the same row twice
	seen := make(map[[2]string]bool)
	for subject, questions := range bank {
		for _, q := range questions {
			key := [2]string{subject, q.Prompt}
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, questionRow{
				Subject: subject,
				Prompt:  q.Prompt,
				Options: q.Options,
				Answer:  q.Answer,
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		ExcludeColumn("id").
		On("CONFLICT (subject, prompt) DO UPDATE").
		Set("options = EXCLUDED.options").
		Set("answer = EXCLUDED.answer").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	return len(rows), nil
}
