package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"group-quiz-bot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads the question bank from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) (map[string][]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT subject, prompt, options, answer FROM questions ORDER BY subject, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	bank := make(map[string][]domain.Question)
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.Subject, &q.Prompt, &raw, &q.Answer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if err := q.Validate(); err != nil {
			log.Printf("[bank] skipping stored question %q: %v", q.Prompt, err)
			continue
		}
		bank[q.Subject] = append(bank[q.Subject], q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return bank, nil
}
