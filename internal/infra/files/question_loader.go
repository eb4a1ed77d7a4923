package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"group-quiz-bot/internal/domain"
	"gopkg.in/yaml.v3"
)

// rawQuestion is the on-disk shape of one question:
//
//	{"question": "...", "options": {"A": "...", "B": "..."}, "answer": "B"}
type rawQuestion struct {
	Question string            `json:"question" yaml:"question"`
	Options  map[string]string `json:"options" yaml:"options"`
	Answer   string            `json:"answer" yaml:"answer"`
}

// QuestionLoader reads one file per subject from a directory. The subject is
// the file name without extension. JSON and YAML files are supported.
type QuestionLoader struct {
	dir string
}

func NewQuestionLoader(dir string) *QuestionLoader {
	return &QuestionLoader{dir: dir}
}

// LoadQuestions parses every question file in the directory. Unreadable files
// and invalid questions are logged and skipped; a missing directory yields an
// empty bank.
func (l *QuestionLoader) LoadQuestions(_ context.Context) (map[string][]domain.Question, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[bank] questions dir %s does not exist", l.dir)
		return map[string][]domain.Question{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read questions dir: %w", err)
	}

	subjects := make(map[string][]domain.Question)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		subject := strings.TrimSuffix(name, filepath.Ext(name))

		questions, err := ParseFile(filepath.Join(l.dir, name), subject)
		if err != nil {
			log.Printf("[bank] skipping %s: %v", name, err)
			continue
		}
		subjects[subject] = append(subjects[subject], questions...)
	}
	return subjects, nil
}

// ParseFile decodes one subject file and returns its valid questions.
func ParseFile(path, subject string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []rawQuestion
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	questions := make([]domain.Question, 0, len(raw))
	for i, r := range raw {
		q := r.toQuestion(subject)
		if err := q.Validate(); err != nil {
			log.Printf("[bank] %s question %d: %v", filepath.Base(path), i+1, err)
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r rawQuestion) toQuestion(subject string) domain.Question {
	labels := make([]string, 0, len(r.Options))
	for label := range r.Options {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	options := make([]domain.Option, 0, len(labels))
	for _, label := range labels {
		options = append(options, domain.Option{
			Label: strings.ToUpper(strings.TrimSpace(label)),
			Text:  r.Options[label],
		})
	}
	return domain.Question{
		Subject: subject,
		Prompt:  strings.TrimSpace(r.Question),
		Options: options,
		Answer:  strings.ToUpper(strings.TrimSpace(r.Answer)),
	}
}
