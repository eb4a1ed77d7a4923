package memory

import (
	"context"
	"log"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"group-quiz-bot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the whole question bank, keyed by subject, from a
// backing store (files, Postgres, a Redis cache).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) (map[string][]domain.Question, error)
}

// QuestionBank caches the loaded bank with a TTL and picks questions from it.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	subjects  []string
	questions map[string][]domain.Question
	expiresAt time.Time
	loaded    bool
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	seed := uint64(time.Now().UnixNano())
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// PickRandom chooses a subject uniformly, then a question within it.
func (b *QuestionBank) PickRandom(ctx context.Context) (domain.Question, error) {
	subjects, questions, err := b.snapshot(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if len(subjects) == 0 {
		return domain.Question{}, domain.ErrNoQuestions
	}

	b.rndMu.Lock()
	subject := subjects[b.rnd.IntN(len(subjects))]
	list := questions[subject]
	q := list[b.rnd.IntN(len(list))]
	b.rndMu.Unlock()
	return q, nil
}

// Count returns the number of cached questions per subject.
func (b *QuestionBank) Count(ctx context.Context) (map[string]int, error) {
	_, questions, err := b.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(questions))
	for subject, list := range questions {
		out[subject] = len(list)
	}
	return out, nil
}

func (b *QuestionBank) snapshot(ctx context.Context) ([]string, map[string][]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if b.loaded && b.expiresAt.After(now) {
		subjects, questions := b.subjects, b.questions
		b.mu.RUnlock()
		return subjects, questions, nil
	}
	b.mu.RUnlock()

	_, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		fresh := b.loaded && b.expiresAt.After(now)
		b.mu.RUnlock()
		if fresh {
			return nil, nil
		}

		loaded, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		subjects, questions := index(loaded)

		b.mu.Lock()
		b.subjects = subjects
		b.questions = questions
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.loaded = true
		b.mu.Unlock()
		return nil, nil
	})

	b.mu.RLock()
	defer b.mu.RUnlock()
	if err != nil {
		if !b.loaded {
			return nil, nil, err
		}
		log.Printf("[bank] reload failed, serving cached questions: %v", err)
	}
	return b.subjects, b.questions, nil
}

// index drops empty subjects and orders the rest for stable picking.
func index(loaded map[string][]domain.Question) ([]string, map[string][]domain.Question) {
	questions := make(map[string][]domain.Question, len(loaded))
	subjects := make([]string, 0, len(loaded))
	for subject, list := range loaded {
		if len(list) == 0 {
			continue
		}
		questions[subject] = list
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects, questions
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread reloads across replicas
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int64N(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	questions map[string][]domain.Question
}

func NewStaticQuestionLoader(questions map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) (map[string][]domain.Question, error) {
	return l.questions, nil
}
