package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

// QuestionBank 인메모리 문제 카탈로그
type QuestionBank struct {
	mu         sync.RWMutex
	categories map[string]models.Category
	questions  map[string][]models.Question
	rnd        *rand.Rand
}

func NewQuestionBank() *QuestionBank {
	return &QuestionBank{
		categories: make(map[string]models.Category),
		questions:  make(map[string][]models.Question),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) UpsertCategory(_ context.Context, c models.Category) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.categories[c.Slug]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = time.Now()
	}
	b.categories[c.Slug] = c
	return nil
}

// UpsertQuestion (카테고리, 본문) 기준으로 갱신
func (b *QuestionBank) UpsertQuestion(_ context.Context, q models.Question) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.questions[q.Category]
	for i := range list {
		if list[i].Text == q.Text {
			q.ID = list[i].ID
			q.CreatedAt = list[i].CreatedAt
			list[i] = q
			return nil
		}
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now()
	b.questions[q.Category] = append(list, q)
	return nil
}

func (b *QuestionBank) LoadCategory(_ context.Context, category string) ([]models.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]models.Question(nil), b.questions[category]...), nil
}

// SampleByCategory 최대 n개 무작위 추출
func (b *QuestionBank) SampleByCategory(_ context.Context, category string, n int) ([]models.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pool := append([]models.Question(nil), b.questions[category]...)
	b.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool, nil
}

func (b *QuestionBank) HasCategory(_ context.Context, category string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.categories[category]
	return ok, nil
}

func (b *QuestionBank) Categories(_ context.Context) ([]models.Category, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Category, 0, len(b.categories))
	for _, c := range b.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
