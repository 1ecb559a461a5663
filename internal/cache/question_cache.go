// Package cache Redis 기반 문제 풀 캐시
package cache

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
)

// CategoryLoader 캐시 미스 시 원본 저장소에서 문제를 읽어온다
type CategoryLoader interface {
	LoadCategory(ctx context.Context, category string) ([]models.Question, error)
	HasCategory(ctx context.Context, category string) (bool, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// cachedQuestion 정답까지 포함한 캐시 표현 (models.Question 은 정답을 JSON 에서 숨김)
type cachedQuestion struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"answer"`
	Difficulty    string   `json:"difficulty"`
}

// QuestionCache 카테고리별 문제 풀을 Redis 에 JSON 으로 보관
// 키: questions:pool:{category}
type QuestionCache struct {
	client *redis.Client
	loader CategoryLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader CategoryLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func poolKey(category string) string {
	return "questions:pool:" + category
}

// SampleByCategory 캐시된 풀에서 최대 n개 무작위 추출
func (c *QuestionCache) SampleByCategory(ctx context.Context, category string, n int) ([]models.Question, error) {
	pool, err := c.pool(ctx, category)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	c.mu.Unlock()

	if len(pool) > n {
		pool = pool[:n]
	}
	return pool, nil
}

func (c *QuestionCache) HasCategory(ctx context.Context, category string) (bool, error) {
	return c.loader.HasCategory(ctx, category)
}

func (c *QuestionCache) Categories(ctx context.Context) ([]models.Category, error) {
	return c.loader.Categories(ctx)
}

// Invalidate 시드 이후 풀 갱신 (다음 조회 때 다시 적재)
func (c *QuestionCache) Invalidate(ctx context.Context, categories ...string) error {
	if len(categories) == 0 {
		return nil
	}
	keys := make([]string, len(categories))
	for i, category := range categories {
		keys[i] = poolKey(category)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate question pools: %w", err)
	}
	return nil
}

// InvalidateAll 원본 저장소에 있는 모든 카테고리의 풀 삭제
func (c *QuestionCache) InvalidateAll(ctx context.Context) (int, error) {
	categories, err := c.loader.Categories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list categories: %w", err)
	}
	slugs := make([]string, len(categories))
	for i, category := range categories {
		slugs[i] = category.Slug
	}
	if err := c.Invalidate(ctx, slugs...); err != nil {
		return 0, err
	}
	return len(slugs), nil
}

func (c *QuestionCache) pool(ctx context.Context, category string) ([]models.Question, error) {
	key := poolKey(category)

	if pool, ok := c.readCached(ctx, key); ok {
		metrics.QuestionCacheRequestsTotal.WithLabelValues("hit").Inc()
		return pool, nil
	}
	metrics.QuestionCacheRequestsTotal.WithLabelValues("miss").Inc()

	result, err, _ := c.sf.Do(category, func() (interface{}, error) {
		// 다른 고루틴이 채웠을 수 있음
		if pool, ok := c.readCached(ctx, key); ok {
			return pool, nil
		}

		pool, err := c.loader.LoadCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return pool, nil
		}

		entries := make([]cachedQuestion, len(pool))
		for i, q := range pool {
			entries[i] = cachedQuestion{
				ID:            q.ID,
				Category:      q.Category,
				Text:          q.Text,
				Choices:       q.Choices,
				CorrectAnswer: q.CorrectAnswer,
				Difficulty:    q.Difficulty,
			}
		}
		data, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to encode question pool: %w", err)
		}
		if err := c.client.Set(ctx, key, data, c.ttlWithJitter()).Err(); err != nil {
			// 캐시 없이도 동작한다
			logger.Debug("Failed to cache question pool", "category", category, "error", err)
		}

		return pool, nil
	})
	if err != nil {
		return nil, err
	}

	// singleflight 결과는 호출자끼리 공유되므로 복사
	return append([]models.Question(nil), result.([]models.Question)...), nil
}

func (c *QuestionCache) readCached(ctx context.Context, key string) ([]models.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}

	var entries []cachedQuestion
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}

	pool := make([]models.Question, len(entries))
	for i, e := range entries {
		pool[i] = models.Question{
			ID:            e.ID,
			Category:      e.Category,
			Text:          e.Text,
			Choices:       e.Choices,
			CorrectAnswer: e.CorrectAnswer,
			Difficulty:    e.Difficulty,
		}
	}
	return pool, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
