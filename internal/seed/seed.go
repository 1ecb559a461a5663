// Package seed 카테고리/문제/업적 카탈로그를 YAML 에서 읽어 저장소에 반영
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog 시드 파일 구조
type Catalog struct {
	Categories   []models.Category    `yaml:"categories"`
	Questions    []models.Question    `yaml:"questions"`
	Achievements []models.Achievement `yaml:"achievements"`
}

// QuestionWriter 문제 은행 쓰기 (memory.QuestionBank, repository.QuestionRepository)
type QuestionWriter interface {
	UpsertCategory(ctx context.Context, c models.Category) error
	UpsertQuestion(ctx context.Context, q models.Question) error
}

// AchievementWriter 업적 카탈로그 쓰기
type AchievementWriter interface {
	UpsertAchievement(ctx context.Context, a models.Achievement) error
}

// Summary 반영 결과
type Summary struct {
	Categories   int
	Questions    int
	Achievements int
}

// Load path 가 비어 있으면 내장 카탈로그
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return Parse(data)
}

// Parse YAML 파싱 후 카테고리 정규화 및 검증
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize() error {
	known := make(map[string]bool, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Slug == "" {
			cat.Slug = cat.Name
		}
		cat.Slug = service.NormalizeCategory(cat.Slug)
		if cat.Slug == "" {
			return fmt.Errorf("category %d: name is required", i+1)
		}
		if cat.Name == "" {
			cat.Name = cat.Slug
		}
		known[cat.Slug] = true
	}

	var errs []error
	for i := range c.Questions {
		q := &c.Questions[i]
		q.Category = service.NormalizeCategory(q.Category)
		q.Text = strings.TrimSpace(q.Text)

		switch {
		case !known[q.Category]:
			errs = append(errs, fmt.Errorf("question %d: unknown category %q", i+1, q.Category))
		case q.Text == "":
			errs = append(errs, fmt.Errorf("question %d: text is required", i+1))
		case strings.TrimSpace(q.CorrectAnswer) == "":
			errs = append(errs, fmt.Errorf("question %d: answer is required", i+1))
		case len(q.Choices) > 0 && !containsChoice(q.Choices, q.CorrectAnswer):
			errs = append(errs, fmt.Errorf("question %d: answer %q is not one of the choices", i+1, q.CorrectAnswer))
		}
	}

	seen := make(map[string]bool, len(c.Achievements))
	for i, a := range c.Achievements {
		switch {
		case a.Code == "":
			errs = append(errs, fmt.Errorf("achievement %d: code is required", i+1))
		case seen[a.Code]:
			errs = append(errs, fmt.Errorf("achievement %d: duplicate code %q", i+1, a.Code))
		}
		seen[a.Code] = true
	}

	return errors.Join(errs...)
}

func containsChoice(choices []string, answer string) bool {
	for _, c := range choices {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(answer)) {
			return true
		}
	}
	return false
}

// Apply 카탈로그를 저장소에 upsert (여러 번 실행해도 같은 결과)
func Apply(ctx context.Context, c *Catalog, questions QuestionWriter, achievements AchievementWriter, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sum Summary

	for _, cat := range c.Categories {
		if err := questions.UpsertCategory(ctx, cat); err != nil {
			return sum, err
		}
		sum.Categories++
	}

	for _, q := range c.Questions {
		if err := questions.UpsertQuestion(ctx, q); err != nil {
			return sum, err
		}
		sum.Questions++
	}

	for _, a := range c.Achievements {
		// 조건이 없으면 첫 답변마다 수여된다
		if a.Criteria.IsEmpty() {
			logger.Warn("Achievement has no criteria and will be awarded on any answer",
				zap.String("code", a.Code))
		}
		if err := achievements.UpsertAchievement(ctx, a); err != nil {
			return sum, err
		}
		sum.Achievements++
	}

	logger.Info("Catalog seeded",
		zap.Int("categories", sum.Categories),
		zap.Int("questions", sum.Questions),
		zap.Int("achievements", sum.Achievements))
	return sum, nil
}
