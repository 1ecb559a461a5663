package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

const questionColumns = `id::text, category_slug, text, choices, correct_answer, difficulty, created_at`

// QuestionRepository 문제 카탈로그 (pgx 풀)
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func collectQuestions(rows pgx.Rows) ([]models.Question, error) {
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(
			&q.ID,
			&q.Category,
			&q.Text,
			&q.Choices,
			&q.CorrectAnswer,
			&q.Difficulty,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// SampleByCategory 카테고리에서 n개 무작위 추출
func (r *QuestionRepository) SampleByCategory(ctx context.Context, category string, n int) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE category_slug = $1
		ORDER BY random()
		LIMIT $2
	`, category, n)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	return collectQuestions(rows)
}

// LoadCategory 카테고리의 전체 문제 (캐시 적재용)
func (r *QuestionRepository) LoadCategory(ctx context.Context, category string) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE category_slug = $1
		ORDER BY created_at ASC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	return collectQuestions(rows)
}

// HasCategory 카테고리 존재 여부
func (r *QuestionRepository) HasCategory(ctx context.Context, category string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, category).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return exists, nil
}

// Categories 전체 카테고리 목록
func (r *QuestionRepository) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Slug, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// UpsertCategory 시드용 카테고리 저장
func (r *QuestionRepository) UpsertCategory(ctx context.Context, c models.Category) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
	`, c.Slug, c.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

// UpsertQuestion 시드용 문제 저장 (카테고리+본문이 키)
func (r *QuestionRepository) UpsertQuestion(ctx context.Context, q models.Question) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO questions (category_slug, text, choices, correct_answer, difficulty)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category_slug, text) DO UPDATE
		SET choices = EXCLUDED.choices,
			correct_answer = EXCLUDED.correct_answer,
			difficulty = EXCLUDED.difficulty
	`, q.Category, q.Text, q.Choices, q.CorrectAnswer, q.Difficulty)
	if err != nil {
		return fmt.Errorf("failed to upsert question: %w", err)
	}
	return nil
}
