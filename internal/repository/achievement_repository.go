package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
)

// AchievementRepository 업적 카탈로그 + 수여 기록
type AchievementRepository struct {
	db *database.DB
}

func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListAchievements 전체 업적 정의
func (r *AchievementRepository) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, description, criteria
		FROM achievements
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		var raw []byte
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &a.Criteria); err != nil {
				return nil, fmt.Errorf("failed to decode criteria for %s: %w", a.Code, err)
			}
		}
		achievements = append(achievements, a)
	}

	return achievements, rows.Err()
}

// Award 업적 수여 (이미 있으면 false)
func (r *AchievementRepository) Award(ctx context.Context, playerID, achievementID, matchID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO player_achievements (player_id, achievement_id, match_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, achievement_id) DO NOTHING
	`, playerID, achievementID, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read award result: %w", err)
	}
	return n == 1, nil
}

// ListAwards 플레이어가 받은 업적 (최근 순)
func (r *AchievementRepository) ListAwards(ctx context.Context, playerID string) ([]models.AchievementAward, error) {
	if !validID(playerID) {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT pa.player_id, pa.achievement_id, a.code, a.name, pa.match_id, pa.awarded_at
		FROM player_achievements pa
		JOIN achievements a ON a.id = pa.achievement_id
		WHERE pa.player_id = $1
		ORDER BY pa.awarded_at DESC
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query awards: %w", err)
	}
	defer rows.Close()

	var awards []models.AchievementAward
	for rows.Next() {
		var a models.AchievementAward
		if err := rows.Scan(&a.PlayerID, &a.AchievementID, &a.Code, &a.Name, &a.MatchID, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, a)
	}

	return awards, rows.Err()
}

// UpsertAchievement 시드용 업적 저장 (code 기준)
func (r *AchievementRepository) UpsertAchievement(ctx context.Context, a models.Achievement) error {
	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO achievements (code, name, description, criteria)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			criteria = EXCLUDED.criteria
	`, a.Code, a.Name, a.Description, string(criteria))
	if err != nil {
		return fmt.Errorf("failed to upsert achievement: %w", err)
	}
	return nil
}
