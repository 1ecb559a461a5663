package models

import "time"

// AchievementCriteria 업적 조건 (존재하는 조건은 모두 충족해야 함)
type AchievementCriteria struct {
	MinScore           *int `json:"min_score,omitempty" yaml:"min_score,omitempty"`
	ConsecutiveCorrect *int `json:"consecutive_correct,omitempty" yaml:"consecutive_correct,omitempty"`
	FastAnswerMs       *int `json:"fast_answer,omitempty" yaml:"fast_answer,omitempty"`
}

// IsEmpty 인식 가능한 조건이 하나도 없는지
func (c AchievementCriteria) IsEmpty() bool {
	return c.MinScore == nil && c.ConsecutiveCorrect == nil && c.FastAnswerMs == nil
}

type Achievement struct {
	ID          string              `json:"id" db:"id" yaml:"-"`
	Code        string              `json:"code" db:"code" yaml:"code"`
	Name        string              `json:"name" db:"name" yaml:"name"`
	Description string              `json:"description" db:"description" yaml:"description"`
	Criteria    AchievementCriteria `json:"criteria" db:"criteria" yaml:"criteria"`
}

// AchievementAward (player, achievement) 당 한 번만 수여
type AchievementAward struct {
	PlayerID      string    `json:"playerId" db:"player_id"`
	AchievementID string    `json:"achievementId" db:"achievement_id"`
	Code          string    `json:"code" db:"code"`
	Name          string    `json:"name" db:"name"`
	MatchID       string    `json:"matchId" db:"match_id"`
	AwardedAt     time.Time `json:"awardedAt" db:"awarded_at"`
}
