package models

import "time"

const DefaultRating = 1200

// PlayerStats 플레이어 누적 통계
type PlayerStats struct {
	PlayerID       string    `json:"playerId" db:"user_id"`
	GamesPlayed    int       `json:"gamesPlayed" db:"games_played"`
	Wins           int       `json:"wins" db:"wins"`
	Losses         int       `json:"losses" db:"losses"`
	Draws          int       `json:"draws" db:"draws"`
	CorrectAnswers int       `json:"correctAnswers" db:"correct_answers"`
	TotalAnswers   int       `json:"totalAnswers" db:"total_answers"`
	TotalPoints    int       `json:"totalPoints" db:"total_points"`
	HighestScore   int       `json:"highestScore" db:"highest_score"`
	Rating         int       `json:"rating" db:"rating"`
	Rank           int64     `json:"rank" db:"-"` // 0 = 아직 순위 없음
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Accuracy 정답률 (0~1)
func (s *PlayerStats) Accuracy() float64 {
	if s.TotalAnswers == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalAnswers)
}

// ResultUpdate 매치 종료 시 한 플레이어에게 반영할 변화량
type ResultUpdate struct {
	PlayerID     string
	Outcome      MatchOutcome
	Correct      int
	Answered     int
	Points       int
	RatingChange int
}

type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	PlayerID string `json:"playerId"`
	Username string `json:"username,omitempty"`
	Rating   int    `json:"rating"`
}
