package service

import (
	"time"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

// GameSettings 매치 생성 시 고정되는 게임 규칙
type GameSettings struct {
	RoundsPerMatch    int
	QuestionsPerRound int
	BasePoints        int
	TimeLimit         time.Duration
}

// DefaultGameSettings 5라운드 x 3문제, 문제당 100점, 20초
func DefaultGameSettings() GameSettings {
	return GameSettings{
		RoundsPerMatch:    5,
		QuestionsPerRound: 3,
		BasePoints:        100,
		TimeLimit:         20 * time.Second,
	}
}

func (g GameSettings) withDefaults() GameSettings {
	d := DefaultGameSettings()
	if g.RoundsPerMatch <= 0 {
		g.RoundsPerMatch = d.RoundsPerMatch
	}
	if g.QuestionsPerRound <= 0 {
		g.QuestionsPerRound = d.QuestionsPerRound
	}
	if g.BasePoints <= 0 {
		g.BasePoints = d.BasePoints
	}
	if g.TimeLimit < 0 {
		g.TimeLimit = 0
	}
	// 라운드는 초 단위로 저장되므로 올림 (0 은 제한 없음을 뜻한다)
	if rem := g.TimeLimit % time.Second; rem != 0 {
		g.TimeLimit += time.Second - rem
	}
	return g
}

// newRound 매치의 n번째 라운드 (선택자는 라운드 번호로 결정)
func newRound(m *models.Match, number int, g GameSettings) *models.Round {
	return &models.Round{
		MatchID:          m.ID,
		RoundNumber:      number,
		ChooserID:        m.ChooserForRound(number),
		TimeLimitSeconds: int(g.TimeLimit / time.Second),
		BasePoints:       g.BasePoints,
		QuestionCount:    m.QuestionsPerRound,
	}
}
