package service

import (
	"math"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

// ELOService 플레이어 레이팅 계산
type ELOService struct{}

func NewELOService() *ELOService {
	return &ELOService{}
}

// GetKFactor 경기 수에 따른 K-factor (잠정 레이팅)
// - 10경기 미만: K=40 (빠른 수렴)
// - 20경기 미만: K=32
// - 그 이후: K=24 (안정)
func (s *ELOService) GetKFactor(gamesPlayed int) float64 {
	if gamesPlayed < 10 {
		return 40.0
	} else if gamesPlayed < 20 {
		return 32.0
	}
	return 24.0
}

// ScoreFor 매치 결과를 ELO 실제 점수로 변환
func ScoreFor(outcome models.MatchOutcome) float64 {
	switch outcome {
	case models.OutcomeWin:
		return 1.0
	case models.OutcomeLoss:
		return 0.0
	default:
		return 0.5
	}
}

// CalculateNewRatings 두 플레이어의 새 레이팅 계산
// result: 1.0 (player1 승), 0.5 (무승부), 0.0 (player2 승)
func (s *ELOService) CalculateNewRatings(
	player1Rating, player2Rating int,
	player1Games, player2Games int,
	result float64,
) (newPlayer1, newPlayer2, player1Change, player2Change int) {
	expected1 := s.expectedScore(float64(player1Rating), float64(player2Rating))
	expected2 := 1.0 - expected1

	k1 := s.GetKFactor(player1Games)
	k2 := s.GetKFactor(player2Games)

	newPlayer1 = int(math.Round(float64(player1Rating) + k1*(result-expected1)))
	newPlayer2 = int(math.Round(float64(player2Rating) + k2*((1.0-result)-expected2)))

	player1Change = newPlayer1 - player1Rating
	player2Change = newPlayer2 - player2Rating

	return
}

// expectedScore 기대 승률
func (s *ELOService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
