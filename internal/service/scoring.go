package service

import "github.com/rl-arena/trivia-arena-backend/internal/models"

// CalculatePoints 응답 시간에 따라 선형 감소하는 점수 계산
// 오답은 0점, 제한 시간이 없으면 basePoints, 제한 시간 이상이면 0점
func CalculatePoints(basePoints, timeLimitSeconds, responseTimeMs int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	if timeLimitSeconds <= 0 {
		return basePoints
	}
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	maxTimeMs := timeLimitSeconds * 1000
	if responseTimeMs >= maxTimeMs {
		return 0
	}

	// 정수 연산으로 floor(base * (1 - t/max))
	return basePoints * (maxTimeMs - responseTimeMs) / maxTimeMs
}

// DetermineWinner 정답 수가 더 많은 플레이어가 승자, 같으면 무승부(nil)
func DetermineWinner(m *models.Match) *string {
	switch {
	case m.Player1Correct > m.Player2Correct:
		winner := m.Player1ID
		return &winner
	case m.Player2Correct > m.Player1Correct:
		winner := m.Player2ID
		return &winner
	default:
		return nil
	}
}

// OutcomeFor 승자 정보로 플레이어별 결과 계산
func OutcomeFor(playerID string, winnerID *string) models.MatchOutcome {
	switch {
	case winnerID == nil:
		return models.OutcomeDraw
	case *winnerID == playerID:
		return models.OutcomeWin
	default:
		return models.OutcomeLoss
	}
}
