package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Match 두 플레이어 간의 한 게임
// Player1 = 매칭을 요청한 플레이어, Player2 = 상대 (첫 라운드 카테고리 선택자)
type Match struct {
	ID                string      `json:"id" db:"id"`
	Player1ID         string      `json:"player1Id" db:"player1_id"`
	Player2ID         string      `json:"player2Id" db:"player2_id"`
	Status            MatchStatus `json:"status" db:"status"`
	Player1Score      int         `json:"player1Score" db:"player1_score"`
	Player2Score      int         `json:"player2Score" db:"player2_score"`
	Player1Correct    int         `json:"player1Correct" db:"player1_correct"`
	Player2Correct    int         `json:"player2Correct" db:"player2_correct"`
	Player1Answered   int         `json:"player1Answered" db:"player1_answered"`
	Player2Answered   int         `json:"player2Answered" db:"player2_answered"`
	TotalRounds       int         `json:"totalRounds" db:"total_rounds"`
	QuestionsPerRound int         `json:"questionsPerRound" db:"questions_per_round"`
	WinnerID          *string     `json:"winnerId,omitempty" db:"winner_id"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	StartedAt         *time.Time  `json:"startedAt,omitempty" db:"started_at"`
	EndedAt           *time.Time  `json:"endedAt,omitempty" db:"ended_at"`
	LastActivity      time.Time   `json:"lastActivity" db:"last_activity"`
}

// IsParticipant 참가자 여부
func (m *Match) IsParticipant(playerID string) bool {
	return playerID != "" && (playerID == m.Player1ID || playerID == m.Player2ID)
}

// OpponentOf 상대 플레이어 ID
func (m *Match) OpponentOf(playerID string) string {
	if playerID == m.Player1ID {
		return m.Player2ID
	}
	return m.Player1ID
}

// IsTerminal finished/cancelled 이후에는 변경 불가
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusFinished || m.Status == MatchStatusCancelled
}

// ChooserForRound 라운드 번호로 카테고리 선택자 결정
// 홀수 라운드는 Player2(상대), 짝수 라운드는 Player1
func (m *Match) ChooserForRound(roundNumber int) string {
	if roundNumber%2 == 1 {
		return m.Player2ID
	}
	return m.Player1ID
}

// RequiredAnswers 플레이어당 필요한 총 답변 수
func (m *Match) RequiredAnswers() int {
	return m.TotalRounds * m.QuestionsPerRound
}

// AllAnswered 두 플레이어 모두 모든 문제에 답했는지
func (m *Match) AllAnswered() bool {
	required := m.RequiredAnswers()
	return required > 0 && m.Player1Answered >= required && m.Player2Answered >= required
}

func (m *Match) ScoreOf(playerID string) int {
	if playerID == m.Player1ID {
		return m.Player1Score
	}
	return m.Player2Score
}

func (m *Match) CorrectOf(playerID string) int {
	if playerID == m.Player1ID {
		return m.Player1Correct
	}
	return m.Player2Correct
}

func (m *Match) AnsweredOf(playerID string) int {
	if playerID == m.Player1ID {
		return m.Player1Answered
	}
	return m.Player2Answered
}

// MatchStatusView 매치 상태 응답
type MatchStatusView struct {
	MatchID        string      `json:"matchId"`
	Player1ID      string      `json:"player1Id"`
	Player2ID      string      `json:"player2Id"`
	Player1Score   int         `json:"player1Score"`
	Player2Score   int         `json:"player2Score"`
	Player1Correct int         `json:"player1Correct"`
	Player2Correct int         `json:"player2Correct"`
	Status         MatchStatus `json:"status"`
	WinnerID       *string     `json:"winnerId"`
	TotalRounds    int         `json:"totalRounds"`
}

// AnswerResult 답변 제출 결과
type AnswerResult struct {
	Correct       bool `json:"correct"`
	PointsEarned  int  `json:"pointsEarned"`
	MatchFinished bool `json:"matchFinished"`
}

// MatchOutcome 매치 종료 시 플레이어별 결과
type MatchOutcome string

const (
	OutcomeWin  MatchOutcome = "win"
	OutcomeLoss MatchOutcome = "loss"
	OutcomeDraw MatchOutcome = "draw"
)
