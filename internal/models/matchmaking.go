package models

import "time"

// WaitingEntry 매칭 대기열 항목 (플레이어당 최대 1개)
type WaitingEntry struct {
	PlayerID string    `db:"user_id" json:"playerId"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}

const MatchRequestWaiting = "waiting"

// MatchRequestResult 매칭 요청 결과
type MatchRequestResult struct {
	MatchID          string `json:"matchId,omitempty"`
	OpponentID       string `json:"opponentId,omitempty"`
	Status           string `json:"status"`
	YourTurnToChoose bool   `json:"yourTurnToChoose"`
}

// MatchmakingHistory 매칭 기록
type MatchmakingHistory struct {
	ID        string    `db:"id" json:"id"`
	Player1ID string    `db:"player1_id" json:"player1Id"`
	Player2ID string    `db:"player2_id" json:"player2Id"`
	MatchID   string    `db:"match_id" json:"matchId"`
	WaitedMs  int64     `db:"waited_ms" json:"waitedMs"`
	MatchedAt time.Time `db:"matched_at" json:"matchedAt"`
}
