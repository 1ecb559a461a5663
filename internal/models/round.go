package models

import "time"

type RoundState string

const (
	RoundStateAwaitingCategory RoundState = "awaiting_category"
	RoundStateCategorySet      RoundState = "category_set"
	RoundStateCompleted        RoundState = "completed"
)

// Round 카테고리 선택 + 문제 풀이 한 사이클
type Round struct {
	ID               string     `json:"id" db:"id"`
	MatchID          string     `json:"matchId" db:"match_id"`
	RoundNumber      int        `json:"roundNumber" db:"round_number"`
	ChooserID        string     `json:"chooserId" db:"chooser_id"`
	Category         *string    `json:"category,omitempty" db:"category_slug"`
	TimeLimitSeconds int        `json:"timeLimitSeconds" db:"time_limit_seconds"`
	BasePoints       int        `json:"basePoints" db:"base_points"`
	QuestionCount    int        `json:"questionCount" db:"question_count"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	CategoryChosenAt *time.Time `json:"categoryChosenAt,omitempty" db:"category_chosen_at"`
}

// HasCategory 카테고리가 이미 선택되었는지
func (r *Round) HasCategory() bool {
	return r.Category != nil && *r.Category != ""
}

// StateFor 특정 플레이어 관점의 라운드 상태
func (r *Round) StateFor(answered int) RoundState {
	if !r.HasCategory() {
		return RoundStateAwaitingCategory
	}
	if answered >= r.QuestionCount {
		return RoundStateCompleted
	}
	return RoundStateCategorySet
}

// RoundQuestion 라운드에 묶인 문제 (question_number 1..N)
type RoundQuestion struct {
	RoundID        string   `json:"-" db:"round_id"`
	QuestionNumber int      `json:"number" db:"question_number"`
	QuestionID     string   `json:"id" db:"question_id"`
	Text           string   `json:"text" db:"text"`
	Choices        []string `json:"choices" db:"choices"`
	CorrectAnswer  string   `json:"-" db:"correct_answer"`
}

// Answer 플레이어의 문제별 답변
type Answer struct {
	ID             string    `json:"id" db:"id"`
	RoundID        string    `json:"roundId" db:"round_id"`
	MatchID        string    `json:"matchId" db:"match_id"`
	PlayerID       string    `json:"playerId" db:"user_id"`
	QuestionNumber int       `json:"questionNumber" db:"question_number"`
	Answer         string    `json:"answer" db:"answer"`
	IsCorrect      bool      `json:"isCorrect" db:"is_correct"`
	ResponseTimeMs int       `json:"responseTimeMs" db:"response_time_ms"`
	PointsEarned   int       `json:"pointsEarned" db:"points_earned"`
	AnsweredAt     time.Time `json:"answeredAt" db:"answered_at"`
}

// ActiveRoundView 현재 진행 라운드 응답
type ActiveRoundView struct {
	RoundID          string     `json:"roundId"`
	RoundNumber      int        `json:"roundNumber"`
	ChooserID        string     `json:"chooserId"`
	Category         *string    `json:"category,omitempty"`
	State            RoundState `json:"state"`
	YourTurnToChoose bool       `json:"yourTurnToChoose"`
	Answered         int        `json:"answered"`
	QuestionCount    int        `json:"questionCount"`
}

// CategoryChoiceResult 카테고리 선택 결과
type CategoryChoiceResult struct {
	RoundID   string          `json:"roundId"`
	Category  string          `json:"category"`
	Questions []RoundQuestion `json:"questions"`
}
