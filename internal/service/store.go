package service

import (
	"context"
	"time"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
)

// MatchQueue 매칭 대기열
// PopOldestOtherThan 은 동시 호출에서도 같은 항목을 두 번 반환하지 않아야 한다.
type MatchQueue interface {
	Join(ctx context.Context, playerID string) error
	Withdraw(ctx context.Context, playerID string) error
	PopOldestOtherThan(ctx context.Context, playerID string) (*models.WaitingEntry, error)
	// Requeue 꺼낸 항목을 JoinedAt 그대로 되돌린다
	Requeue(ctx context.Context, entry models.WaitingEntry) error
	ExpireOlderThan(ctx context.Context, age time.Duration) (int, error)
	Size(ctx context.Context) (int64, error)
}

// PlayerDirectory 플레이어 존재 확인 (없으면 nil, nil)
type PlayerDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UserStore 계정 저장소 (username/email 중복 시 repository.ErrDuplicate)
type UserStore interface {
	PlayerDirectory
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash, fullName string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fullName string, avatarURL *string) error
}

// QuestionBank 카테고리별 문제 샘플링
type QuestionBank interface {
	SampleByCategory(ctx context.Context, category string, n int) ([]models.Question, error)
	HasCategory(ctx context.Context, category string) (bool, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// MatchStore 매치/라운드/답변 저장소
// 각 메서드는 하나의 원자적 단위로 동작한다.
type MatchStore interface {
	// CreateMatch 매치와 첫 라운드를 함께 생성
	CreateMatch(ctx context.Context, match *models.Match, firstRound *models.Round) (*models.Match, *models.Round, error)
	FindMatch(ctx context.Context, id string) (*models.Match, error)
	FindRound(ctx context.Context, id string) (*models.Round, error)
	ListRounds(ctx context.Context, matchID string) ([]*models.Round, error)
	// BindCategory category IS NULL 인 경우에만 카테고리/문제를 묶고 다음 라운드를 생성
	// 이미 선택된 경우 repository.ErrConflict
	BindCategory(ctx context.Context, roundID, category string, questions []models.Question, next *models.Round) error
	RoundQuestions(ctx context.Context, roundID string) ([]models.RoundQuestion, error)
	// RecordAnswer 답변 저장 + 매치 점수/카운터 갱신 (중복이면 repository.ErrDuplicate)
	RecordAnswer(ctx context.Context, answer *models.Answer) (*models.Match, error)
	ListAnswers(ctx context.Context, matchID, playerID string) ([]models.Answer, error)
	ListRoundAnswers(ctx context.Context, roundID string) ([]models.Answer, error)
	CountAnswersByRound(ctx context.Context, matchID, playerID string) (map[string]int, error)
	// FinishMatch active 인 경우에만 finished 로 전환 (전환 여부 반환)
	FinishMatch(ctx context.Context, matchID string, winnerID *string) (bool, error)
	CancelIdle(ctx context.Context, cutoff time.Time) ([]string, error)
	ListActiveByPlayer(ctx context.Context, playerID string) ([]*models.Match, error)
	ListHistoryByPlayer(ctx context.Context, playerID string, limit, offset int) ([]*models.Match, error)
	RecordPairing(ctx context.Context, history *models.MatchmakingHistory) error
}

// AchievementStore 업적 카탈로그 및 수여 기록
type AchievementStore interface {
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	// Award (player, achievement) 중복 시 false, 에러 없음
	Award(ctx context.Context, playerID, achievementID, matchID string) (bool, error)
	ListAwards(ctx context.Context, playerID string) ([]models.AchievementAward, error)
}

// StatsStore 플레이어 통계
type StatsStore interface {
	GetStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
	// ApplyResults 전부 반영하거나 하나도 반영하지 않는다
	ApplyResults(ctx context.Context, updates []models.ResultUpdate) ([]*models.PlayerStats, error)
	TopByRating(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	// RankOf 1부터, 기록이 없으면 0
	RankOf(ctx context.Context, playerID string) (int64, error)
}

// Notifier 플레이어 알림 (웹소켓 허브)
type Notifier interface {
	SendToUser(userID string, msgType string, payload interface{})
}

// EventPublisher 매치 라이프사이클 이벤트 발행
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type noopNotifier struct{}

func (noopNotifier) SendToUser(string, string, interface{}) {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) error { return nil }
