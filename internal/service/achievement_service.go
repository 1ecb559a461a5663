package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
)

// AchievementService 답변 기록 후 업적 조건 평가 및 수여
type AchievementService struct {
	achievements AchievementStore
	matches      MatchStore
	notifier     Notifier
	logger       *zap.Logger
}

func NewAchievementService(achievements AchievementStore, matches MatchStore, logger *zap.Logger) *AchievementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AchievementService{
		achievements: achievements,
		matches:      matches,
		notifier:     noopNotifier{},
		logger:       logger,
	}
}

func (s *AchievementService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// evaluationContext 조건 평가에 필요한 값 (필요할 때만 조회)
type evaluationContext struct {
	ctx     context.Context
	s       *AchievementService
	match   *models.Match
	roundID string

	streaks     map[string]int
	fastestInMs *int
	loadedFast  bool
}

// Evaluate 카탈로그의 각 업적을 평가해 충족 시 두 참가자 모두에게 수여
// match 는 답변이 반영된 이후의 상태여야 한다.
func (s *AchievementService) Evaluate(ctx context.Context, match *models.Match, answer *models.Answer) ([]models.Achievement, error) {
	catalog, err := s.achievements.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	ec := &evaluationContext{ctx: ctx, s: s, match: match, roundID: answer.RoundID}

	var unlocked []models.Achievement
	for _, a := range catalog {
		ok, err := ec.satisfied(a.Criteria)
		if err != nil {
			return unlocked, err
		}
		if !ok {
			continue
		}

		for _, playerID := range []string{match.Player1ID, match.Player2ID} {
			awarded, err := s.achievements.Award(ctx, playerID, a.ID, match.ID)
			if err != nil {
				return unlocked, fmt.Errorf("failed to award achievement %s: %w", a.Code, err)
			}
			if !awarded {
				continue
			}

			metrics.AchievementsAwardedTotal.Inc()
			s.logger.Info("Achievement unlocked",
				zap.String("playerId", playerID),
				zap.String("achievement", a.Code),
				zap.String("matchId", match.ID))
			s.notifier.SendToUser(playerID, "achievement_unlocked", map[string]interface{}{
				"code":    a.Code,
				"name":    a.Name,
				"matchId": match.ID,
			})
		}
		unlocked = append(unlocked, a)
	}

	return unlocked, nil
}

// ListForPlayer 플레이어가 받은 업적
func (s *AchievementService) ListForPlayer(ctx context.Context, playerID string) ([]models.AchievementAward, error) {
	awards, err := s.achievements.ListAwards(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	if awards == nil {
		awards = []models.AchievementAward{}
	}
	return awards, nil
}

// satisfied 존재하는 조건을 모두 만족해야 한다 (조건 없음 = 충족)
func (ec *evaluationContext) satisfied(c models.AchievementCriteria) (bool, error) {
	if c.MinScore != nil {
		if ec.match.Player1Score < *c.MinScore && ec.match.Player2Score < *c.MinScore {
			return false, nil
		}
	}

	if c.ConsecutiveCorrect != nil {
		streaks, err := ec.streaksByPlayer()
		if err != nil {
			return false, err
		}
		if streaks[ec.match.Player1ID] < *c.ConsecutiveCorrect && streaks[ec.match.Player2ID] < *c.ConsecutiveCorrect {
			return false, nil
		}
	}

	if c.FastAnswerMs != nil {
		fastest, err := ec.fastestInRound()
		if err != nil {
			return false, err
		}
		if fastest == nil || *fastest > *c.FastAnswerMs {
			return false, nil
		}
	}

	return true, nil
}

func (ec *evaluationContext) streaksByPlayer() (map[string]int, error) {
	if ec.streaks != nil {
		return ec.streaks, nil
	}

	ec.streaks = make(map[string]int, 2)
	for _, playerID := range []string{ec.match.Player1ID, ec.match.Player2ID} {
		answers, err := ec.s.matches.ListAnswers(ec.ctx, ec.match.ID, playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list answers: %w", err)
		}
		ec.streaks[playerID] = CurrentStreak(answers)
	}
	return ec.streaks, nil
}

func (ec *evaluationContext) fastestInRound() (*int, error) {
	if ec.loadedFast {
		return ec.fastestInMs, nil
	}

	answers, err := ec.s.matches.ListRoundAnswers(ec.ctx, ec.roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round answers: %w", err)
	}
	for i := range answers {
		t := answers[i].ResponseTimeMs
		if ec.fastestInMs == nil || t < *ec.fastestInMs {
			ec.fastestInMs = &t
		}
	}
	ec.loadedFast = true
	return ec.fastestInMs, nil
}

// CurrentStreak 가장 최근 답변부터 첫 오답 전까지의 연속 정답 수
// answers 는 오래된 순서로 정렬되어 있어야 한다.
func CurrentStreak(answers []models.Answer) int {
	streak := 0
	for i := len(answers) - 1; i >= 0; i-- {
		if !answers[i].IsCorrect {
			break
		}
		streak++
	}
	return streak
}
