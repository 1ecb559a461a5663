package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/repository"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// GameService 라운드 진행 (카테고리 선택, 답변, 종료)
// 모든 상태 전이는 저장소의 조건부 갱신으로 직렬화된다.
type GameService struct {
	matches      MatchStore
	questions    QuestionBank
	achievements *AchievementService
	stats        *StatsService
	notifier     Notifier
	publisher    EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

func NewGameService(
	matches MatchStore,
	questions QuestionBank,
	achievements *AchievementService,
	stats *StatsService,
	logger *zap.Logger,
) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameService{
		matches:      matches,
		questions:    questions,
		achievements: achievements,
		stats:        stats,
		notifier:     noopNotifier{},
		publisher:    noopPublisher{},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *GameService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *GameService) SetEventPublisher(p EventPublisher) {
	if p != nil {
		s.publisher = p
	}
}

// Categories 선택 가능한 카테고리 목록
func (s *GameService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.questions.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// ChooseCategory 라운드 카테고리 선택 및 문제 바인딩
func (s *GameService) ChooseCategory(ctx context.Context, matchID, roundID, playerID, category string) (*models.CategoryChoiceResult, error) {
	match, round, err := s.loadRound(ctx, matchID, roundID)
	if err != nil {
		return nil, err
	}

	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	if playerID != round.ChooserID {
		return nil, ErrNotYourTurn
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}
	if round.HasCategory() {
		return nil, ErrCategoryAlreadyChosen
	}

	slug := NormalizeCategory(category)
	if slug == "" {
		return nil, ErrInvalidCategory
	}
	exists, err := s.questions.HasCategory(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}
	if !exists {
		return nil, ErrInvalidCategory
	}

	picked, err := s.questions.SampleByCategory(ctx, slug, round.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	if len(picked) < round.QuestionCount {
		s.logger.Error("Category has too few questions",
			zap.String("category", slug),
			zap.Int("available", len(picked)),
			zap.Int("required", round.QuestionCount))
		return nil, ErrNotEnoughQuestions
	}

	var next *models.Round
	if round.RoundNumber < match.TotalRounds {
		number := round.RoundNumber + 1
		next = &models.Round{
			MatchID:          match.ID,
			RoundNumber:      number,
			ChooserID:        match.ChooserForRound(number),
			TimeLimitSeconds: round.TimeLimitSeconds,
			BasePoints:       round.BasePoints,
			QuestionCount:    round.QuestionCount,
		}
	}

	err = s.matches.BindCategory(ctx, round.ID, slug, picked, next)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrCategoryAlreadyChosen
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bind category: %w", err)
	}

	questions := make([]models.RoundQuestion, len(picked))
	for i, q := range picked {
		questions[i] = models.RoundQuestion{
			RoundID:        round.ID,
			QuestionNumber: i + 1,
			QuestionID:     q.ID,
			Text:           q.Text,
			Choices:        q.Choices,
		}
	}

	s.logger.Info("Category chosen",
		zap.String("matchId", match.ID),
		zap.Int("round", round.RoundNumber),
		zap.String("category", slug),
		zap.String("chooser", playerID))

	s.notifier.SendToUser(match.OpponentOf(playerID), "category_chosen", map[string]interface{}{
		"matchId":     match.ID,
		"roundId":     round.ID,
		"roundNumber": round.RoundNumber,
		"category":    slug,
	})

	return &models.CategoryChoiceResult{
		RoundID:   round.ID,
		Category:  slug,
		Questions: questions,
	}, nil
}

// SubmitAnswer 답변 제출 (상대를 기다리지 않는다)
func (s *GameService) SubmitAnswer(
	ctx context.Context,
	matchID, roundID, playerID string,
	questionNumber int,
	answer string,
	responseTimeMs int,
) (*models.AnswerResult, error) {
	match, round, err := s.loadRound(ctx, matchID, roundID)
	if err != nil {
		return nil, err
	}

	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}
	if !round.HasCategory() {
		return nil, ErrCategoryNotChosen
	}
	if questionNumber < 1 || questionNumber > round.QuestionCount {
		return nil, ErrInvalidQuestionNumber
	}

	questions, err := s.matches.RoundQuestions(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load round questions: %w", err)
	}
	var question *models.RoundQuestion
	for i := range questions {
		if questions[i].QuestionNumber == questionNumber {
			question = &questions[i]
			break
		}
	}
	if question == nil {
		return nil, ErrInvalidQuestionNumber
	}

	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	correct := answersMatch(answer, question.CorrectAnswer)
	points := CalculatePoints(round.BasePoints, round.TimeLimitSeconds, responseTimeMs, correct)

	record := &models.Answer{
		RoundID:        round.ID,
		MatchID:        match.ID,
		PlayerID:       playerID,
		QuestionNumber: questionNumber,
		Answer:         answer,
		IsCorrect:      correct,
		ResponseTimeMs: responseTimeMs,
		PointsEarned:   points,
	}

	updated, err := s.matches.RecordAnswer(ctx, record)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrDuplicateAnswer
	case errors.Is(err, repository.ErrConflict):
		// 다른 요청이 먼저 매치를 끝냈거나 취소됨
		return nil, ErrMatchNotActive
	case err != nil:
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	metrics.AnswersSubmittedTotal.WithLabelValues(fmt.Sprintf("%t", correct)).Inc()

	s.notifier.SendToUser(updated.OpponentOf(playerID), "opponent_answered", map[string]interface{}{
		"matchId":        updated.ID,
		"roundNumber":    round.RoundNumber,
		"questionNumber": questionNumber,
		"opponentScore":  updated.ScoreOf(playerID),
	})

	if s.achievements != nil {
		// 업적 평가 실패는 답변 결과에 영향을 주지 않는다
		if _, err := s.achievements.Evaluate(ctx, updated, record); err != nil {
			s.logger.Error("Failed to evaluate achievements",
				zap.String("matchId", updated.ID),
				zap.String("playerId", playerID),
				zap.Error(err))
		}
	}

	result := &models.AnswerResult{
		Correct:      correct,
		PointsEarned: points,
	}

	if updated.AllAnswered() {
		if _, err := s.finish(ctx, updated, DetermineWinner(updated), events.TypeMatchFinished); err != nil {
			s.logger.Error("Failed to finish match", zap.String("matchId", updated.ID), zap.Error(err))
			return result, nil
		}
		// 조건부 갱신에서 졌어도 매치는 이미 종료 상태
		result.MatchFinished = true
	}

	return result, nil
}

// Forfeit 기권 (상대 승리)
func (s *GameService) Forfeit(ctx context.Context, matchID, playerID string) (*models.MatchStatusView, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}

	winner := match.OpponentOf(playerID)
	finished, err := s.finish(ctx, match, &winner, events.TypeMatchForfeited)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, ErrMatchNotActive
	}

	s.logger.Info("Match forfeited", zap.String("matchId", match.ID), zap.String("playerId", playerID))
	return statusView(match), nil
}

// GetStatus 매치 점수/상태
func (s *GameService) GetStatus(ctx context.Context, matchID, playerID string) (*models.MatchStatusView, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	return statusView(match), nil
}

// GetActiveRound 플레이어 기준 현재 라운드
// 카테고리가 없거나 플레이어가 아직 다 풀지 않은 가장 낮은 번호의 라운드
func (s *GameService) GetActiveRound(ctx context.Context, matchID, playerID string) (*models.ActiveRoundView, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	if match.IsTerminal() {
		return nil, ErrNoActiveRound
	}

	rounds, err := s.matches.ListRounds(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	counts, err := s.matches.CountAnswersByRound(ctx, match.ID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}

	var active *models.Round
	for _, r := range rounds {
		if !r.HasCategory() || counts[r.ID] < r.QuestionCount {
			if active == nil || r.RoundNumber < active.RoundNumber {
				active = r
			}
		}
	}
	if active == nil {
		return nil, ErrNoActiveRound
	}

	answered := counts[active.ID]
	return &models.ActiveRoundView{
		RoundID:          active.ID,
		RoundNumber:      active.RoundNumber,
		ChooserID:        active.ChooserID,
		Category:         active.Category,
		State:            active.StateFor(answered),
		YourTurnToChoose: !active.HasCategory() && active.ChooserID == playerID,
		Answered:         answered,
		QuestionCount:    active.QuestionCount,
	}, nil
}

// GetRoundQuestions 바인딩된 문제 (정답 제외)
func (s *GameService) GetRoundQuestions(ctx context.Context, matchID, roundID, playerID string) ([]models.RoundQuestion, error) {
	match, round, err := s.loadRound(ctx, matchID, roundID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}
	if !round.HasCategory() {
		return nil, ErrCategoryNotChosen
	}

	questions, err := s.matches.RoundQuestions(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load round questions: %w", err)
	}
	return questions, nil
}

// ListActive 진행 중인 매치
func (s *GameService) ListActive(ctx context.Context, playerID string) ([]*models.Match, error) {
	matches, err := s.matches.ListActiveByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active matches: %w", err)
	}
	if matches == nil {
		matches = []*models.Match{}
	}
	return matches, nil
}

// History 종료/취소된 매치 (페이지 1부터)
func (s *GameService) History(ctx context.Context, playerID string, page, limit int) ([]*models.Match, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	matches, err := s.matches.ListHistoryByPlayer(ctx, playerID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}
	if matches == nil {
		matches = []*models.Match{}
	}
	return matches, nil
}

// finish active -> finished 조건부 전환, 이긴 호출자만 후속 처리를 실행
func (s *GameService) finish(ctx context.Context, m *models.Match, winnerID *string, eventType string) (bool, error) {
	finished, err := s.matches.FinishMatch(ctx, m.ID, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to finish match: %w", err)
	}
	if !finished {
		return false, nil
	}

	endedAt := s.now()
	m.Status = models.MatchStatusFinished
	m.WinnerID = winnerID
	m.EndedAt = &endedAt

	result := "draw"
	if winnerID != nil {
		result = "win"
	}
	if eventType == events.TypeMatchForfeited {
		result = "forfeit"
	}
	metrics.MatchesFinishedTotal.WithLabelValues(result).Inc()

	logFields := []zap.Field{
		zap.String("matchId", m.ID),
		zap.Int("player1Correct", m.Player1Correct),
		zap.Int("player2Correct", m.Player2Correct),
	}
	if winnerID != nil {
		logFields = append(logFields, zap.String("winnerId", *winnerID))
	}
	s.logger.Info("Match finished", logFields...)

	if s.stats != nil {
		if err := s.stats.RecordMatchResult(ctx, m); err != nil {
			s.logger.Error("Failed to record match result", zap.String("matchId", m.ID), zap.Error(err))
		}
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		MatchID:   m.ID,
		PlayerIDs: []string{m.Player1ID, m.Player2ID},
		WinnerID:  winnerID,
		Data: map[string]interface{}{
			"player1Score":   m.Player1Score,
			"player2Score":   m.Player2Score,
			"player1Correct": m.Player1Correct,
			"player2Correct": m.Player2Correct,
		},
		OccurredAt: endedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish match event", zap.String("matchId", m.ID), zap.Error(err))
	}

	view := statusView(m)
	s.notifier.SendToUser(m.Player1ID, "match_finished", view)
	s.notifier.SendToUser(m.Player2ID, "match_finished", view)

	return true, nil
}

func (s *GameService) loadMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matches.FindMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// loadRound 매치와 그 매치에 속한 라운드
func (s *GameService) loadRound(ctx context.Context, matchID, roundID string) (*models.Match, *models.Round, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	round, err := s.matches.FindRound(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find round: %w", err)
	}
	if round == nil || round.MatchID != match.ID {
		return nil, nil, ErrRoundNotFound
	}
	return match, round, nil
}

func statusView(m *models.Match) *models.MatchStatusView {
	return &models.MatchStatusView{
		MatchID:        m.ID,
		Player1ID:      m.Player1ID,
		Player2ID:      m.Player2ID,
		Player1Score:   m.Player1Score,
		Player2Score:   m.Player2Score,
		Player1Correct: m.Player1Correct,
		Player2Correct: m.Player2Correct,
		Status:         m.Status,
		WinnerID:       m.WinnerID,
		TotalRounds:    m.TotalRounds,
	}
}
