package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
)

// MatchmakingService 플레이어 매칭
// 대기열 pop 이 원자적이므로 별도의 프로세스 내 락 없이 동작한다.
type MatchmakingService struct {
	queue     MatchQueue
	players   PlayerDirectory
	matches   MatchStore
	notifier  Notifier
	publisher EventPublisher
	settings  GameSettings
	logger    *zap.Logger
	now       func() time.Time
}

func NewMatchmakingService(
	queue MatchQueue,
	players PlayerDirectory,
	matches MatchStore,
	settings GameSettings,
	logger *zap.Logger,
) *MatchmakingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchmakingService{
		queue:     queue,
		players:   players,
		matches:   matches,
		notifier:  noopNotifier{},
		publisher: noopPublisher{},
		settings:  settings.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetNotifier 웹소켓 허브 연결
func (s *MatchmakingService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetEventPublisher Kafka 이벤트 발행기 연결
func (s *MatchmakingService) SetEventPublisher(p EventPublisher) {
	if p != nil {
		s.publisher = p
	}
}

// RequestMatch 매칭 요청
// opponentID 가 있으면 바로 매치 생성, 없으면 대기열에서 가장 오래 기다린 상대를 찾는다.
func (s *MatchmakingService) RequestMatch(ctx context.Context, playerID string, opponentID *string) (*models.MatchRequestResult, error) {
	if playerID == "" {
		return nil, ErrMissingPlayerID
	}

	if opponentID != nil && *opponentID != "" {
		return s.challenge(ctx, playerID, *opponentID)
	}

	entry, err := s.queue.PopOldestOtherThan(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to pop waiting player: %w", err)
	}

	if entry == nil {
		if err := s.queue.Join(ctx, playerID); err != nil {
			return nil, fmt.Errorf("failed to join queue: %w", err)
		}
		metrics.QueueJoinsTotal.Inc()

		s.logger.Debug("Player waiting for opponent", zap.String("playerId", playerID))
		return &models.MatchRequestResult{Status: models.MatchRequestWaiting}, nil
	}

	match, err := s.createMatch(ctx, playerID, entry.PlayerID, "queue")
	if err != nil {
		// 꺼낸 상대를 원래 순서로 되돌린다
		if requeueErr := s.queue.Requeue(ctx, *entry); requeueErr != nil {
			s.logger.Error("Failed to requeue opponent",
				zap.String("playerId", entry.PlayerID),
				zap.Error(requeueErr))
		}
		return nil, err
	}

	// 이전 요청으로 남아있던 요청자 항목 제거
	if err := s.queue.Withdraw(ctx, playerID); err != nil {
		s.logger.Warn("Failed to remove requester from queue",
			zap.String("playerId", playerID),
			zap.Error(err))
	}

	matchedAt := s.now()
	history := &models.MatchmakingHistory{
		Player1ID: playerID,
		Player2ID: entry.PlayerID,
		MatchID:   match.ID,
		WaitedMs:  matchedAt.Sub(entry.JoinedAt).Milliseconds(),
		MatchedAt: matchedAt,
	}
	if err := s.matches.RecordPairing(ctx, history); err != nil {
		s.logger.Warn("Failed to record matchmaking history", zap.String("matchId", match.ID), zap.Error(err))
	}

	return s.result(match, playerID), nil
}

// Withdraw 대기열에서 나가기
func (s *MatchmakingService) Withdraw(ctx context.Context, playerID string) error {
	if playerID == "" {
		return ErrMissingPlayerID
	}
	if err := s.queue.Withdraw(ctx, playerID); err != nil {
		return fmt.Errorf("failed to withdraw from queue: %w", err)
	}
	return nil
}

// challenge 지정한 상대와 매치 생성
func (s *MatchmakingService) challenge(ctx context.Context, playerID, opponentID string) (*models.MatchRequestResult, error) {
	if opponentID == playerID {
		return nil, ErrSelfMatch
	}

	opponent, err := s.players.FindByID(ctx, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find opponent: %w", err)
	}
	if opponent == nil {
		return nil, ErrUnknownOpponent
	}

	match, err := s.createMatch(ctx, playerID, opponentID, "challenge")
	if err != nil {
		return nil, err
	}

	return s.result(match, playerID), nil
}

// createMatch 매치 + 1라운드 생성, 상대에게 알림
func (s *MatchmakingService) createMatch(ctx context.Context, player1ID, player2ID, source string) (*models.Match, error) {
	if player1ID == player2ID {
		return nil, ErrInvalidPlayerIDs
	}

	match := &models.Match{
		Player1ID:         player1ID,
		Player2ID:         player2ID,
		Status:            models.MatchStatusActive,
		TotalRounds:       s.settings.RoundsPerMatch,
		QuestionsPerRound: s.settings.QuestionsPerRound,
	}

	created, round, err := s.matches.CreateMatch(ctx, match, newRound(match, 1, s.settings))
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	metrics.MatchesCreatedTotal.WithLabelValues(source).Inc()
	s.logger.Info("Match created",
		zap.String("matchId", created.ID),
		zap.String("player1", player1ID),
		zap.String("player2", player2ID),
		zap.String("source", source))

	s.notifier.SendToUser(player2ID, "match_found", map[string]interface{}{
		"matchId":          created.ID,
		"opponentId":       player1ID,
		"roundId":          round.ID,
		"yourTurnToChoose": round.ChooserID == player2ID,
	})

	if err := s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeMatchCreated,
		MatchID:    created.ID,
		PlayerIDs:  []string{player1ID, player2ID},
		Data:       map[string]interface{}{"source": source, "totalRounds": created.TotalRounds},
		OccurredAt: s.now(),
	}); err != nil {
		s.logger.Warn("Failed to publish match created event", zap.String("matchId", created.ID), zap.Error(err))
	}

	return created, nil
}

func (s *MatchmakingService) result(m *models.Match, playerID string) *models.MatchRequestResult {
	return &models.MatchRequestResult{
		MatchID:          m.ID,
		OpponentID:       m.OpponentOf(playerID),
		Status:           string(m.Status),
		YourTurnToChoose: m.ChooserForRound(1) == playerID,
	}
}
