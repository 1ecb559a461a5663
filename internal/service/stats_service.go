package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/leaderboard"
)

// RatingBoard 레이팅 순위표 (Redis ZSET)
type RatingBoard interface {
	SetRating(ctx context.Context, playerID string, rating int) error
	Top(ctx context.Context, limit int64) ([]leaderboard.Entry, error)
	Rank(ctx context.Context, playerID string) (int64, error)
}

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// StatsService 매치 결과 반영, 레이팅, 순위표
type StatsService struct {
	stats   StatsStore
	players PlayerDirectory
	board   RatingBoard
	elo     *ELOService
	logger  *zap.Logger
}

func NewStatsService(stats StatsStore, players PlayerDirectory, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		stats:   stats,
		players: players,
		elo:     NewELOService(),
		logger:  logger,
	}
}

// SetBoard Redis 순위표 연결 (없으면 DB 에서 직접 조회)
func (s *StatsService) SetBoard(board RatingBoard) {
	s.board = board
}

// GetStats 플레이어 통계 (기록이 없으면 기본값)
func (s *StatsService) GetStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	stats, err := s.stats.GetStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	if stats == nil {
		stats = &models.PlayerStats{PlayerID: playerID, Rating: models.DefaultRating}
	}
	return stats, nil
}

// Standing 통계와 현재 순위 (Redis 순위표 우선, 없으면 DB)
func (s *StatsService) Standing(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	user, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	stats, err := s.GetStats(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if stats.GamesPlayed == 0 {
		return stats, nil
	}

	if s.board != nil {
		rank, err := s.board.Rank(ctx, playerID)
		if err == nil && rank > 0 {
			stats.Rank = rank
			return stats, nil
		}
		if err != nil {
			s.logger.Warn("Leaderboard cache unavailable, falling back to database", zap.Error(err))
		}
	}

	rank, err := s.stats.RankOf(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}
	stats.Rank = rank
	return stats, nil
}

// RecordMatchResult 종료된 매치의 결과를 두 플레이어 통계와 레이팅에 반영
func (s *StatsService) RecordMatchResult(ctx context.Context, m *models.Match) error {
	before1, err := s.GetStats(ctx, m.Player1ID)
	if err != nil {
		return err
	}
	before2, err := s.GetStats(ctx, m.Player2ID)
	if err != nil {
		return err
	}

	outcome1 := OutcomeFor(m.Player1ID, m.WinnerID)
	outcome2 := OutcomeFor(m.Player2ID, m.WinnerID)

	_, _, change1, change2 := s.elo.CalculateNewRatings(
		before1.Rating, before2.Rating,
		before1.GamesPlayed, before2.GamesPlayed,
		ScoreFor(outcome1),
	)

	updates := []models.ResultUpdate{
		{
			PlayerID:     m.Player1ID,
			Outcome:      outcome1,
			Correct:      m.Player1Correct,
			Answered:     m.Player1Answered,
			Points:       m.Player1Score,
			RatingChange: change1,
		},
		{
			PlayerID:     m.Player2ID,
			Outcome:      outcome2,
			Correct:      m.Player2Correct,
			Answered:     m.Player2Answered,
			Points:       m.Player2Score,
			RatingChange: change2,
		},
	}

	applied, err := s.stats.ApplyResults(ctx, updates)
	if err != nil {
		return fmt.Errorf("failed to apply match result: %w", err)
	}

	for _, after := range applied {
		if s.board != nil {
			if err := s.board.SetRating(ctx, after.PlayerID, after.Rating); err != nil {
				// 순위표는 다음 갱신 때 복구된다
				s.logger.Warn("Failed to update leaderboard", zap.String("playerId", after.PlayerID), zap.Error(err))
			}
		}
	}

	s.logger.Info("Ratings updated",
		zap.String("matchId", m.ID),
		zap.String("player1", m.Player1ID),
		zap.Int("player1Change", change1),
		zap.String("player2", m.Player2ID),
		zap.Int("player2Change", change2))

	return nil
}

// Leaderboard 레이팅 상위 플레이어
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	if s.board != nil {
		entries, err := s.fromBoard(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.Warn("Leaderboard cache unavailable, falling back to database", zap.Error(err))
		}
	}

	entries, err := s.stats.TopByRating(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

func (s *StatsService) fromBoard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	top, err := s.board.Top(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(top))
	for _, e := range top {
		entry := models.LeaderboardEntry{Rank: e.Rank, PlayerID: e.PlayerID, Rating: e.Rating}
		if user, err := s.players.FindByID(ctx, e.PlayerID); err == nil && user != nil {
			entry.Username = user.Username
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
