package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
)

const statsColumns = `
	user_id, games_played, wins, losses, draws, correct_answers,
	total_answers, total_points, highest_score, rating, updated_at`

type StatsRepository struct {
	db *database.DB
}

func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func scanStats(row rowScanner) (*models.PlayerStats, error) {
	s := &models.PlayerStats{}
	err := row.Scan(
		&s.PlayerID,
		&s.GamesPlayed,
		&s.Wins,
		&s.Losses,
		&s.Draws,
		&s.CorrectAnswers,
		&s.TotalAnswers,
		&s.TotalPoints,
		&s.HighestScore,
		&s.Rating,
		&s.UpdatedAt,
	)
	return s, err
}

// GetStats 플레이어 통계 (기록 없으면 nil)
func (r *StatsRepository) GetStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	if !validID(playerID) {
		return nil, nil
	}

	stats, err := scanStats(r.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE user_id = $1`, playerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

// queryRower *sql.DB 와 *sql.Tx 공통
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ApplyResults 한 매치의 결과를 한 트랜잭션으로 반영 (행이 없으면 생성)
func (r *StatsRepository) ApplyResults(ctx context.Context, updates []models.ResultUpdate) ([]*models.PlayerStats, error) {
	out := make([]*models.PlayerStats, 0, len(updates))
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			stats, err := applyResult(ctx, tx, u)
			if err != nil {
				return err
			}
			out = append(out, stats)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyResult(ctx context.Context, q queryRower, u models.ResultUpdate) (*models.PlayerStats, error) {
	var win, loss, draw int
	switch u.Outcome {
	case models.OutcomeWin:
		win = 1
	case models.OutcomeLoss:
		loss = 1
	default:
		draw = 1
	}

	query := `
		INSERT INTO player_stats (
			user_id, games_played, wins, losses, draws, correct_answers,
			total_answers, total_points, highest_score, rating, updated_at
		)
		VALUES ($1, 1, $2, $3, $4, $5, $6, $7, $7, $8 + $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			games_played    = player_stats.games_played + 1,
			wins            = player_stats.wins + EXCLUDED.wins,
			losses          = player_stats.losses + EXCLUDED.losses,
			draws           = player_stats.draws + EXCLUDED.draws,
			correct_answers = player_stats.correct_answers + EXCLUDED.correct_answers,
			total_answers   = player_stats.total_answers + EXCLUDED.total_answers,
			total_points    = player_stats.total_points + EXCLUDED.total_points,
			highest_score   = GREATEST(player_stats.highest_score, EXCLUDED.highest_score),
			rating          = player_stats.rating + $9,
			updated_at      = NOW()
		RETURNING ` + statsColumns

	stats, err := scanStats(q.QueryRowContext(ctx, query,
		u.PlayerID,
		win,
		loss,
		draw,
		u.Correct,
		u.Answered,
		u.Points,
		models.DefaultRating,
		u.RatingChange,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to apply match result for %s: %w", u.PlayerID, err)
	}

	return stats, nil
}

// RankOf 레이팅 순위 (1부터, 기록 없으면 0)
// 동점이면 먼저 도달한 플레이어가 앞선다 (TopByRating 과 같은 순서)
func (r *StatsRepository) RankOf(ctx context.Context, playerID string) (int64, error) {
	if !validID(playerID) {
		return 0, nil
	}

	var rank int64
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 + (
			SELECT COUNT(*)
			FROM player_stats o
			WHERE o.rating > me.rating
			   OR (o.rating = me.rating AND o.updated_at < me.updated_at)
		)
		FROM player_stats me
		WHERE me.user_id = $1
	`, playerID).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}
	return rank, nil
}

// TopByRating 레이팅 상위 플레이어 (Redis 리더보드 fallback)
func (r *StatsRepository) TopByRating(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ps.user_id, u.username, ps.rating
		FROM player_stats ps
		JOIN users u ON u.id = ps.user_id
		ORDER BY ps.rating DESC, ps.updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	var rank int64
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
