package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
)

// MatchmakingRepository Postgres 기반 매칭 대기열
type MatchmakingRepository struct {
	db *database.DB
}

func NewMatchmakingRepository(db *database.DB) *MatchmakingRepository {
	return &MatchmakingRepository{db: db}
}

// Join 대기열에 추가 (이미 있으면 무시)
func (r *MatchmakingRepository) Join(ctx context.Context, playerID string) error {
	query := `
		INSERT INTO matchmaking_queue (user_id, joined_at)
		VALUES ($1, clock_timestamp())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, playerID); err != nil {
		return fmt.Errorf("failed to join queue: %w", err)
	}
	return nil
}

// Requeue 꺼냈던 항목을 원래 입장 시각으로 되돌림
func (r *MatchmakingRepository) Requeue(ctx context.Context, entry models.WaitingEntry) error {
	query := `
		INSERT INTO matchmaking_queue (user_id, joined_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, entry.PlayerID, entry.JoinedAt); err != nil {
		return fmt.Errorf("failed to requeue player: %w", err)
	}
	return nil
}

// Withdraw 대기열에서 제거
func (r *MatchmakingRepository) Withdraw(ctx context.Context, playerID string) error {
	query := `DELETE FROM matchmaking_queue WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, playerID); err != nil {
		return fmt.Errorf("failed to withdraw from queue: %w", err)
	}
	return nil
}

// PopOldestOtherThan 가장 오래 기다린 상대를 꺼냄
// SKIP LOCKED 로 동시 요청이 같은 행을 가져가지 않도록 한다
func (r *MatchmakingRepository) PopOldestOtherThan(ctx context.Context, playerID string) (*models.WaitingEntry, error) {
	query := `
		DELETE FROM matchmaking_queue
		WHERE user_id = (
			SELECT user_id
			FROM matchmaking_queue
			WHERE user_id <> $1
			ORDER BY joined_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING user_id, joined_at
	`

	entry := &models.WaitingEntry{}
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(&entry.PlayerID, &entry.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop waiting player: %w", err)
	}

	return entry, nil
}

// ExpireOlderThan 오래된 대기 삭제
func (r *MatchmakingRepository) ExpireOlderThan(ctx context.Context, age time.Duration) (int, error) {
	query := `
		DELETE FROM matchmaking_queue
		WHERE joined_at < NOW() - $1::interval
	`
	res, err := r.db.ExecContext(ctx, query, fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to expire queue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired entries: %w", err)
	}
	return int(n), nil
}

// Size 대기 인원
func (r *MatchmakingRepository) Size(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matchmaking_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}
