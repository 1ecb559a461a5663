// Package leaderboard Redis Sorted Set 기반 레이팅 순위표
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "leaderboard:rating"

// Entry 순위표 항목 (Rank 는 1부터)
type Entry struct {
	PlayerID string
	Rating   int
	Rank     int64
}

// Board 레이팅 순위표
type Board struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, key string) *Board {
	if key == "" {
		key = DefaultKey
	}
	return &Board{client: client, key: key}
}

// SetRating 플레이어 레이팅 기록 (덮어쓰기)
func (b *Board) SetRating(ctx context.Context, playerID string, rating int) error {
	err := b.client.ZAdd(ctx, b.key, redis.Z{
		Score:  float64(rating),
		Member: playerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	return nil
}

// Top 상위 limit 명 (높은 순)
func (b *Board) Top(ctx context.Context, limit int64) ([]Entry, error) {
	results, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, result := range results {
		entries[i] = Entry{
			PlayerID: result.Member.(string),
			Rating:   int(result.Score),
			Rank:     int64(i) + 1,
		}
	}
	return entries, nil
}

// Rank 플레이어 순위 (없으면 0)
func (b *Board) Rank(ctx context.Context, playerID string) (int64, error) {
	rank, err := b.client.ZRevRank(ctx, b.key, playerID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rank: %w", err)
	}
	return rank + 1, nil
}
