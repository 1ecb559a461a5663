package distributed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

// 가장 오래된 두 항목 중 요청자가 아닌 쪽을 원자적으로 꺼낸다.
// 요청자는 대기열에 최대 한 번만 있으므로 앞의 두 항목만 보면 충분하다.
var popOtherScript = redis.NewScript(`
	local entries = redis.call('ZRANGE', KEYS[1], 0, 1, 'WITHSCORES')
	for i = 1, #entries, 2 do
		if entries[i] ~= ARGV[1] then
			redis.call('ZREM', KEYS[1], entries[i])
			return {entries[i], entries[i + 1]}
		end
	end
	return false
`)

// RedisMatchQueue Sorted Set 기반 매칭 대기열 (score = 입장 시각 ms)
type RedisMatchQueue struct {
	client   *redis.Client
	queueKey string
	now      func() time.Time
}

// NewRedisMatchQueue 대기열 생성
func NewRedisMatchQueue(client *redis.Client, queueName string) *RedisMatchQueue {
	return &RedisMatchQueue{
		client:   client,
		queueKey: fmt.Sprintf("queue:%s", queueName),
		now:      time.Now,
	}
}

// Join ZADD NX 로 중복 입장은 무시
func (q *RedisMatchQueue) Join(ctx context.Context, playerID string) error {
	score := float64(q.now().UnixMilli())
	if err := q.client.ZAddNX(ctx, q.queueKey, redis.Z{Score: score, Member: playerID}).Err(); err != nil {
		return fmt.Errorf("failed to join queue: %w", err)
	}
	return nil
}

// Requeue 꺼냈던 항목을 원래 score 로 되돌림 (이미 있으면 무시)
func (q *RedisMatchQueue) Requeue(ctx context.Context, entry models.WaitingEntry) error {
	score := float64(entry.JoinedAt.UnixMilli())
	if err := q.client.ZAddNX(ctx, q.queueKey, redis.Z{Score: score, Member: entry.PlayerID}).Err(); err != nil {
		return fmt.Errorf("failed to requeue player: %w", err)
	}
	return nil
}

func (q *RedisMatchQueue) Withdraw(ctx context.Context, playerID string) error {
	if err := q.client.ZRem(ctx, q.queueKey, playerID).Err(); err != nil {
		return fmt.Errorf("failed to withdraw from queue: %w", err)
	}
	return nil
}

// PopOldestOtherThan 요청자를 제외한 가장 오래된 대기자를 꺼냄
func (q *RedisMatchQueue) PopOldestOtherThan(ctx context.Context, playerID string) (*models.WaitingEntry, error) {
	result, err := popOtherScript.Run(ctx, q.client, []string{q.queueKey}, playerID).StringSlice()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop waiting player: %w", err)
	}
	if len(result) != 2 {
		return nil, nil
	}

	ms, err := strconv.ParseFloat(result[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid queue score %q: %w", result[1], err)
	}

	return &models.WaitingEntry{
		PlayerID: result[0],
		JoinedAt: time.UnixMilli(int64(ms)),
	}, nil
}

// ExpireOlderThan age 보다 오래 기다린 항목 제거
func (q *RedisMatchQueue) ExpireOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := q.now().Add(-age).UnixMilli()
	n, err := q.client.ZRemRangeByScore(ctx, q.queueKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to expire queue: %w", err)
	}
	return int(n), nil
}

// Size 큐 크기 조회
func (q *RedisMatchQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueKey).Result()
}
