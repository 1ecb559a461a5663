// Package memory DATABASE_URL 없이 실행할 때 쓰는 인메모리 저장소
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

// MatchQueue 인메모리 매칭 대기열 (입장 순서 유지)
type MatchQueue struct {
	mu      sync.Mutex
	entries []models.WaitingEntry
	now     func() time.Time
}

func NewMatchQueue() *MatchQueue {
	return &MatchQueue{now: time.Now}
}

func (q *MatchQueue) indexOf(playerID string) int {
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Join 이미 대기 중이면 무시
func (q *MatchQueue) Join(_ context.Context, playerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOf(playerID) >= 0 {
		return nil
	}
	q.entries = append(q.entries, models.WaitingEntry{PlayerID: playerID, JoinedAt: q.now()})
	return nil
}

// Requeue 꺼냈던 항목을 원래 입장 시각 순서대로 되돌림
func (q *MatchQueue) Requeue(_ context.Context, entry models.WaitingEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOf(entry.PlayerID) >= 0 {
		return nil
	}
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].JoinedAt.After(entry.JoinedAt)
	})
	q.entries = append(q.entries, models.WaitingEntry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = entry
	return nil
}

func (q *MatchQueue) Withdraw(_ context.Context, playerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexOf(playerID); i >= 0 {
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
	}
	return nil
}

// PopOldestOtherThan playerID 가 아닌 가장 오래된 항목을 꺼냄
func (q *MatchQueue) PopOldestOtherThan(_ context.Context, playerID string) (*models.WaitingEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.PlayerID == playerID {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		entry := e
		return &entry, nil
	}
	return nil, nil
}

func (q *MatchQueue) ExpireOlderThan(_ context.Context, age time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-age)
	kept := q.entries[:0]
	expired := 0
	for _, e := range q.entries {
		if e.JoinedAt.Before(cutoff) {
			expired++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return expired, nil
}

// Len 대기 인원
func (q *MatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *MatchQueue) Size(context.Context) (int64, error) {
	return int64(q.Len()), nil
}
