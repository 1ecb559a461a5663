package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Info Rate Limit 상세 정보
type Info struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// Limiter 키별 요청 허용 여부 판단
// limit: 윈도우 내 최대 요청 수, window: 윈도우 크기
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, *Info, error)
}

// TokenBucket implements the token bucket algorithm for rate limiting
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64   // Maximum number of tokens
	tokens     float64   // Current number of tokens
	refillRate float64   // Tokens added per second
	lastRefill time.Time // Last refill timestamp
	now        func() time.Time
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity int, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

func (tb *TokenBucket) take() (bool, int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true, int(tb.tokens)
	}
	return false, 0
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

func (tb *TokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill.Before(cutoff)
}

// LocalLimiter 단일 인스턴스용 인메모리 Limiter (Redis 없을 때)
type LocalLimiter struct {
	mu              sync.Mutex
	buckets         map[string]*TokenBucket
	cleanupInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewLocalLimiter creates a new in-memory limiter with background cleanup
func NewLocalLimiter() *LocalLimiter {
	rl := &LocalLimiter{
		buckets:         make(map[string]*TokenBucket),
		cleanupInterval: 10 * time.Minute,
		stopChan:        make(chan struct{}),
		now:             time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Allow 키 + 한도 조합마다 별도 버킷을 사용
func (rl *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, *Info, error) {
	if limit <= 0 || window <= 0 {
		return false, nil, fmt.Errorf("invalid rate limit %d per %v", limit, window)
	}

	bucket := rl.getBucket(fmt.Sprintf("%s|%d|%s", key, limit, window), limit, window)
	allowed, remaining := bucket.take()

	return allowed, &Info{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: rl.now().Add(window / time.Duration(limit)),
	}, nil
}

func (rl *LocalLimiter) getBucket(key string, limit int, window time.Duration) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = newTokenBucket(limit, float64(limit)/window.Seconds(), rl.now)
		rl.buckets[key] = bucket
	}
	return bucket
}

// cleanupLoop periodically removes inactive buckets to prevent memory leaks
func (rl *LocalLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopChan:
			return
		}
	}
}

func (rl *LocalLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cleanupInterval)
	for key, bucket := range rl.buckets {
		if bucket.idleSince(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Stop 정리 고루틴 종료
func (rl *LocalLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}
