package retry

import (
	"context"
	"math"
	"time"
)

// Options 재시도 설정
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Retryable nil 이면 모든 에러를 재시도
	Retryable func(error) bool
}

// DefaultOptions 기본 재시도 설정 (최대 4회, 200ms부터 2배씩)
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     4,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Do 지수 백오프로 fn 재시도
func Do(ctx context.Context, opts Options, fn func() error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if opts.Retryable != nil && !opts.Retryable(lastErr) {
			return lastErr
		}
		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(attempt, opts)):
		}
	}
	return lastErr
}

// Backoff attempt 번째 실패 후 대기 시간
func Backoff(attempt int, opts Options) time.Duration {
	if attempt <= 1 {
		return opts.InitialInterval
	}
	multiplier := opts.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	interval := float64(opts.InitialInterval) * math.Pow(multiplier, float64(attempt-1))
	if opts.MaxInterval > 0 && interval > float64(opts.MaxInterval) {
		return opts.MaxInterval
	}
	return time.Duration(interval)
}
