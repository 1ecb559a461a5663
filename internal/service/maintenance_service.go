package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
)

// Locker 여러 인스턴스 중 하나만 작업을 실행하도록 하는 분산 락
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// MaintenanceConfig 주기 작업 설정
type MaintenanceConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	QueueExpiry   time.Duration
}

func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
		QueueExpiry:   time.Hour,
	}
}

const (
	idleSweepLockKey   = "lock:maintenance:idle-sweep"
	queueExpiryLockKey = "lock:maintenance:queue-expiry"
)

// MaintenanceService 방치된 매치 취소, 오래된 대기열 항목 정리
type MaintenanceService struct {
	matches   MatchStore
	queue     MatchQueue
	locker    Locker
	notifier  Notifier
	publisher EventPublisher
	cfg       MaintenanceConfig
	logger    *zap.Logger
	now       func() time.Time

	scheduler gocron.Scheduler
	running   bool
	mu        sync.Mutex
}

func NewMaintenanceService(matches MatchStore, queue MatchQueue, cfg MaintenanceConfig, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultMaintenanceConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = d.IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = d.SweepInterval
	}
	if cfg.QueueExpiry <= 0 {
		cfg.QueueExpiry = d.QueueExpiry
	}

	return &MaintenanceService{
		matches:   matches,
		queue:     queue,
		notifier:  noopNotifier{},
		publisher: noopPublisher{},
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// SetLocker Redis 락 연결 (없으면 모든 인스턴스가 실행, 작업 자체는 멱등)
func (s *MaintenanceService) SetLocker(l Locker) {
	s.locker = l
}

func (s *MaintenanceService) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}

func (s *MaintenanceService) SetEventPublisher(p EventPublisher) {
	if p != nil {
		s.publisher = p
	}
}

// Start 주기 작업 시작
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	jobs := []struct {
		name string
		run  func(ctx context.Context) (int, error)
	}{
		{"idle-sweep", s.SweepIdle},
		{"queue-expiry", s.ExpireQueue},
	}
	for _, job := range jobs {
		job := job
		_, err := scheduler.NewJob(
			gocron.DurationJob(s.cfg.SweepInterval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SweepInterval)
				defer cancel()
				if _, err := job.run(ctx); err != nil {
					s.logger.Error("Maintenance job failed", zap.String("job", job.name), zap.Error(err))
				}
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = scheduler.Shutdown()
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.running = true

	s.logger.Info("Maintenance jobs started",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Duration("idleTimeout", s.cfg.IdleTimeout),
		zap.Duration("queueExpiry", s.cfg.QueueExpiry))
	return nil
}

// Stop 주기 작업 중지 (실행 중인 작업 완료 대기)
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warn("Failed to shut down scheduler", zap.Error(err))
	}
	s.running = false
	s.logger.Info("Maintenance jobs stopped")
}

// SweepIdle last_activity 가 idle timeout 보다 오래된 active 매치를 승자 없이 취소
func (s *MaintenanceService) SweepIdle(ctx context.Context) (int, error) {
	var cancelled []string
	err := s.locked(ctx, idleSweepLockKey, func(ctx context.Context) error {
		ids, err := s.matches.CancelIdle(ctx, s.now().Add(-s.cfg.IdleTimeout))
		if err != nil {
			return fmt.Errorf("failed to cancel idle matches: %w", err)
		}
		cancelled = ids
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range cancelled {
		metrics.IdleMatchesCancelledTotal.Inc()
		s.announceCancelled(ctx, id)
	}
	if len(cancelled) > 0 {
		s.logger.Info("Idle matches cancelled", zap.Int("count", len(cancelled)))
	}
	return len(cancelled), nil
}

// ExpireQueue 오래 기다린 대기열 항목 제거
func (s *MaintenanceService) ExpireQueue(ctx context.Context) (int, error) {
	removed := 0
	err := s.locked(ctx, queueExpiryLockKey, func(ctx context.Context) error {
		n, err := s.queue.ExpireOlderThan(ctx, s.cfg.QueueExpiry)
		if err != nil {
			return fmt.Errorf("failed to expire queue: %w", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		metrics.QueueExpiredTotal.Add(float64(removed))
		s.logger.Info("Stale queue entries removed", zap.Int("count", removed))
	}

	if size, err := s.queue.Size(ctx); err != nil {
		s.logger.Warn("Failed to read queue depth", zap.Error(err))
	} else {
		metrics.QueueDepth.Set(float64(size))
	}
	return removed, nil
}

func (s *MaintenanceService) locked(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	acquired, err := s.locker.WithLock(ctx, key, s.cfg.SweepInterval, fn)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug("Maintenance lock held by another instance", zap.String("key", key))
	}
	return nil
}

func (s *MaintenanceService) announceCancelled(ctx context.Context, matchID string) {
	match, err := s.matches.FindMatch(ctx, matchID)
	if err != nil || match == nil {
		s.logger.Warn("Failed to load cancelled match", zap.String("matchId", matchID), zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeMatchCancelled,
		MatchID:    match.ID,
		PlayerIDs:  []string{match.Player1ID, match.Player2ID},
		Data:       map[string]interface{}{"reason": "idle"},
		OccurredAt: s.now(),
	}); err != nil {
		s.logger.Warn("Failed to publish match cancelled event", zap.String("matchId", match.ID), zap.Error(err))
	}

	payload := map[string]interface{}{
		"matchId": match.ID,
		"status":  models.MatchStatusCancelled,
		"reason":  "idle",
	}
	s.notifier.SendToUser(match.Player1ID, "match_cancelled", payload)
	s.notifier.SendToUser(match.Player2ID, "match_cancelled", payload)
}
