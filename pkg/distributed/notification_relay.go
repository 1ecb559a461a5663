package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notification 인스턴스 간에 전달되는 플레이어 알림
type Notification struct {
	Origin    string          `json:"origin"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationRelay Redis Pub/Sub 으로 다른 인스턴스에 접속한 플레이어에게 알림 전달
type NotificationRelay struct {
	client     *redis.Client
	logger     *zap.Logger
	instanceID string
	channel    string
	stopChan   chan struct{}
	cancelSub  context.CancelFunc
}

// NewNotificationRelay 릴레이 생성
func NewNotificationRelay(client *redis.Client, logger *zap.Logger) *NotificationRelay {
	return &NotificationRelay{
		client:     client,
		logger:     logger,
		instanceID: uuid.New().String(),
		channel:    "notifications:players",
		stopChan:   make(chan struct{}),
	}
}

// InstanceID 이 인스턴스의 고유 ID
func (r *NotificationRelay) InstanceID() string {
	return r.instanceID
}

// Start 구독 시작 (Stop 또는 ctx 취소까지 블록)
// 자신이 발행한 메시지는 이미 로컬에서 전달했으므로 건너뛴다.
func (r *NotificationRelay) Start(ctx context.Context, deliver func(n Notification)) error {
	subCtx, cancel := context.WithCancel(ctx)
	r.cancelSub = cancel

	pubsub := r.client.Subscribe(subCtx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	r.logger.Info("Notification relay started",
		zap.String("instance_id", r.instanceID),
		zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				r.logger.Error("Failed to unmarshal notification", zap.Error(err))
				continue
			}
			if n.Origin == r.instanceID {
				continue
			}

			deliver(n)

		case <-r.stopChan:
			r.logger.Info("Notification relay stopped")
			return nil

		case <-subCtx.Done():
			return subCtx.Err()
		}
	}
}

// Stop 구독 중지
func (r *NotificationRelay) Stop() {
	close(r.stopChan)
	if r.cancelSub != nil {
		r.cancelSub()
	}
}

// Publish 알림 발행
func (r *NotificationRelay) Publish(ctx context.Context, userID, msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Notification{
		Origin:    r.instanceID,
		UserID:    userID,
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
