package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rl-arena/trivia-arena-backend/pkg/metrics"
	"github.com/rl-arena/trivia-arena-backend/pkg/retry"
	"go.uber.org/zap"
)

// 이벤트 타입
const (
	TypeMatchCreated   = "match.created"
	TypeMatchFinished  = "match.finished"
	TypeMatchCancelled = "match.cancelled"
	TypeMatchForfeited = "match.forfeited"
)

// Event 매치 라이프사이클 이벤트
type Event struct {
	Type       string                 `json:"type"`
	MatchID    string                 `json:"match_id"`
	PlayerIDs  []string               `json:"player_ids,omitempty"`
	WinnerID   *string                `json:"winner_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Encode JSON 직렬화
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode JSON 역직렬화
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher 이벤트를 Producer로 비동기 전송
// 전송 실패는 재시도 후 로그와 메트릭으로만 남기고 호출자에게 전파하지 않는다.
type Publisher struct {
	producer  Producer
	logger    *zap.Logger
	retryOpts retry.Options
	timeout   time.Duration
}

// NewPublisher Publisher 생성
func NewPublisher(producer Producer, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		producer:  producer,
		logger:    logger,
		retryOpts: retry.DefaultOptions(),
		timeout:   10 * time.Second,
	}
}

// Publish 이벤트 발행 (직렬화 실패만 에러 반환)
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := event.Encode()
	if err != nil {
		return err
	}
	key := []byte(event.MatchID)

	// 요청 컨텍스트가 끝나도 전송은 계속
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := retry.Do(sendCtx, p.retryOpts, func() error {
			res := <-p.producer.PublishAsync(sendCtx, key, value)
			return res.Error
		})
		if err != nil {
			metrics.EventPublishErrorsTotal.Inc()
			p.logger.Error("Failed to publish match event",
				zap.String("type", event.Type),
				zap.String("matchId", event.MatchID),
				zap.Error(err))
		}
	}()

	return nil
}

// Close 하위 Producer 종료
func (p *Publisher) Close() error {
	return p.producer.Close()
}
