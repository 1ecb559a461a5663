package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ProduceResult 비동기 전송 결과
type ProduceResult struct {
	Error error
}

// Producer 메시지 전송 인터페이스
type Producer interface {
	// PublishAsync 즉시 반환하고, 전송이 끝나면 채널로 결과 전달
	PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult
	Close() error
}

// KafkaConfig Kafka 설정
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaProducer kafka-go Writer 기반 Producer
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer KafkaProducer 생성
func NewKafkaProducer(cfg KafkaConfig) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishAsync 같은 매치의 이벤트는 key(matchId)로 같은 파티션에 전송
func (p *KafkaProducer) PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult {
	resultChan := make(chan ProduceResult, 1)

	go func() {
		defer close(resultChan)
		err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
		resultChan <- ProduceResult{Error: err}
	}()

	return resultChan
}

// Close Writer 종료
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NopProducer Kafka가 설정되지 않은 경우 사용
type NopProducer struct{}

func (NopProducer) PublishAsync(context.Context, []byte, []byte) <-chan ProduceResult {
	ch := make(chan ProduceResult, 1)
	ch <- ProduceResult{}
	close(ch)
	return ch
}

func (NopProducer) Close() error { return nil }
