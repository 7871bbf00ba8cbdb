package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			Logger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Info(fmt.Sprintf(msg, args...), logger.Fields{"component": "kafka"})
			}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Error(fmt.Sprintf(msg, args...), nil, logger.Fields{"component": "kafka"})
			}),
		},
	}
}

// Publish writes the event keyed by transfer id so every outcome of one
// transfer lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, event domain.TransferCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transfer event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TransferID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("TransferCompleted")},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publish transfer event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
