package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes activity entries as JSON, keyed by run id.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(writer messageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// NewKafkaWriter builds the writer used by KafkaSink.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Compression:  kafka.Zstd,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("serialize activity failed: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(entry.RunID),
		Value: data,
		Time:  entry.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(entry.Kind)},
		},
	}
	if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}
