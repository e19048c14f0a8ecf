package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

var _ transformer.Producer[[]byte] = (*Producer[[]byte])(nil)

// writer — контракт над kafka.Writer для тестов.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer — Producer Adapter поверх kafka.Writer.
type Producer[T any] struct {
	writer    writer
	encoder   codec.Encoder[T]
	topic     string
	log       ports.Logger
	closeOnce sync.Once
	closeErr  error
}

func NewProducer[T any](cfg *ProducerConfig, enc codec.Encoder[T], log ports.Logger) (*Producer[T], error) {
	w, err := cfg.Writer()
	if err != nil {
		return nil, err
	}
	return newProducer(w, cfg.Topic, enc, log), nil
}

func newProducer[T any](w writer, topic string, enc codec.Encoder[T], log ports.Logger) *Producer[T] {
	return &Producer[T]{writer: w, encoder: enc, topic: topic, log: log}
}

// Produce публикует блок и ждёт подтверждения.
// Ошибка кодирования и временные ошибки брокера — ошибки записи; неустранимые — Fatal.
func (p *Producer[T]) Produce(ctx context.Context, b transformer.Block[T]) error {
	value, err := p.encoder.Encode(b.Value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	topic := b.Topic
	if topic == "" {
		topic = p.topic
	}
	if topic == "" {
		return errors.New("produce: no target topic")
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     b.Key,
		Value:   value,
		Headers: headersFromMap(b.Headers),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warnf(ctx, "write to topic=%s failed: %v", topic, err)
		return classify(unwrapWriteErrors(err))
	}
	return nil
}

// Close закрывает writer (с дожатием буфера). Повторный вызов безопасен.
func (p *Producer[T]) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.writer.Close()
	})
	return p.closeErr
}

// unwrapWriteErrors — для одного сообщения kafka.WriteErrors содержит ровно одну ошибку.
func unwrapWriteErrors(err error) error {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil {
				return e
			}
		}
	}
	return err
}
