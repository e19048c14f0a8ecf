package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

// Проверка, что Consumer удовлетворяет контракту движка.
var _ transformer.Consumer[[]byte] = (*Consumer[[]byte])(nil)

// reader — минимальный контракт над источником (kafka.Reader),
// чтобы легко подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// Consumer — Consumer Adapter поверх kafka.Reader: читает без авто-коммита,
// декодирует значение и коммитит только то, что отдал движок.
type Consumer[G any] struct {
	reader       reader
	decoder      codec.Decoder[G]
	log          ports.Logger
	retryInitial time.Duration
	retryMax     time.Duration
	retryBudget  time.Duration
	jitterRand   *rand.Rand
	closeOnce    sync.Once
	closeErr     error
}

// NewConsumer — конструктор. ReaderConfig() настроен на ручной коммит оффсетов.
func NewConsumer[G any](cfg *ConsumerConfig, dec codec.Decoder[G], log ports.Logger) *Consumer[G] {
	return newConsumer(kafka.NewReader(cfg.ReaderConfig()), cfg, dec, log)
}

func newConsumer[G any](r reader, cfg *ConsumerConfig, dec codec.Decoder[G], log ports.Logger) *Consumer[G] {
	// Параметры по умолчанию (если не заданы в конфиге)
	rInit := cfg.RetryInitial
	if rInit <= 0 {
		rInit = 1 * time.Second
	}

	rMax := cfg.RetryMax
	if rMax <= 0 {
		rMax = 30 * time.Second
	}

	return &Consumer[G]{
		reader:       r,
		decoder:      dec,
		log:          log,
		retryInitial: rInit,
		retryMax:     rMax,
		retryBudget:  cfg.RetryBudget,
		// jitterRand — источник случайности, чтобы рассинхронизировать экспоненциальный backoff.
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Consume возвращает следующую запись:
// 1) временные ошибки fetch ретраятся с backoff + equal jitter;
// 2) закрытый reader → ErrEndOfStream;
// 3) неустранимые ошибки брокера (auth, нет топика, исчерпан RetryBudget) → Fatal;
// 4) ошибка декодирования → *DecodeError, позиция известна.
func (c *Consumer[G]) Consume(ctx context.Context) (transformer.Record[G], error) {
	retry := c.retryInitial
	var failingSince time.Time

	for {
		msg, fetchErr := c.reader.FetchMessage(ctx)
		if fetchErr != nil {
			// Если контекст отменен -> выходим
			if ctx.Err() != nil {
				return transformer.Record[G]{}, ctx.Err()
			}
			if errors.Is(fetchErr, io.EOF) {
				return transformer.Record[G]{}, transformer.ErrEndOfStream
			}
			if !isTemporary(fetchErr) {
				return transformer.Record[G]{}, transformer.Fatal(fetchErr)
			}

			if failingSince.IsZero() {
				failingSince = time.Now()
			}
			if c.retryBudget > 0 && time.Since(failingSince) > c.retryBudget {
				return transformer.Record[G]{}, transformer.Fatal(fmt.Errorf("broker unavailable for %s: %w", c.retryBudget, fetchErr))
			}

			// Иначе - временная ошибка брокера/сети. Ожидаем и повторяем
			sleep := c.withJitterEqual(retry)
			c.log.Warnf(ctx, "fetch failed: %v (will retry in %s)", fetchErr, sleep)
			if !c.sleepWithBackoff(ctx, sleep) {
				return transformer.Record[G]{}, ctx.Err()
			}
			retry = c.nextBackoff(retry)
			continue
		}

		return c.toRecord(&msg)
	}
}

// Commit — CommitMessages для старших позиций по партициям (kafka-go коммитит offset+1).
func (c *Consumer[G]) Commit(ctx context.Context, positions ...transformer.Position) error {
	if len(positions) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(positions))
	for _, p := range positions {
		msgs = append(msgs, kafka.Message{Topic: p.Topic, Partition: p.Partition, Offset: p.Offset})
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return classify(err)
	}
	return nil
}

// Close - закрывает reader. Повторный вызов возвращает результат первого.
func (c *Consumer[G]) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}
