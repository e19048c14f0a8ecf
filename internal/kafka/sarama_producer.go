package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/IBM/sarama"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

var _ transformer.Producer[[]byte] = (*SaramaProducer[[]byte])(nil)

// SaramaProducer — Producer Adapter поверх sarama.SyncProducer (SendMessage ждёт ack).
type SaramaProducer[T any] struct {
	producer  sarama.SyncProducer
	encoder   codec.Encoder[T]
	topic     string
	log       ports.Logger
	closeOnce sync.Once
	closeErr  error
}

func NewSaramaProducer[T any](cfg *ProducerConfig, version string, enc codec.Encoder[T], log ports.Logger) (*SaramaProducer[T], error) {
	sc, err := cfg.saramaConfig(version)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, transformer.Fatal(fmt.Errorf("sarama producer: %w", err))
	}
	return newSaramaProducer(p, cfg.Topic, enc, log), nil
}

func newSaramaProducer[T any](p sarama.SyncProducer, topic string, enc codec.Encoder[T], log ports.Logger) *SaramaProducer[T] {
	return &SaramaProducer[T]{producer: p, encoder: enc, topic: topic, log: log}
}

func (p *SaramaProducer[T]) Produce(ctx context.Context, b transformer.Block[T]) error {
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

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(value),
		Headers: saramaHeadersFromMap(b.Headers),
	}
	if b.Key != nil {
		msg.Key = sarama.ByteEncoder(b.Key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Warnf(ctx, "sarama send to topic=%s failed: %v", topic, err)
		return classifySarama(err)
	}
	p.log.Debugf(ctx, "produced topic=%s partition=%d offset=%d", topic, partition, offset)
	return nil
}

func (p *SaramaProducer[T]) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.producer.Close()
	})
	return p.closeErr
}

// classifySarama — закрытый клиент, отсутствие брокеров и отказ в доступе фатальны.
func classifySarama(err error) error {
	switch {
	case errors.Is(err, sarama.ErrClosedClient),
		errors.Is(err, sarama.ErrOutOfBrokers),
		errors.Is(err, sarama.ErrTopicAuthorizationFailed),
		errors.Is(err, sarama.ErrClusterAuthorizationFailed),
		errors.Is(err, sarama.ErrSASLAuthenticationFailed):
		return transformer.Fatal(err)
	default:
		return err
	}
}

func saramaHeadersFromMap(src map[string][]byte) []sarama.RecordHeader {
	if len(src) == 0 {
		return nil
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: src[k]})
	}
	return out
}
