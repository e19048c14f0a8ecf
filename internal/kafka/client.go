package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

// Driver — реализация Messaging Client.
type Driver int

const (
	DriverKafkaGo Driver = iota + 1
	DriverSarama
)

func (d Driver) String() string {
	switch d {
	case DriverKafkaGo:
		return "kafka-go"
	case DriverSarama:
		return "sarama"
	default:
		return fmt.Sprintf("Driver(%d)", int(d))
	}
}

// ErrUnknownDriver — неизвестное значение драйвера.
var ErrUnknownDriver = errors.New("unknown kafka driver")

func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kafka-go", "kafkago", "segmentio":
		return DriverKafkaGo, nil
	case "sarama":
		return DriverSarama, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDriver, s)
	}
}

// Client — Consumer и Producer одного драйвера как transformer.Client.
type Client[G, T any] struct {
	consumer transformer.Consumer[G]
	producer transformer.Producer[T]
}

var _ transformer.Client[[]byte, []byte] = (*Client[[]byte, []byte])(nil)

func NewClientFrom[G, T any](c transformer.Consumer[G], p transformer.Producer[T]) *Client[G, T] {
	return &Client[G, T]{consumer: c, producer: p}
}

// ClientConfig — всё, что нужно для сборки клиента.
type ClientConfig struct {
	Driver   Driver
	Version  string // версия протокола (sarama)
	Consumer ConsumerConfig
	Producer ProducerConfig
}

// NewClient собирает клиента выбранного драйвера.
func NewClient[G, T any](cfg *ClientConfig, dec codec.Decoder[G], enc codec.Encoder[T], log ports.Logger) (*Client[G, T], error) {
	switch cfg.Driver {
	case DriverKafkaGo:
		p, err := NewProducer(&cfg.Producer, enc, log)
		if err != nil {
			return nil, err
		}
		return NewClientFrom[G, T](NewConsumer(&cfg.Consumer, dec, log), p), nil
	case DriverSarama:
		p, err := NewSaramaProducer(&cfg.Producer, cfg.Version, enc, log)
		if err != nil {
			return nil, err
		}
		c, err := NewSaramaConsumer(&cfg.Consumer, cfg.Version, dec, log)
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		return NewClientFrom[G, T](c, p), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

func (c *Client[G, T]) Consume(ctx context.Context) (transformer.Record[G], error) {
	return c.consumer.Consume(ctx)
}

func (c *Client[G, T]) Commit(ctx context.Context, positions ...transformer.Position) error {
	return c.consumer.Commit(ctx, positions...)
}

func (c *Client[G, T]) Produce(ctx context.Context, b transformer.Block[T]) error {
	return c.producer.Produce(ctx, b)
}

// Close — сначала consumer (перестаём читать), затем producer (дожимаем буфер).
func (c *Client[G, T]) Close() error {
	return errors.Join(c.consumer.Close(), c.producer.Close())
}
