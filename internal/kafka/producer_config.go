package kafka

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string // топик по умолчанию, если Block.Topic пуст
	RequiredAcks string // one|all; none отклоняется
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// ParseRequiredAcks: none|0, one|1, all|-1; пусто — all.
func ParseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "-1":
		return kafka.RequireAll, nil
	case "one", "1":
		return kafka.RequireOne, nil
	case "none", "0":
		return kafka.RequireNone, nil
	default:
		return 0, fmt.Errorf("unknown required acks %q", s)
	}
}

// ErrUnsafeAcks — без подтверждения брокера коммит смещения может опередить запись.
var ErrUnsafeAcks = errors.New("required acks none is not allowed for the engine producer")

// engineRequiredAcks — как ParseRequiredAcks, но без none.
func engineRequiredAcks(s string) (kafka.RequiredAcks, error) {
	acks, err := ParseRequiredAcks(s)
	if err != nil {
		return 0, err
	}
	if acks == kafka.RequireNone {
		return 0, fmt.Errorf("%w: %q", ErrUnsafeAcks, s)
	}
	return acks, nil
}

// Validate — проверка настроек продюсера движка до подключения.
func (c *ProducerConfig) Validate() error {
	_, err := engineRequiredAcks(c.RequiredAcks)
	return err
}

// Writer — синхронный kafka.Writer: WriteMessages возвращается после подтверждения брокера.
// Топик у writer не задан, он указывается в каждом сообщении.
func (c *ProducerConfig) Writer() (*kafka.Writer, error) {
	acks, err := engineRequiredAcks(c.RequiredAcks)
	if err != nil {
		return nil, err
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
		BatchTimeout:           c.BatchTimeout,
		WriteTimeout:           c.WriteTimeout,
	}
	if w.BatchTimeout <= 0 {
		w.BatchTimeout = 10 * time.Millisecond
	}
	return w, nil
}
