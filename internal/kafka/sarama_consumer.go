package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

var _ transformer.Consumer[[]byte] = (*SaramaConsumer[[]byte])(nil)

// consumerGroup — то, что нужно от sarama.ConsumerGroup.
type consumerGroup interface {
	Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error
	Errors() <-chan error
	Close() error
}

// SaramaConsumer — Consumer Adapter поверх sarama consumer group.
// Сессия группы работает в своей горутине и отдаёт сообщения в канал;
// Commit отмечает оффсеты в текущей сессии и сразу коммитит их.
type SaramaConsumer[G any] struct {
	group   consumerGroup
	topic   string
	decoder codec.Decoder[G]
	log     ports.Logger

	msgs     chan *sarama.ConsumerMessage
	runOnce  sync.Once
	runCtx   context.Context
	cancel   context.CancelFunc
	groupErr chan error // фатальная ошибка цикла группы (буфер 1)
	stopped  chan struct{}

	mu   sync.Mutex
	sess sarama.ConsumerGroupSession

	closeOnce sync.Once
	closeErr  error
}

func NewSaramaConsumer[G any](cfg *ConsumerConfig, version string, dec codec.Decoder[G], log ports.Logger) (*SaramaConsumer[G], error) {
	sc, err := cfg.saramaConfig(version)
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, transformer.Fatal(fmt.Errorf("sarama consumer group: %w", err))
	}
	return newSaramaConsumer(group, cfg.Topic, dec, log), nil
}

func newSaramaConsumer[G any](group consumerGroup, topic string, dec codec.Decoder[G], log ports.Logger) *SaramaConsumer[G] {
	ctx, cancel := context.WithCancel(context.Background())
	return &SaramaConsumer[G]{
		group:    group,
		topic:    topic,
		decoder:  dec,
		log:      log,
		msgs:     make(chan *sarama.ConsumerMessage),
		runCtx:   ctx,
		cancel:   cancel,
		groupErr: make(chan error, 1),
		stopped:  make(chan struct{}),
	}
}

func (c *SaramaConsumer[G]) Consume(ctx context.Context) (transformer.Record[G], error) {
	c.runOnce.Do(func() { go c.run() })

	errs := c.group.Errors()
	for {
		select {
		case <-ctx.Done():
			return transformer.Record[G]{}, ctx.Err()
		case err := <-c.groupErr:
			return transformer.Record[G]{}, err
		case <-c.stopped:
			return transformer.Record[G]{}, transformer.ErrEndOfStream
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.log.Warnf(ctx, "sarama consumer group error: %v", err)
		case msg := <-c.msgs:
			return c.toRecord(msg)
		}
	}
}

// run — цикл сессий группы; после ребаланса Consume вызывается снова.
func (c *SaramaConsumer[G]) run() {
	defer close(c.stopped)
	h := &groupHandler[G]{c: c}
	for {
		if err := c.group.Consume(c.runCtx, []string{c.topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || c.runCtx.Err() != nil {
				return
			}
			c.groupErr <- transformer.Fatal(err)
			return
		}
		if c.runCtx.Err() != nil {
			return
		}
	}
}

// Commit отмечает offset+1 (следующий к чтению) в текущей сессии и синхронно коммитит.
// Без активной сессии (ребаланс) коммит невозможен. Это не фатально: позиции будут передоставлены.
func (c *SaramaConsumer[G]) Commit(_ context.Context, positions ...transformer.Position) error {
	if len(positions) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return errors.New("sarama commit: no active session")
	}
	for _, p := range positions {
		c.sess.MarkOffset(p.Topic, int32(p.Partition), p.Offset+1, "")
	}
	c.sess.Commit()
	return nil
}

func (c *SaramaConsumer[G]) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.closeErr = c.group.Close()
	})
	return c.closeErr
}

func (c *SaramaConsumer[G]) toRecord(msg *sarama.ConsumerMessage) (transformer.Record[G], error) {
	pos := transformer.Position{Topic: msg.Topic, Partition: int(msg.Partition), Offset: msg.Offset}

	value, err := c.decoder.Decode(msg.Value)
	if err != nil {
		return transformer.Record[G]{}, &transformer.DecodeError{Position: pos, Key: msg.Key, Err: err}
	}
	return transformer.Record[G]{
		Value:    value,
		Key:      msg.Key,
		Headers:  saramaHeadersToMap(msg.Headers),
		Time:     msg.Timestamp,
		Position: pos,
	}, nil
}

func (c *SaramaConsumer[G]) setSession(s sarama.ConsumerGroupSession) {
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
}

type groupHandler[G any] struct {
	c *SaramaConsumer[G]
}

func (h *groupHandler[G]) Setup(s sarama.ConsumerGroupSession) error {
	h.c.setSession(s)
	return nil
}

func (h *groupHandler[G]) Cleanup(sarama.ConsumerGroupSession) error {
	h.c.setSession(nil)
	return nil
}

func (h *groupHandler[G]) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.c.msgs <- msg:
			case <-sess.Context().Done():
				return nil
			}
		}
	}
}

func saramaHeadersToMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}
