package kafka

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
)

// toRecord декодирует сообщение; при ошибке позиция всё равно известна движку.
func (c *Consumer[G]) toRecord(msg *kafka.Message) (transformer.Record[G], error) {
	pos := transformer.Position{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset}

	value, err := c.decoder.Decode(msg.Value)
	if err != nil {
		return transformer.Record[G]{}, &transformer.DecodeError{Position: pos, Key: msg.Key, Err: err}
	}

	return transformer.Record[G]{
		Value:    value,
		Key:      msg.Key,
		Headers:  headersToMap(msg.Headers),
		Time:     msg.Time,
		Position: pos,
	}, nil
}

// isTemporary — можно ли повторить операцию с брокером.
// Протокольные ошибки kafka-go знают о себе сами, сетевые и прочие считаем временными.
func isTemporary(err error) bool {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return false
	}
	return true
}

// classify помечает неустранимые ошибки брокера как фатальные.
func classify(err error) error {
	if err == nil || isTemporary(err) {
		return err
	}
	return transformer.Fatal(err)
}

// sleepWithBackoff ждет backoff или останавливается по контексту.
func (c *Consumer[G]) sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff возвращает следующее время ожидания повтора с учетом retryMax.
func (c *Consumer[G]) nextBackoff(current time.Duration) time.Duration {
	current *= 2
	if current > c.retryMax {
		return c.retryMax
	}
	return current
}

// withJitterEqual — умеренная случайность: половина задержки фиксирована,
// вторая половина — случайная.
func (c *Consumer[G]) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(c.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}

func headersToMap(src []kafka.Header) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[h.Key] = h.Value
	}
	return out
}

// headersFromMap — в отсортированном порядке ключей, чтобы сообщение было детерминированным.
func headersFromMap(src map[string][]byte) []kafka.Header {
	if len(src) == 0 {
		return nil
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: src[k]})
	}
	return out
}
