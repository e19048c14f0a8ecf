package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string // first|last

	RetryInitial time.Duration // первая пауза после ошибки fetch
	RetryMax     time.Duration // потолок экспоненциального backoff
	// RetryBudget — сколько подряд можно не получать ответ от брокера,
	// прежде чем ошибка станет фатальной. 0 — ретраить бесконечно.
	RetryBudget time.Duration

	MinBytes int
	MaxBytes int
}

// ReaderConfig — настройки kafka.Reader: ручной коммит, нормализованный StartOffset.
func (c *ConsumerConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		CommitInterval: 0,
		MinBytes:       c.MinBytes,
		MaxBytes:       c.MaxBytes,
	}

	if isFirstOffset(c.StartOffset) {
		rc.StartOffset = kafka.FirstOffset
	} else {
		rc.StartOffset = kafka.LastOffset
	}

	return rc
}

func isFirstOffset(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "oldest", "earliest":
		return true
	default:
		return false
	}
}
