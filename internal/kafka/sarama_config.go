package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
)

// saramaConfig — общая конфигурация клиента sarama для consumer group и sync producer.
func saramaConfig(version string) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if strings.TrimSpace(version) != "" {
		ver, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, fmt.Errorf("kafka version: %w", err)
		}
		sc.Version = ver
	}
	return sc, nil
}

func (c *ConsumerConfig) saramaConfig(version string) (*sarama.Config, error) {
	sc, err := saramaConfig(version)
	if err != nil {
		return nil, err
	}
	sc.Consumer.Return.Errors = true
	// Ручной коммит: отмечаем оффсеты только после подтверждения движка.
	sc.Consumer.Offsets.AutoCommit.Enable = false
	if isFirstOffset(c.StartOffset) {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if c.RetryInitial > 0 {
		sc.Consumer.Retry.Backoff = c.RetryInitial
	}
	return sc, nil
}

func (c *ProducerConfig) saramaConfig(version string) (*sarama.Config, error) {
	sc, err := saramaConfig(version)
	if err != nil {
		return nil, err
	}
	acks, err := engineRequiredAcks(c.RequiredAcks)
	if err != nil {
		return nil, err
	}
	// значения kafka-go и sarama совпадают: 0, 1, -1
	sc.Producer.RequiredAcks = sarama.RequiredAcks(acks)
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	if c.WriteTimeout > 0 {
		sc.Producer.Timeout = c.WriteTimeout
	}
	if c.BatchTimeout > 0 {
		sc.Producer.Flush.Frequency = c.BatchTimeout
	}
	return sc, nil
}
