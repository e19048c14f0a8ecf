package config_test

import (
	"slices"
	"testing"
	"time"

	cfg "github.com/Gunvolt24/kafka_transformer/config"
)

// TestLoadWithPrefix_Defaults — проверка наличия значений по умолчанию.
func TestLoadWithPrefix_Defaults(t *testing.T) {
	t.Parallel()

	c, err := cfg.LoadWithPrefix("TRANSFORMER_TEST_DEFAULTS")
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// Engine
	if c.Engine.Type != "synchronous" || c.Engine.Window != 64 || c.Engine.OnRecordError != "auto" {
		t.Fatalf("Engine defaults wrong: %+v", c.Engine)
	}
	if c.Engine.TransformTimeout != 5*time.Second {
		t.Fatalf("Engine.TransformTimeout: want 5s, got %v", c.Engine.TransformTimeout)
	}
	if c.Engine.StopTimeout != 30*time.Second {
		t.Fatalf("Engine.StopTimeout: want 30s, got %v", c.Engine.StopTimeout)
	}

	// Kafka
	if c.Kafka.Driver != "kafka-go" || c.Kafka.Version == "" {
		t.Fatalf("Kafka defaults wrong: %+v", c.Kafka)
	}

	// Consumer
	if !slices.Equal(c.Consumer.Brokers, []string{"kafka:9092"}) {
		t.Fatalf("Consumer.Brokers: want [kafka:9092], got %v", c.Consumer.Brokers)
	}
	if c.Consumer.Topic != "events-in" || c.Consumer.GroupID != "transformer" || c.Consumer.StartOffset != "last" {
		t.Fatalf("Consumer defaults wrong: %+v", c.Consumer)
	}
	if c.Consumer.RetryInitial != time.Second || c.Consumer.RetryMax != 30*time.Second || c.Consumer.RetryBudget != 5*time.Minute {
		t.Fatalf("Consumer retry defaults wrong: %+v", c.Consumer)
	}

	// Producer
	if c.Producer.Topic != "events-out" || c.Producer.RequiredAcks != "all" {
		t.Fatalf("Producer defaults wrong: %+v", c.Producer)
	}
	if c.Producer.BatchTimeout != 10*time.Millisecond || c.Producer.WriteTimeout != 10*time.Second {
		t.Fatalf("Producer timeouts wrong: %+v", c.Producer)
	}

	// HTTP
	if c.HTTP.Addr != ":8080" || c.HTTP.GinMode != "debug" {
		t.Fatalf("HTTP defaults wrong: %+v", c.HTTP)
	}
	if c.HTTP.ReadHeaderTimeout != 5*time.Second || c.HTTP.IdleTimeout != 60*time.Second || c.HTTP.GracefulTimeout != 5*time.Second {
		t.Fatalf("HTTP header/idle timeouts wrong: %+v", c.HTTP)
	}

	// Tracing
	if c.Tracing.Enabled {
		t.Fatalf("Tracing.Enabled: want false, got true")
	}
	if c.Tracing.ServiceName != "kafka-transformer" || c.Tracing.Endpoint != "jaeger:4318" || c.Tracing.SampleRatio != 1 {
		t.Fatalf("Tracing defaults wrong: %+v", c.Tracing)
	}

	// Journal
	if c.Journal.Backend != "memory" || c.Journal.Capacity != 1000 || c.Journal.TTL != time.Hour {
		t.Fatalf("Journal defaults wrong: %+v", c.Journal)
	}

	// Postgres
	if c.Postgres.DSN == "" || c.Postgres.MaxConns != 10 {
		t.Fatalf("Postgres defaults wrong: %+v", c.Postgres)
	}

	// Logger
	if c.Logger.IsProd || c.Logger.Level != "" {
		t.Fatalf("Logger defaults wrong: %+v", c.Logger)
	}
}

// Меняем окружение.
func TestLoadWithPrefix_Overrides(t *testing.T) {
	const p = "TRANSFORMER_TEST_OVR"

	t.Setenv(p+"_ENGINE_TYPE", "asynchronous")
	t.Setenv(p+"_ENGINE_WINDOW", "8")
	t.Setenv(p+"_ENGINE_TRANSFORM_TIMEOUT", "250ms")
	t.Setenv(p+"_ENGINE_ON_RECORD_ERROR", "continue")

	t.Setenv(p+"_KAFKA_DRIVER", "sarama")

	t.Setenv(p+"_CONSUMER_BROKERS", "k1:9092,k2:9093")
	t.Setenv(p+"_CONSUMER_TOPIC", "in-test")
	t.Setenv(p+"_CONSUMER_GROUP_ID", "g-test")
	t.Setenv(p+"_CONSUMER_START_OFFSET", "first")

	t.Setenv(p+"_PRODUCER_TOPIC", "out-test")
	t.Setenv(p+"_PRODUCER_REQUIRED_ACKS", "one")

	t.Setenv(p+"_TRACING_OTEL_ENABLED", "true")
	t.Setenv(p+"_TRACING_OTEL_SAMPLE_RATIO", "0.25")

	t.Setenv(p+"_JOURNAL_BACKEND", "postgres")
	t.Setenv(p+"_POSTGRES_MAX_CONNS", "42")

	t.Setenv(p+"_LOGGER_IS_PROD", "true")
	t.Setenv(p+"_LOGGER_LEVEL", "warn")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	if c.Engine.Type != "asynchronous" || c.Engine.Window != 8 ||
		c.Engine.TransformTimeout != 250*time.Millisecond || c.Engine.OnRecordError != "continue" {
		t.Fatalf("Engine overrides wrong: %+v", c.Engine)
	}
	if c.Kafka.Driver != "sarama" {
		t.Fatalf("Kafka.Driver override wrong: %q", c.Kafka.Driver)
	}
	if !slices.Equal(c.Consumer.Brokers, []string{"k1:9092", "k2:9093"}) ||
		c.Consumer.Topic != "in-test" || c.Consumer.GroupID != "g-test" || c.Consumer.StartOffset != "first" {
		t.Fatalf("Consumer overrides wrong: %+v", c.Consumer)
	}
	if c.Producer.Topic != "out-test" || c.Producer.RequiredAcks != "one" {
		t.Fatalf("Producer overrides wrong: %+v", c.Producer)
	}
	if !c.Tracing.Enabled || c.Tracing.SampleRatio != 0.25 {
		t.Fatalf("Tracing overrides wrong: %+v", c.Tracing)
	}
	if c.Journal.Backend != "postgres" || c.Postgres.MaxConns != 42 {
		t.Fatalf("Journal/Postgres overrides wrong: %+v %+v", c.Journal, c.Postgres)
	}
	if !c.Logger.IsProd || c.Logger.Level != "warn" {
		t.Fatalf("Logger overrides wrong: %+v", c.Logger)
	}
}

// Тоже меняем окружение, но с невалидным значением.
func TestLoadWithPrefix_InvalidValue_ReturnsError(t *testing.T) {
	const p = "TRANSFORMER_TEST_BAD"
	t.Setenv(p+"_ENGINE_TRANSFORM_TIMEOUT", "not-a-duration")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for invalid duration, got nil")
	}
}
