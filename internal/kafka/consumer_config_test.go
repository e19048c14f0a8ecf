package kafka_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	mykafka "github.com/Gunvolt24/kafka_transformer/internal/kafka"
)

func TestConsumerConfig_ReaderConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		startOffset string
		wantOffset  int64
	}{
		{"first lower", "first", kafkago.FirstOffset},
		{"first upper", "FIRST", kafkago.FirstOffset},
		{"first spaced", " FiRsT \n", kafkago.FirstOffset},
		{"earliest", "earliest", kafkago.FirstOffset},
		{"empty -> last", "", kafkago.LastOffset},
		{"explicit last -> last", "last", kafkago.LastOffset},
		{"unknown -> last", "unknown", kafkago.LastOffset},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := mykafka.ConsumerConfig{
				Brokers:     []string{"k1:9092", "k2:9092"},
				Topic:       "events-in",
				GroupID:     "group-1",
				StartOffset: tt.startOffset,

				// Эти поля не участвуют в ReaderConfig
				RetryInitial: 1 * time.Second,
				RetryMax:     5 * time.Second,
			}

			rc := cfg.ReaderConfig()

			if rc.StartOffset != tt.wantOffset {
				t.Fatalf("StartOffset: want %d, got %d", tt.wantOffset, rc.StartOffset)
			}
			if !slices.Equal(rc.Brokers, cfg.Brokers) {
				t.Fatalf("Brokers: want %v, got %v", cfg.Brokers, rc.Brokers)
			}
			if rc.Topic != cfg.Topic || rc.GroupID != cfg.GroupID {
				t.Fatalf("Topic/GroupID: got %s/%s", rc.Topic, rc.GroupID)
			}
			// Ручной коммит
			if rc.CommitInterval != 0 {
				t.Fatalf("CommitInterval: want 0, got %v", rc.CommitInterval)
			}
		})
	}
}

func TestParseRequiredAcks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    kafkago.RequiredAcks
		wantErr bool
	}{
		{"", kafkago.RequireAll, false},
		{"ALL", kafkago.RequireAll, false},
		{"one", kafkago.RequireOne, false},
		{"0", kafkago.RequireNone, false},
		{"some", 0, true},
	}
	for _, tt := range tests {
		got, err := mykafka.ParseRequiredAcks(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("%q: got %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestProducerConfig_Writer(t *testing.T) {
	cfg := mykafka.ProducerConfig{Brokers: []string{"k1:9092"}, Topic: "out", RequiredAcks: "one", WriteTimeout: 3 * time.Second}
	w, err := cfg.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	defer w.Close()

	// Топик задаётся в сообщении, а не у writer
	if w.Topic != "" {
		t.Fatalf("writer topic must be empty, got %q", w.Topic)
	}
	if w.RequiredAcks != kafkago.RequireOne || w.WriteTimeout != 3*time.Second || w.BatchTimeout <= 0 {
		t.Fatalf("writer config wrong: %+v", w)
	}

	bad := mykafka.ProducerConfig{RequiredAcks: "maybe"}
	if _, err := bad.Writer(); err == nil {
		t.Fatalf("want error for unknown acks")
	}
}

// Без подтверждения брокера коммит мог бы опередить запись: none запрещён для движка.
func TestProducerConfig_RejectsAcksNone(t *testing.T) {
	for _, acks := range []string{"none", "0", " NONE "} {
		cfg := mykafka.ProducerConfig{Brokers: []string{"k1:9092"}, Topic: "out", RequiredAcks: acks}
		if _, err := cfg.Writer(); !errors.Is(err, mykafka.ErrUnsafeAcks) {
			t.Fatalf("%q: want ErrUnsafeAcks, got %v", acks, err)
		}
		if err := cfg.Validate(); !errors.Is(err, mykafka.ErrUnsafeAcks) {
			t.Fatalf("%q: Validate want ErrUnsafeAcks, got %v", acks, err)
		}
	}

	ok := mykafka.ProducerConfig{RequiredAcks: "all"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("acks=all must be accepted: %v", err)
	}
}

func TestParseDriver(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]mykafka.Driver{
		"":         mykafka.DriverKafkaGo,
		"kafka-go": mykafka.DriverKafkaGo,
		" Sarama ": mykafka.DriverSarama,
	} {
		got, err := mykafka.ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v, %v", in, got, err)
		}
	}
	if _, err := mykafka.ParseDriver("franz"); err == nil {
		t.Fatalf("want error for unknown driver")
	}
}
