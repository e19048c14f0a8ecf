package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka_transformer/internal/enrich"
	"github.com/Gunvolt24/kafka_transformer/pkg/validate"
)

// CLI: валидирует события из JSON/JSONL и публикует валидные во входной топик.
// Без -brokers только печатает канонический JSON (dry run).
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	brokers := flag.String("brokers", "", "comma-separated kafka brokers; empty — print to stdout")
	topic := flag.String("topic", "events-in", "target topic")
	flag.Parse()

	res, err := run(*inputPath, validate.InputFormat(*formatStr), *brokers, *topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v (%s)\n", err, res)
		os.Exit(1)
	}
	if len(res.InvalidLines) > 0 {
		fmt.Fprintf(os.Stderr, "invalid lines: %v\n", res.InvalidLines)
	}
	fmt.Fprintf(os.Stderr, "publish ok (%s)\n", res)
}

func run(inputPath string, format validate.InputFormat, brokers, topic string) (validate.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := validate.WriterSink(os.Stdout)
	if brokers != "" {
		w := &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
		defer w.Close()
		sink = kafkaSink(w)
	}

	// stdin: считаем, что jsonl
	if inputPath == "" {
		return validate.Reader[enrich.Event](ctx, enrich.NewValidator(), os.Stdin, format, sink)
	}
	return validate.File[enrich.Event](ctx, enrich.NewValidator(), inputPath, format, sink)
}

// kafkaSink — ключ сообщения = id события, чтобы события одного id шли в одну партицию.
func kafkaSink(w *kafka.Writer) validate.Sink {
	return func(ctx context.Context, canonical []byte) error {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(canonical, &head); err != nil {
			return err
		}
		return w.WriteMessages(ctx, kafka.Message{Key: []byte(head.ID), Value: canonical})
	}
}
