package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Gunvolt24/kafka_transformer/config"
	"github.com/Gunvolt24/kafka_transformer/internal/app"
	"github.com/Gunvolt24/kafka_transformer/internal/enrich"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
)

// enrichConfig — настройки примера преобразования (префикс ENRICH).
type enrichConfig struct {
	Processor string            `default:"kafka-transformer" envconfig:"PROCESSOR"`
	Routes    map[string]string `envconfig:"ROUTES"` // order:orders-enriched,payment:payments-enriched
	Strict    bool              `default:"false" envconfig:"STRICT"`
}

func main() {
	_ = godotenv.Load(".env.local")

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "transformer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var ec enrichConfig
	if err := envconfig.Process("ENRICH", &ec); err != nil {
		return fmt.Errorf("enrich config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.Bootstrap(ctx, &cfg, app.Pipeline[enrich.Event, enrich.Enriched]{
		Decoder: codec.JSON[enrich.Event]{DisallowUnknownFields: ec.Strict},
		Encoder: codec.JSON[enrich.Enriched]{},
		Transformer: transformer.EventTransformer[enrich.Event, enrich.Enriched]{
			Transform: enrich.Transform(enrich.NewValidator(), enrich.Options{
				Processor: ec.Processor,
				Routes:    ec.Routes,
			}),
		},
	})
	if err != nil {
		return err
	}
	defer cleanup()

	return application.Run(ctx)
}
