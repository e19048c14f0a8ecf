package enrich

import (
	"context"
	"time"

	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
)

// Options — параметры обогащения.
type Options struct {
	Processor string
	// Routes — категория → выходной топик; категории без маршрута идут в топик продюсера.
	Routes map[string]string
	Now    func() time.Time
}

// Transform — функция преобразования для движка: валидация, обогащение, маршрутизация.
// Невалидное событие даёт ошибку записи (в журнал), а не фатальную.
func Transform(v *Validator, opts Options) func(ctx context.Context, ev Event) (transformer.Block[Enriched], error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, ev Event) (transformer.Block[Enriched], error) {
		if err := v.Validate(ctx, &ev); err != nil {
			return transformer.Block[Enriched]{}, err
		}

		at := now()
		out := Enriched{
			Event:       ev,
			Category:    ev.Category(),
			Processor:   opts.Processor,
			ProcessedAt: at.UTC(),
			LagMillis:   at.Sub(ev.OccurredAt).Milliseconds(),
		}
		return transformer.Block[Enriched]{
			Value: out,
			Topic: opts.Routes[out.Category],
			Key:   []byte(ev.ID),
			Headers: map[string][]byte{
				"event-type": []byte(ev.Type),
				"processor":  []byte(opts.Processor),
			},
		}, nil
	}
}
