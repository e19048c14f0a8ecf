package transformer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// invoker применяет пользовательский transform к одной записи.
// Не ретраит: повтор получается редоставкой незакоммиченной позиции.
type invoker[G, T any] struct {
	fn      func(ctx context.Context, value G) (Block[T], error)
	timeout time.Duration
	tracer  trace.Tracer
}

func (i *invoker[G, T]) invoke(ctx context.Context, rec Record[G]) (Block[T], error) {
	ctx, span := i.tracer.Start(ctx, "transformer.transform",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("messaging.source.name", rec.Position.Topic),
			attribute.Int("messaging.kafka.partition", rec.Position.Partition),
			attribute.Int64("messaging.kafka.offset", rec.Position.Offset),
		),
	)
	defer span.End()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	block, err := i.call(ctx, rec.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Block[T]{}, &RecordError{Stage: StageTransform, Position: rec.Position, Key: rec.Key, Err: err}
	}
	span.SetStatus(codes.Ok, "")
	return block, nil
}

// call перехватывает панику пользовательской функции.
func (i *invoker[G, T]) call(ctx context.Context, value G) (block Block[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTransformPanic, r)
		}
	}()
	return i.fn(ctx, value)
}
