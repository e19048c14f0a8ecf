// Пакет validate — строгий разбор и валидация JSON/JSONL-входа произвольного типа.
package validate

import (
	"context"
	"io"
)

// Validator — проверка значения после разбора.
type Validator[V any] interface {
	Validate(ctx context.Context, v *V) error
}

// Sink получает канонический (компактный) JSON каждого валидного значения.
type Sink func(ctx context.Context, canonical []byte) error

// WriterSink — Sink, который пишет по строке на значение.
func WriterSink(w io.Writer) Sink {
	return func(_ context.Context, canonical []byte) error {
		if _, err := w.Write(canonical); err != nil {
			return err
		}
		_, err := w.Write([]byte("\n"))
		return err
	}
}
