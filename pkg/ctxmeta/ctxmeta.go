// Пакет ctxmeta — метаданные, которые прокидываются через context.Context
// (request_id HTTP-запроса, имя движка и позиция обрабатываемой записи, trace_id).
// Логгер и конвейер зависят от него, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	KeyRequestID      ctxKey = "request_id"
	KeyRecordPosition ctxKey = "record_position"
	KeyEngine         ctxKey = "engine"
)

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRequestID)
}

// WithRecordPosition кладёт позицию записи (topic[partition]@offset).
func WithRecordPosition(ctx context.Context, pos string) context.Context {
	return withString(ctx, KeyRecordPosition, pos)
}

// RecordPositionFromContext — позиция записи, если она обрабатывается в этом контексте.
func RecordPositionFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRecordPosition)
}

// WithEngine — имя движка, в котором идёт обработка.
func WithEngine(ctx context.Context, name string) context.Context {
	return withString(ctx, KeyEngine, name)
}

func EngineFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyEngine)
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
