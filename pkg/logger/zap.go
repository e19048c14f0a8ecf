package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Gunvolt24/kafka_transformer/pkg/ctxmeta"
)

type ZapLogger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	isProd bool
}

// NewZapLogger — production (JSON) или development (console) логгер с заданным уровнем.
// Пустой level — уровень пресета по умолчанию.
func NewZapLogger(isProd bool, level string) (*ZapLogger, func() error, error) {
	var cfg zap.Config
	if isProd {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level = strings.TrimSpace(level); level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("logger level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}

	loggerWrap := newZapLogger(logger, isProd)
	cleanup := func() error { return loggerWrap.base.Sync() }
	return loggerWrap, cleanup, nil
}

// NewFromZap оборачивает готовый *zap.Logger (например, zaptest/observer в тестах).
func NewFromZap(l *zap.Logger) *ZapLogger { return newZapLogger(l, false) }

func newZapLogger(l *zap.Logger, isProd bool) *ZapLogger {
	return &ZapLogger{base: l, sugar: l.Sugar(), isProd: isProd}
}

func (z *ZapLogger) Debugf(ctx context.Context, format string, args ...any) {
	z.with(ctx).Debugf(format, args...)
}
func (z *ZapLogger) Infof(ctx context.Context, format string, args ...any) {
	z.with(ctx).Infof(format, args...)
}
func (z *ZapLogger) Warnf(ctx context.Context, format string, args ...any) {
	z.with(ctx).Warnf(format, args...)
}
func (z *ZapLogger) Errorf(ctx context.Context, format string, args ...any) {
	z.with(ctx).Errorf(format, args...)
}

// with добавляет поля из ctxmeta, если они есть.
func (z *ZapLogger) with(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return z.sugar
	}
	var fields []any
	if id, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		fields = append(fields, "request_id", id)
	}
	if name, ok := ctxmeta.EngineFromContext(ctx); ok {
		fields = append(fields, "engine", name)
	}
	if pos, ok := ctxmeta.RecordPositionFromContext(ctx); ok {
		fields = append(fields, "record_position", pos)
	}
	if tid, ok := ctxmeta.TraceIDFromContext(ctx); ok {
		fields = append(fields, "trace_id", tid)
		if sid, ok := ctxmeta.SpanIDFromContext(ctx); ok {
			fields = append(fields, "span_id", sid)
		}
	}
	if len(fields) == 0 {
		return z.sugar
	}
	return z.sugar.With(fields...)
}

func (z *ZapLogger) Base() *zap.Logger           { return z.base }
func (z *ZapLogger) Sugared() *zap.SugaredLogger { return z.sugar }
