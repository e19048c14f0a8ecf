package transformer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gunvolt24/kafka_transformer/internal/ports"
)

const tracerName = "github.com/Gunvolt24/kafka_transformer/internal/transformer"

// Option — необязательные зависимости движка.
type Option func(*options)

type options struct {
	log     ports.Logger
	name    string
	tracer  trace.Tracer
	onFatal []func(error)
}

// WithLogger — логгер движка (по умолчанию ничего не пишется).
func WithLogger(l ports.Logger) Option { return func(o *options) { o.log = l } }

// WithName — имя движка в логах и Snapshot (по умолчанию UUID).
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithTracer — трассировщик для спанов transform.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// OnFatal — дополнительный подписчик на фатальную ошибку. Вызывается после EventTransformer.Error,
// когда движок уже в Stopped, но до закрытия Done.
func OnFatal(fn func(error)) Option {
	return func(o *options) { o.onFatal = append(o.onFatal, fn) }
}

// New собирает движок нужного варианта в состоянии Created.
// Неизвестный или невалидный Mode — ошибка конструирования, движок не создаётся.
func New[G, T any](cfg Config, client Client[G, T], et EventTransformer[G, T], opts ...Option) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: nil client", ErrInvalidConfig)
	}

	o := options{log: ports.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.NewString()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	c := &core[G, T]{
		cfg:     cfg,
		name:    o.name,
		client:  client,
		invoke:  &invoker[G, T]{fn: et.Transform, timeout: cfg.TransformTimeout, tracer: o.tracer},
		onError: et.Error,
		log:     o.log,
		win:     newWindow(cfg.window()),
		done:    make(chan struct{}),
	}
	c.fatal = newFatalChannel(func(err error) {
		c.notify(err)
		for _, fn := range o.onFatal {
			c.safeCall(fn, err)
		}
	})

	switch cfg.Mode {
	case ModeSynchronous:
		return newSyncEngine(c), nil
	case ModeAsynchronous:
		return newAsyncEngine(c), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, cfg.Mode)
	}
}

// Transform — New + Start: возвращает уже работающий движок.
func Transform[G, T any](ctx context.Context, cfg Config, client Client[G, T], et EventTransformer[G, T], opts ...Option) (Engine, error) {
	e, err := New(cfg, client, et, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
