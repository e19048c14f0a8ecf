package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Gunvolt24/kafka_transformer/config"
	journalmem "github.com/Gunvolt24/kafka_transformer/internal/journal/memory"
	"github.com/Gunvolt24/kafka_transformer/internal/kafka"
	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/repo/postgres"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	rest "github.com/Gunvolt24/kafka_transformer/internal/transport/http"
	"github.com/Gunvolt24/kafka_transformer/pkg/codec"
	"github.com/Gunvolt24/kafka_transformer/pkg/logger"
	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
	"github.com/Gunvolt24/kafka_transformer/pkg/telemetry"
)

// App — собранное приложение: движок преобразования и ops HTTP-сервер.
type App struct {
	Logger          ports.Logger       // логгер
	HTTPServer      *http.Server       // ops HTTP-сервер
	Engine          transformer.Engine // движок в состоянии Created
	StopTimeout     time.Duration      // сколько ждать дренажа движка
	gracefulTimeout time.Duration      // время ожидания завершения HTTP-сервера
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// Pipeline — то, что приложение знает о конкретном преобразовании.
type Pipeline[G, T any] struct {
	Decoder     codec.Decoder[G]
	Encoder     codec.Encoder[T]
	Transformer transformer.EventTransformer[G, T]
}

// applyGinMode — режим Gin по строке; неизвестное значение → debug и предупреждение.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// engineConfig — настройки движка из конфигурации; ошибки разбора — ошибки конфигурации.
func engineConfig(c config.Engine) (transformer.Config, error) {
	mode, err := transformer.ParseMode(c.Type)
	if err != nil {
		return transformer.Config{}, err
	}
	policy, err := transformer.ParseRecordPolicy(c.OnRecordError)
	if err != nil {
		return transformer.Config{}, err
	}
	ec := transformer.Config{
		Mode:             mode,
		Window:           c.Window,
		TransformTimeout: c.TransformTimeout,
		OnRecordError:    policy,
	}
	return ec, ec.Validate()
}

// clientConfig — настройки клиента брокера.
func clientConfig(cfg *config.Config) (*kafka.ClientConfig, error) {
	driver, err := kafka.ParseDriver(cfg.Kafka.Driver)
	if err != nil {
		return nil, err
	}
	cc := &kafka.ClientConfig{
		Driver:  driver,
		Version: cfg.Kafka.Version,
		Consumer: kafka.ConsumerConfig{
			Brokers:      cfg.Consumer.Brokers,
			Topic:        cfg.Consumer.Topic,
			GroupID:      cfg.Consumer.GroupID,
			StartOffset:  cfg.Consumer.StartOffset,
			RetryInitial: cfg.Consumer.RetryInitial,
			RetryMax:     cfg.Consumer.RetryMax,
			RetryBudget:  cfg.Consumer.RetryBudget,
		},
		Producer: kafka.ProducerConfig{
			Brokers:      cfg.Producer.Brokers,
			Topic:        cfg.Producer.Topic,
			RequiredAcks: cfg.Producer.RequiredAcks,
			BatchTimeout: cfg.Producer.BatchTimeout,
			WriteTimeout: cfg.Producer.WriteTimeout,
		},
	}
	if err := cc.Producer.Validate(); err != nil {
		return nil, err
	}
	return cc, nil
}

// openJournal — журнал ошибок выбранного бэкенда; "none" — журнал выключен (nil).
func openJournal(ctx context.Context, cfg *config.Config, log ports.Logger) (ports.FailureJournal, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Journal.Backend)) {
	case "", "memory":
		return journalmem.NewJournal(cfg.Journal.Capacity, cfg.Journal.TTL), func() {}, nil
	case "postgres":
		if err := postgres.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		log.Infof(ctx, "failure journal: postgres max_conns=%d", cfg.Postgres.MaxConns)
		return postgres.NewFailureJournal(pool), pool.Close, nil
	case "none", "off":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
// Движок возвращается в состоянии Created; запускает его Run.
func Bootstrap[G, T any](ctx context.Context, cfg *config.Config, p Pipeline[G, T]) (*App, Cleanup, error) {
	// Логгер (dev/prod режим и уровень задаются конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd, cfg.Logger.Level)
	if err != nil {
		return nil, func() {}, err
	}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}
	fail := func(err error) (*App, Cleanup, error) {
		cleanup()
		return nil, func() {}, err
	}

	// Ошибки конфигурации движка ловим до создания внешних ресурсов.
	engineCfg, err := engineConfig(cfg.Engine)
	if err != nil {
		return fail(err)
	}
	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return fail(err)
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию no-op.
	if cfg.Tracing.Enabled {
		shutdownTrace, tErr := telemetry.SetupTracing(ctx, telemetry.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Attributes:  []attribute.KeyValue{attribute.String("transformer.mode", engineCfg.Mode.String())},
		})
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			cleanups = append(cleanups, func() {
				if terr := shutdownTrace(context.Background()); terr != nil {
					logg.Warnf(ctx, "shutdown tracing: %v", terr)
				}
			})
		}
	}

	// Журнал ошибок записей.
	journal, closeJournal, err := openJournal(ctx, cfg, logg)
	if err != nil {
		return fail(fmt.Errorf("failure journal: %w", err))
	}
	cleanups = append(cleanups, closeJournal)

	// Клиент брокера выбранного драйвера. Закрывает его движок.
	client, err := kafka.NewClient[G, T](clientCfg, p.Decoder, p.Encoder, logg)
	if err != nil {
		return fail(fmt.Errorf("kafka client: %w", err))
	}

	var writer *failureWriter
	if journal != nil {
		writer = newFailureWriter(journal, logg, journalQueueSize)
		cleanups = append(cleanups, func() {
			wctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
			defer cancel()
			if werr := writer.Close(wctx); werr != nil {
				logg.Warnf(ctx, "journal writer close: %v", werr)
			}
		})
	}

	et := p.Transformer
	et.Error = journalErrors(writer, et.Error)

	engine, err := transformer.New[G, T](engineCfg, client, et,
		transformer.WithLogger(logg),
		transformer.WithName(cfg.Consumer.GroupID),
	)
	if err != nil {
		_ = client.Close()
		return fail(err)
	}
	logg.Infof(ctx, "engine built driver=%s mode=%s in=%s out=%s",
		clientCfg.Driver, engineCfg.Mode, cfg.Consumer.Topic, cfg.Producer.Topic)

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(engine, journal, logg, cfg.HTTP.HandlerTimeout)
	router := rest.NewRouter(httpHandler, otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		Engine:          engine,
		StopTimeout:     cfg.Engine.StopTimeout,
		gracefulTimeout: cfg.HTTP.GracefulTimeout,
	}
	return app, cleanup, nil
}

// Run — запускает движок и HTTP-сервер; ждёт отмены контекста, остановки движка
// или ошибки сервера и останавливает всё. Возвращает фатальную ошибку движка, если она была.
// ErrEngineHalted — движок остановился сам из-за ошибки записи (политика PolicyStop).
var ErrEngineHalted = errors.New("engine halted on record error")

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Отмену ctx обрабатываем сами: Stop с таймаутом дренажа.
	if err := a.Engine.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	a.Logger.Infof(ctx, "engine started mode=%s", a.Engine.Mode())

	// Запуск HTTP-сервера.
	go func() {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидание сигнала остановки, остановки движка или ошибки сервера.
	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case <-a.Engine.Done():
		if err := a.Engine.Err(); err != nil {
			a.Logger.Errorf(ctx, "engine stopped with fatal error: %v", err)
			runErr = err
		} else if cause := a.Engine.StopCause(); cause != nil {
			a.Logger.Errorf(ctx, "engine halted on record error: %v", cause)
			runErr = fmt.Errorf("%w: %w", ErrEngineHalted, cause)
		} else {
			a.Logger.Infof(ctx, "engine stopped")
		}
	case err := <-errCh:
		a.Logger.Warnf(ctx, "http server error: %v", err)
		runErr = err
	}

	// Остановка движка: дренаж in-flight и последний коммит.
	st := a.StopTimeout
	if st <= 0 {
		st = 30 * time.Second
	}
	stopCtx, cancelStop := context.WithTimeout(context.Background(), st)
	defer cancelStop()
	if err := a.Engine.Stop(stopCtx); err != nil && !errors.Is(err, transformer.ErrInvalidState) {
		a.Logger.Warnf(ctx, "engine stop: %v", err)
	}

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = 5 * time.Second
	}

	// Корректная остановка HTTP-сервера.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
	} else {
		a.Logger.Infof(ctx, "http server stopped gracefully")
	}

	a.Logger.Infof(ctx, "service stopped")
	return runErr
}
