package transformer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/pkg/ctxmeta"
	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
)

// Engine — запущенный (или готовый к запуску) конвейер преобразования.
type Engine interface {
	// Start — только из Created; запускает цикл чтения.
	Start(ctx context.Context) error
	// Stop — кооперативная остановка: новые записи не читаются, in-flight дорабатывают.
	Stop(ctx context.Context) error
	State() State
	Mode() Mode
	// Done закрывается при переходе в Stopped.
	Done() <-chan struct{}
	// Err — фатальная ошибка, остановившая движок (nil, если её не было).
	Err() error
	// StopCause — ошибка записи, из-за которой движок остановился по политике PolicyStop.
	StopCause() error
	Snapshot() Snapshot
}

// Snapshot — срез состояния движка для ops-эндпоинтов.
type Snapshot = domain.EngineSnapshot

// core — общая часть обоих вариантов: жизненный цикл, окно, канал фатальных ошибок.
type core[G, T any] struct {
	cfg     Config
	name    string
	client  Client[G, T]
	invoke  *invoker[G, T]
	onError func(error)
	log     ports.Logger
	win     *window
	fatal   *fatalChannel

	// loop — цикл конкретного варианта; возвращается, когда чтение прекращено и in-flight дренированы.
	loop func(pullCtx, workCtx context.Context)

	stopCause atomic.Pointer[error]

	state      atomic.Int32
	pullCancel context.CancelFunc
	done       chan struct{}
}

func (c *core[G, T]) State() State          { return State(c.state.Load()) }
func (c *core[G, T]) Mode() Mode            { return c.cfg.Mode }
func (c *core[G, T]) Done() <-chan struct{} { return c.done }
func (c *core[G, T]) Err() error            { return c.fatal.Err() }

func (c *core[G, T]) StopCause() error {
	if p := c.stopCause.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *core[G, T]) Snapshot() Snapshot {
	s := Snapshot{
		Name:     c.name,
		Mode:     c.cfg.Mode.String(),
		State:    c.State().String(),
		Window:   c.win.Capacity(),
		InFlight: c.win.InFlight(),
	}
	if err := c.Err(); err != nil {
		s.Fatal = err.Error()
	}
	if err := c.StopCause(); err != nil {
		s.StopCause = err.Error()
	}
	return s
}

func (c *core[G, T]) Start(ctx context.Context) error {
	if c.invoke == nil || c.invoke.fn == nil {
		return ErrNotBound
	}
	if st := c.State(); st != StateCreated {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, st)
	}

	// Отмена ctx вызывающего = запрос остановки; in-flight работают на контексте без отмены.
	pullCtx, cancel := context.WithCancel(ctx)
	workCtx := context.WithoutCancel(ctx)
	c.pullCancel = cancel

	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		cancel()
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, c.State())
	}
	c.log.Infof(ctx, "engine=%s started mode=%s window=%d", c.name, c.cfg.Mode, c.win.Capacity())

	go func() {
		defer c.finish(workCtx)
		c.loop(pullCtx, workCtx)
	}()
	return nil
}

func (c *core[G, T]) Stop(ctx context.Context) error {
	for {
		switch st := c.State(); st {
		case StateCreated:
			if !c.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				continue
			}
			err := c.client.Close()
			close(c.done)
			c.log.Infof(ctx, "engine=%s stopped before start", c.name)
			return err
		case StateRunning:
			c.beginStop(ctx, "stop requested")
		case StateStopping:
		case StateStopped:
			return fmt.Errorf("%w: stop in state %s", ErrInvalidState, st)
		}
		break
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginStop: Running → Stopping и прекращение чтения. Повторный вызов безопасен.
func (c *core[G, T]) beginStop(ctx context.Context, reason string) {
	if c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		c.log.Infof(ctx, "engine=%s stopping: %s", c.name, reason)
	}
	if c.pullCancel != nil {
		c.pullCancel()
	}
}

// finish — после дренажа: закрываем клиента и переходим в Stopped.
func (c *core[G, T]) finish(ctx context.Context) {
	c.state.Store(int32(StateStopping))
	if err := c.client.Close(); err != nil {
		c.log.Warnf(ctx, "engine=%s client close error: %v", c.name, err)
	}
	metrics.InFlight.WithLabelValues(c.cfg.Mode.String()).Set(0)
	c.state.Store(int32(StateStopped))
	// Обработчик фатальной ошибки видит Stopped; Stop из него сразу вернёт ErrInvalidState.
	c.fatal.Deliver()
	close(c.done)
	c.log.Infof(ctx, "engine=%s stopped", c.name)
}

// reserveAndConsume: слот окна берётся до чтения, иначе при заполненном окне
// мы бы продолжали тянуть записи. ok=false — цикл чтения должен завершиться.
func (c *core[G, T]) reserveAndConsume(pullCtx, workCtx context.Context) (Record[G], ticket, bool) {
	for {
		if err := c.win.Reserve(pullCtx); err != nil {
			return Record[G]{}, 0, false
		}
		rec, err := c.client.Consume(pullCtx)
		if err == nil {
			metrics.RecordsConsumed.WithLabelValues(rec.Position.Topic).Inc()
			return rec, c.track(rec.Position), true
		}

		var de *DecodeError
		switch {
		case pullCtx.Err() != nil:
			c.win.Cancel()
			return Record[G]{}, 0, false
		case errors.Is(err, ErrEndOfStream):
			c.win.Cancel()
			c.beginStop(workCtx, "end of stream")
			return Record[G]{}, 0, false
		case errors.As(err, &de):
			metrics.RecordsConsumed.WithLabelValues(de.Position.Topic).Inc()
			t := c.track(de.Position)
			c.resolve(t, false)
			if !c.recordFailed(workCtx, &RecordError{Stage: StageDecode, Position: de.Position, Key: de.Key, Err: de.Err}) {
				return Record[G]{}, 0, false
			}
		default:
			c.win.Cancel()
			c.fail(workCtx, err)
			return Record[G]{}, 0, false
		}
	}
}

func (c *core[G, T]) track(pos Position) ticket {
	t := c.win.Track(pos)
	metrics.InFlight.WithLabelValues(c.cfg.Mode.String()).Set(float64(c.win.InFlight()))
	return t
}

func (c *core[G, T]) resolve(t ticket, ok bool) {
	c.win.Resolve(t, ok)
	metrics.InFlight.WithLabelValues(c.cfg.Mode.String()).Set(float64(c.win.InFlight()))
}

// process — transform и публикация одной записи с ожиданием подтверждения.
func (c *core[G, T]) process(ctx context.Context, rec Record[G]) error {
	ctx = ctxmeta.WithEngine(ctx, c.name)
	ctx = ctxmeta.WithRecordPosition(ctx, rec.Position.String())

	block, err := c.invoke.invoke(ctx, rec)
	if err != nil {
		return err
	}
	metrics.RecordsTransformed.WithLabelValues(c.cfg.Mode.String()).Inc()

	if err := c.client.Produce(ctx, block); err != nil {
		if IsFatal(err) {
			return err
		}
		return &RecordError{Stage: StageProduce, Position: rec.Position, Key: rec.Key, Err: err}
	}
	metrics.RecordsProduced.WithLabelValues(block.Topic).Inc()
	return nil
}

// handleResult разбирает исход process. false — дальше записи не читаем.
func (c *core[G, T]) handleResult(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if IsFatal(err) {
		c.fail(ctx, err)
		return false
	}
	return c.recordFailed(ctx, err)
}

// recordFailed уведомляет вызывающего об ошибке записи и применяет политику.
func (c *core[G, T]) recordFailed(ctx context.Context, err error) bool {
	stage := Stage("unknown")
	var re *RecordError
	if errors.As(err, &re) {
		stage = re.Stage
	}
	metrics.RecordsFailed.WithLabelValues(c.cfg.Mode.String(), string(stage)).Inc()
	c.log.Warnf(ctx, "engine=%s record failed: %v (position not committed)", c.name, err)
	c.notify(err)

	if c.cfg.policy() == PolicyContinue {
		return true
	}
	// в async несколько записей могут упасть одновременно: причиной считаем первую
	c.stopCause.CompareAndSwap(nil, &err)
	c.beginStop(ctx, "record error")
	return false
}

// fail — фатальная ошибка: сначала Stopping и отмена чтения, затем фиксация ошибки.
// Подписчики узнают о ней в finish, когда движок уже Stopped.
func (c *core[G, T]) fail(ctx context.Context, err error) {
	err = Fatal(err)
	c.beginStop(ctx, "fatal error")
	if c.fatal.Fire(err) {
		metrics.FatalErrors.WithLabelValues(c.cfg.Mode.String()).Inc()
		c.log.Errorf(ctx, "engine=%s fatal: %v", c.name, err)
	}
}

// commit коммитит всё, что окно отдало как непрерывный префикс.
// Возвращает только фатальную ошибку; остальные логируются, следующий коммит их перекроет.
func (c *core[G, T]) commit(ctx context.Context) error {
	positions := c.win.TakeCommits()
	if len(positions) == 0 {
		return nil
	}
	if err := c.client.Commit(ctx, positions...); err != nil {
		if IsFatal(err) {
			return err
		}
		for _, p := range positions {
			metrics.CommitFailures.WithLabelValues(p.Topic).Inc()
		}
		c.log.Warnf(ctx, "engine=%s commit failed positions=%v: %v", c.name, positions, err)
		return nil
	}
	for _, p := range positions {
		metrics.Commits.WithLabelValues(p.Topic).Inc()
	}
	c.log.Debugf(ctx, "engine=%s committed %v", c.name, positions)
	return nil
}

// notify вызывает пользовательский обработчик ошибок; паника обработчика не роняет движок.
func (c *core[G, T]) notify(err error) { c.safeCall(c.onError, err) }

func (c *core[G, T]) safeCall(fn func(error), err error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf(context.Background(), "engine=%s error callback panicked: %v", c.name, r)
		}
	}()
	fn(err)
}
