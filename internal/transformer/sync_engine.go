package transformer

import "context"

// syncEngine — строго одна запись за раз: Consume → Transform → Produce (с ожиданием ack) → Commit.
// Окно ёмкости 1, коммит выполняется в том же цикле сразу после подтверждения.
type syncEngine[G, T any] struct {
	*core[G, T]
}

func newSyncEngine[G, T any](c *core[G, T]) *syncEngine[G, T] {
	e := &syncEngine[G, T]{core: c}
	e.loop = e.run
	return e
}

func (e *syncEngine[G, T]) run(pullCtx, workCtx context.Context) {
	for {
		rec, t, ok := e.reserveAndConsume(pullCtx, workCtx)
		if !ok {
			e.flush(workCtx)
			return
		}

		err := e.process(workCtx, rec)
		e.resolve(t, err == nil)
		if err == nil {
			e.flush(workCtx)
			continue
		}
		if !e.handleResult(workCtx, err) {
			e.flush(workCtx)
			return
		}
	}
}

func (e *syncEngine[G, T]) flush(ctx context.Context) {
	if err := e.commit(ctx); err != nil {
		e.fail(ctx, err)
	}
}
