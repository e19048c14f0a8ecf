package transformer

import (
	"context"
	"sync"
)

// asyncEngine — до Window записей одновременно в transform/produce.
// Подтверждения приходят в произвольном порядке; коммитит отдельная горутина,
// поэтому коммиты сериализованы и позиция в партиции не откатывается.
type asyncEngine[G, T any] struct {
	*core[G, T]
}

func newAsyncEngine[G, T any](c *core[G, T]) *asyncEngine[G, T] {
	e := &asyncEngine[G, T]{core: c}
	e.loop = e.run
	return e
}

func (e *asyncEngine[G, T]) run(pullCtx, workCtx context.Context) {
	stop := make(chan struct{})
	committed := make(chan struct{})
	go e.commitLoop(workCtx, stop, committed)

	var wg sync.WaitGroup
	for {
		rec, t, ok := e.reserveAndConsume(pullCtx, workCtx)
		if !ok {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.process(workCtx, rec)
			e.resolve(t, err == nil)
			e.handleResult(workCtx, err)
		}()
	}

	// Дренаж: ждём все in-flight, затем финальный коммит.
	wg.Wait()
	close(stop)
	<-committed
}

func (e *asyncEngine[G, T]) commitLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-e.win.Ready():
			if err := e.commit(ctx); err != nil {
				e.fail(ctx, err)
			}
		case <-stop:
			if err := e.commit(ctx); err != nil {
				e.fail(ctx, err)
			}
			return
		}
	}
}
