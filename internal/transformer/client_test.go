package transformer

import (
	"context"
	"sync"
	"sync/atomic"
)

// step — один ответ Consume: запись или ошибка.
type step[G any] struct {
	rec Record[G]
	err error
}

// scriptedClient — клиент брокера в памяти. Отдаёт записи по сценарию,
// после сценария либо блокируется до отмены (по умолчанию), либо отдаёт ErrEndOfStream.
type scriptedClient[G, T any] struct {
	mu       sync.Mutex
	script   []step[G]
	next     int
	eof      bool
	produced []Block[T]
	commits  [][]Position

	// produceFn — поведение Produce; nil — успех.
	produceFn func(ctx context.Context, b Block[T]) error
	// onCommit вызывается под mu до записи коммита.
	onCommit func(positions []Position)
	commitFn func(positions []Position) error

	consumed    atomic.Int32
	inProduce   atomic.Int32
	maxProduce  atomic.Int32
	closeCalled atomic.Int32
}

func records(topic string, partition int, from, n int64) []step[int] {
	out := make([]step[int], 0, n)
	for i := int64(0); i < n; i++ {
		off := from + i
		out = append(out, step[int]{rec: Record[int]{
			Value:    int(off),
			Key:      []byte{byte(off)},
			Position: Position{Topic: topic, Partition: partition, Offset: off},
		}})
	}
	return out
}

func (c *scriptedClient[G, T]) Consume(ctx context.Context) (Record[G], error) {
	c.mu.Lock()
	if c.next < len(c.script) {
		s := c.script[c.next]
		c.next++
		c.mu.Unlock()
		c.consumed.Add(1)
		return s.rec, s.err
	}
	eof := c.eof
	c.mu.Unlock()

	if eof {
		return Record[G]{}, ErrEndOfStream
	}
	<-ctx.Done()
	return Record[G]{}, ctx.Err()
}

func (c *scriptedClient[G, T]) Produce(ctx context.Context, b Block[T]) error {
	n := c.inProduce.Add(1)
	defer c.inProduce.Add(-1)
	for {
		m := c.maxProduce.Load()
		if n <= m || c.maxProduce.CompareAndSwap(m, n) {
			break
		}
	}

	if c.produceFn != nil {
		if err := c.produceFn(ctx, b); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.produced = append(c.produced, b)
	c.mu.Unlock()
	return nil
}

func (c *scriptedClient[G, T]) Commit(_ context.Context, positions ...Position) error {
	if c.commitFn != nil {
		if err := c.commitFn(positions); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onCommit != nil {
		c.onCommit(positions)
	}
	c.commits = append(c.commits, append([]Position(nil), positions...))
	return nil
}

func (c *scriptedClient[G, T]) Close() error {
	c.closeCalled.Add(1)
	return nil
}

func (c *scriptedClient[G, T]) committed() []Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Position
	for _, batch := range c.commits {
		out = append(out, batch...)
	}
	return out
}

func (c *scriptedClient[G, T]) producedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.produced)
}

// errorSink собирает ошибки из колбэка Error.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// echo — transform, который просто перекладывает значение.
func echo(_ context.Context, v int) (Block[int], error) {
	return Block[int]{Value: v, Topic: "out"}, nil
}
