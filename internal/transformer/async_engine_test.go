package transformer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Подтверждения приходят в обратном порядке: коммит только по непрерывному префиксу,
// без дыр и без отката.
func TestAsyncEngine_LowWaterMark_OutOfOrderAcks(t *testing.T) {
	t.Parallel()

	const n = 32
	c := &scriptedClient[int, int]{script: records("in", 0, 0, n), eof: true}
	c.produceFn = func(_ context.Context, b Block[int]) error {
		// чем раньше запись, тем дольше её публикация
		time.Sleep(time.Duration(n-b.Value) * 200 * time.Microsecond)
		return nil
	}

	acked := make(map[int64]bool)
	var last int64 = -1
	c.onCommit = func(positions []Position) {
		for _, b := range c.produced {
			acked[int64(b.Value)] = true
		}
		for _, p := range positions {
			for off := int64(0); off <= p.Offset; off++ {
				if !acked[off] {
					t.Errorf("commit %s with unacknowledged offset %d", p, off)
				}
			}
			if p.Offset <= last {
				t.Errorf("commit regressed: %d after %d", p.Offset, last)
			}
			last = p.Offset
		}
	}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: 8}, c, EventTransformer[int, int]{Transform: echo})
	require.NoError(t, err)
	waitStopped(t, e)

	require.NoError(t, e.Err())
	require.Equal(t, n, c.producedCount())
	require.Greater(t, c.maxProduce.Load(), int32(1), "publishes must overlap")

	committed := c.committed()
	require.NotEmpty(t, committed)
	require.Equal(t, int64(n-1), committed[len(committed)-1].Offset)
}

// Окно заполнено: чтение приостанавливается, пока слот не освободится.
func TestAsyncEngine_Backpressure(t *testing.T) {
	t.Parallel()

	const window = 4
	gate := make(chan struct{})
	c := &scriptedClient[int, int]{script: records("in", 0, 0, 20), eof: true}
	c.produceFn = func(ctx context.Context, _ Block[int]) error {
		<-gate
		return nil
	}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: window}, c, EventTransformer[int, int]{Transform: echo})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.consumed.Load() == window }, time.Second, time.Millisecond)
	// даём циклу чтения шанс нарушить ограничение
	time.Sleep(30 * time.Millisecond)
	require.EqualValues(t, window, c.consumed.Load())
	require.Equal(t, window, e.Snapshot().InFlight)

	close(gate)
	waitStopped(t, e)
	require.EqualValues(t, 20, c.consumed.Load())
	require.Equal(t, 20, c.producedCount())
	require.Equal(t, 0, e.Snapshot().InFlight)
}

// Слот не освобождается, пока не подтверждены все предыдущие записи:
// окно ограничивает незакоммиченные записи.
func TestAsyncEngine_HeadOfLineHoldsWindow(t *testing.T) {
	t.Parallel()

	const window = 3
	release := make(chan struct{})
	c := &scriptedClient[int, int]{script: records("in", 0, 0, 10), eof: true}
	c.produceFn = func(_ context.Context, b Block[int]) error {
		if b.Value == 0 {
			<-release
		}
		return nil
	}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: window}, c, EventTransformer[int, int]{Transform: echo})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.producedCount() == window-1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, window, c.consumed.Load())
	require.Empty(t, c.committed())

	close(release)
	waitStopped(t, e)
	require.Equal(t, 10, c.producedCount())
}

// Ошибка одной записи не блокирует остальные и не даёт коммиту пройти дальше неё.
func TestAsyncEngine_RecordFailure_DoesNotAdvancePast(t *testing.T) {
	t.Parallel()

	const k = 5
	c := &scriptedClient[int, int]{script: records("in", 0, 0, 12), eof: true}
	c.produceFn = func(_ context.Context, b Block[int]) error {
		if b.Value == k {
			return errors.New("message too large")
		}
		return nil
	}
	sink := &errorSink{}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: 4}, c,
		EventTransformer[int, int]{Transform: echo, Error: sink.add})
	require.NoError(t, err)
	waitStopped(t, e)

	require.NoError(t, e.Err())
	require.Equal(t, 11, c.producedCount())

	errs := sink.all()
	require.Len(t, errs, 1)
	var re *RecordError
	require.ErrorAs(t, errs[0], &re)
	require.Equal(t, int64(k), re.Position.Offset)

	for _, p := range c.committed() {
		require.Less(t, p.Offset, int64(k))
	}
}

// Stop посреди потока: чтение прекращается, in-flight записи дорабатывают и коммитятся.
func TestAsyncEngine_StopDrainsInFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	c := &scriptedClient[int, int]{script: records("in", 0, 0, 100)}
	c.produceFn = func(ctx context.Context, _ Block[int]) error {
		select {
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: 5}, c, EventTransformer[int, int]{Transform: echo})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.consumed.Load() == 5 }, time.Second, time.Millisecond)

	stopErr := make(chan error, 1)
	go func() { stopErr <- e.Stop(context.Background()) }()

	require.Eventually(t, func() bool { return e.State() == StateStopping }, time.Second, time.Millisecond)
	close(gate)

	select {
	case err := <-stopErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	require.Equal(t, StateStopped, e.State())
	require.Equal(t, 5, c.producedCount(), "in-flight records are drained, not cancelled")
	require.EqualValues(t, 5, c.consumed.Load(), "no records pulled after stop")
	committed := c.committed()
	require.Equal(t, int64(4), committed[len(committed)-1].Offset)
	require.EqualValues(t, 1, c.closeCalled.Load())
}

// Фатальная ошибка коммита останавливает движок ровно одним событием.
func TestAsyncEngine_FatalCommitError(t *testing.T) {
	t.Parallel()

	var once sync.Once
	c := &scriptedClient[int, int]{script: records("in", 0, 0, 50)}
	c.commitFn = func([]Position) error {
		var err error
		once.Do(func() { err = Fatal(errors.New("group authorization failed")) })
		return err
	}
	sink := &errorSink{}

	e, err := Transform[int, int](context.Background(), Config{Mode: ModeAsynchronous, Window: 8}, c,
		EventTransformer[int, int]{Transform: echo, Error: sink.add})
	require.NoError(t, err)
	waitStopped(t, e)

	require.True(t, IsFatal(e.Err()))
	require.Len(t, sink.all(), 1)
}
