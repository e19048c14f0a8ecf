package transformer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pos(p int, off int64) Position { return Position{Topic: "t", Partition: p, Offset: off} }

func track(t *testing.T, w *window, p Position) ticket {
	t.Helper()
	require.NoError(t, w.Reserve(context.Background()))
	return w.Track(p)
}

func TestWindow_ContiguousPrefixOnly(t *testing.T) {
	w := newWindow(4)
	t0 := track(t, w, pos(0, 10))
	t1 := track(t, w, pos(0, 11))
	t2 := track(t, w, pos(0, 12))

	w.Resolve(t2, true)
	w.Resolve(t1, true)
	require.Nil(t, w.TakeCommits(), "gap at the head")
	require.Equal(t, 3, w.InFlight())

	w.Resolve(t0, true)
	require.Equal(t, []Position{pos(0, 12)}, w.TakeCommits())
	require.Equal(t, 0, w.InFlight())
	require.Nil(t, w.TakeCommits())
}

func TestWindow_FailurePoisonsPartition(t *testing.T) {
	w := newWindow(8)
	a0 := track(t, w, pos(0, 0))
	a1 := track(t, w, pos(0, 1))
	b0 := track(t, w, pos(1, 0))
	a2 := track(t, w, pos(0, 2))

	w.Resolve(a0, true)
	w.Resolve(a1, false)
	w.Resolve(b0, true)
	w.Resolve(a2, true)

	require.Equal(t, []Position{pos(0, 0), pos(1, 0)}, w.TakeCommits())
	require.True(t, w.Poisoned("t", 0))
	require.False(t, w.Poisoned("t", 1))

	// дальнейшие успехи в партиции 0 не коммитятся
	a3 := track(t, w, pos(0, 3))
	w.Resolve(a3, true)
	require.Nil(t, w.TakeCommits())
}

func TestWindow_TakeCommitsSorted(t *testing.T) {
	w := newWindow(8)
	for _, p := range []Position{{Topic: "b", Partition: 0}, {Topic: "a", Partition: 2}, {Topic: "a", Partition: 1}} {
		w.Resolve(track(t, w, p), true)
	}
	require.Equal(t, []Position{{Topic: "a", Partition: 1}, {Topic: "a", Partition: 2}, {Topic: "b", Partition: 0}}, w.TakeCommits())
}

func TestWindow_ReserveBlocksWhenFull(t *testing.T) {
	w := newWindow(2)
	t0 := track(t, w, pos(0, 0))
	track(t, w, pos(0, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, w.Reserve(ctx), context.DeadlineExceeded)

	got := make(chan error, 1)
	go func() { got <- w.Reserve(context.Background()) }()

	select {
	case <-got:
		t.Fatal("Reserve must block while the window is full")
	case <-time.After(20 * time.Millisecond):
	}

	w.Resolve(t0, true)
	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Reserve did not unblock after release")
	}
}

func TestWindow_CancelReturnsReservation(t *testing.T) {
	w := newWindow(1)
	require.NoError(t, w.Reserve(context.Background()))
	w.Cancel()
	require.NoError(t, w.Reserve(context.Background()))
}

func TestWindow_DoubleResolveIgnored(t *testing.T) {
	w := newWindow(2)
	t0 := track(t, w, pos(0, 0))
	w.Resolve(t0, true)
	w.Resolve(t0, false) // уже за головой окна
	require.Equal(t, []Position{pos(0, 0)}, w.TakeCommits())
	require.False(t, w.Poisoned("t", 0))

	// семафор не «переосвобождён»: в окне ёмкости 2 помещаются ровно 2 резерва
	require.NoError(t, w.Reserve(context.Background()))
	require.NoError(t, w.Reserve(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, w.Reserve(ctx))
}

func TestWindow_ReadySignal(t *testing.T) {
	w := newWindow(2)
	w.Resolve(track(t, w, pos(0, 0)), true)
	select {
	case <-w.Ready():
	default:
		t.Fatal("Ready must fire when positions become committable")
	}
}

func TestFatalChannel_FiresOnce(t *testing.T) {
	var calls []error
	f := newFatalChannel(func(err error) { calls = append(calls, err) })
	require.NoError(t, f.Err())

	f.Deliver()
	require.Empty(t, calls, "no error, nothing to deliver")

	first, second := errors.New("first"), errors.New("second")
	require.True(t, f.Fire(first))
	require.False(t, f.Fire(second))
	require.Empty(t, calls, "Fire only records the error")

	<-f.Done()
	require.Equal(t, first, f.Err())

	f.Deliver()
	f.Deliver()
	require.Equal(t, []error{first}, calls)
}
