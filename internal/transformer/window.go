package transformer

import (
	"context"
	"sort"
	"sync"
)

type slotState uint8

const (
	slotPending slotState = iota
	slotDone
	slotFailed
)

type slot struct {
	pos   Position
	state slotState
}

// ticket — порядковый номер записи в окне.
type ticket uint64

// window — окно in-flight фиксированной ёмкости (кольцевой буфер в порядке чтения).
//
// Слот занимается до чтения записи (Reserve) и освобождается, только когда
// голова окна проходит через него: запись подтверждена и все предыдущие
// тоже разрешены. Поэтому ёмкость ограничивает незакоммиченные записи,
// а коммит никогда не обгоняет непрерывный префикс (low-water-mark).
type window struct {
	sem  chan struct{}
	ring []slot

	mu         sync.Mutex
	head, tail uint64
	poisoned   map[partitionKey]struct{}
	ready      map[partitionKey]Position
	notify     chan struct{}
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{
		sem:      make(chan struct{}, capacity),
		ring:     make([]slot, capacity),
		poisoned: make(map[partitionKey]struct{}),
		ready:    make(map[partitionKey]Position),
		notify:   make(chan struct{}, 1),
	}
}

// Capacity — ёмкость окна.
func (w *window) Capacity() int { return len(w.ring) }

// Reserve блокируется, пока окно заполнено.
func (w *window) Reserve(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case w.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel возвращает резерв, не превращённый в слот.
func (w *window) Cancel() { <-w.sem }

// Track занимает зарезервированный слот под позицию.
func (w *window) Track(pos Position) ticket {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := w.tail
	w.ring[t%uint64(len(w.ring))] = slot{pos: pos, state: slotPending}
	w.tail++
	return ticket(t)
}

// Resolve отмечает завершение записи и продвигает голову окна.
func (w *window) Resolve(t ticket, ok bool) {
	w.mu.Lock()
	if uint64(t) < w.head || uint64(t) >= w.tail {
		w.mu.Unlock()
		return
	}
	s := &w.ring[uint64(t)%uint64(len(w.ring))]
	if s.state != slotPending {
		w.mu.Unlock()
		return
	}
	if ok {
		s.state = slotDone
	} else {
		s.state = slotFailed
	}

	released := 0
	for w.head < w.tail {
		h := &w.ring[w.head%uint64(len(w.ring))]
		if h.state == slotPending {
			break
		}
		k := h.pos.key()
		if h.state == slotFailed {
			w.poisoned[k] = struct{}{}
		} else if _, bad := w.poisoned[k]; !bad {
			w.ready[k] = h.pos
		}
		w.head++
		released++
	}
	if len(w.ready) > 0 {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
	w.mu.Unlock()

	for i := 0; i < released; i++ {
		<-w.sem
	}
}

// TakeCommits забирает позиции, готовые к коммиту: по одной (старшей) на партицию.
func (w *window) TakeCommits() []Position {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.ready) == 0 {
		return nil
	}
	out := make([]Position, 0, len(w.ready))
	for k, p := range w.ready {
		out = append(out, p)
		delete(w.ready, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// Ready сигналит, что появились позиции для коммита.
func (w *window) Ready() <-chan struct{} { return w.notify }

// InFlight — число занятых слотов.
func (w *window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.tail - w.head)
}

// Poisoned — была ли в партиции упавшая запись.
func (w *window) Poisoned(topic string, partition int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.poisoned[partitionKey{topic: topic, partition: partition}]
	return ok
}
