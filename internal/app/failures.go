package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/internal/ports"
	"github.com/Gunvolt24/kafka_transformer/internal/transformer"
	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
)

const (
	// journalTimeout — сколько фоновая запись ждёт журнал на одну ошибку.
	journalTimeout = 2 * time.Second
	// journalQueueSize — сколько ошибок может ждать записи; остальные отбрасываются.
	journalQueueSize = 256
)

// failureFromError — запись журнала по ошибке отдельной записи; фатальные ошибки не журналируются.
func failureFromError(err error, now time.Time) (domain.Failure, bool) {
	var re *transformer.RecordError
	if !errors.As(err, &re) || transformer.IsFatal(err) {
		return domain.Failure{}, false
	}
	return domain.Failure{
		ID:        uuid.New(),
		Stage:     string(re.Stage),
		Topic:     re.Position.Topic,
		Partition: re.Position.Partition,
		Offset:    re.Position.Offset,
		Key:       re.Key,
		Error:     re.Err.Error(),
		At:        now,
	}, true
}

// failureWriter пишет ошибки в журнал из своей горутины.
// Обработчик ошибок движка только кладёт запись в очередь и никогда не ждёт хранилище.
type failureWriter struct {
	journal ports.FailureJournal
	log     ports.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Failure
	done   chan struct{}
}

func newFailureWriter(journal ports.FailureJournal, log ports.Logger, size int) *failureWriter {
	if size <= 0 {
		size = journalQueueSize
	}
	w := &failureWriter{
		journal: journal,
		log:     log,
		queue:   make(chan domain.Failure, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue не блокируется: при полной очереди или после Close запись отбрасывается.
func (w *failureWriter) Enqueue(f domain.Failure) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.closed {
		select {
		case w.queue <- f:
			return true
		default:
		}
	}
	metrics.JournalOps.WithLabelValues("dropped").Inc()
	return false
}

func (w *failureWriter) run() {
	defer close(w.done)
	for f := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if err := w.journal.Record(ctx, f); err != nil {
			w.log.Warnf(ctx, "journal record failed position=%s/%d@%d: %v", f.Topic, f.Partition, f.Offset, err)
		}
		cancel()
	}
}

// Close дописывает очередь; ctx ограничивает ожидание.
func (w *failureWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// journalErrors оборачивает обработчик ошибок движка: ошибки записей ставятся в очередь журнала,
// затем вызывается next (если задан). w == nil — журнал выключен.
func journalErrors(w *failureWriter, next func(error)) func(error) {
	return func(err error) {
		if w != nil {
			if f, ok := failureFromError(err, time.Now()); ok {
				w.Enqueue(f)
			}
		}
		if next != nil {
			next(err)
		}
	}
}
