package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
)

type entry struct {
	key       domain.FailureKey
	failure   domain.Failure
	expiresAt time.Time
}

// Journal — ограниченный журнал ошибок в памяти: LRU по записи + TTL.
// Голова списка — самая свежая ошибка.
type Journal struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	ll    *list.List
	index map[domain.FailureKey]*list.Element

	mu sync.Mutex
}

func NewJournal(capacity int, ttl time.Duration) *Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &Journal{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		index:    make(map[domain.FailureKey]*list.Element),
	}
}

// Record сохраняет ошибку; повторная доставка той же записи обновляет существующую запись.
func (j *Journal) Record(_ context.Context, f domain.Failure) error {
	now := j.now()
	if f.At.IsZero() {
		f.At = now
	}
	f.Key = append([]byte(nil), f.Key...)
	k := f.Identity()

	j.mu.Lock()
	defer j.mu.Unlock()

	metrics.JournalOps.WithLabelValues("record").Inc()

	if elem, ok := j.index[k]; ok {
		ent := elem.Value.(*entry)
		f.ID = ent.failure.ID
		f.Attempts = ent.failure.Attempts + 1
		ent.failure = f
		ent.expiresAt = j.expiryFrom(now)
		j.ll.MoveToFront(elem)
		return nil
	}

	j.pruneExpiredFromBack(now)

	f.Attempts = 1
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	elem := j.ll.PushFront(&entry{key: k, failure: f, expiresAt: j.expiryFrom(now)})
	j.index[k] = elem

	if j.ll.Len() > j.capacity {
		j.evictLRU()
	}
	metrics.JournalSize.Set(float64(j.ll.Len()))
	return nil
}

// Recent — ошибки от свежих к старым, истёкшие пропускаются.
func (j *Journal) Recent(ctx context.Context, limit, offset int) ([]domain.Failure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Failure{}, nil
	}
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.pruneExpiredFromBack(now)

	out := make([]domain.Failure, 0, limit)
	skipped := 0
	for e := j.ll.Front(); e != nil && len(out) < limit; e = e.Next() {
		ent := e.Value.(*entry)
		if j.isExpired(ent, now) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, cloneFailure(ent.failure))
	}
	return out, nil
}

// Len — текущее число записей (включая ещё не вычищенные истёкшие).
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ll.Len()
}
