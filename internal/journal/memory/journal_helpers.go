package memory

import (
	"container/list"
	"time"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
	"github.com/Gunvolt24/kafka_transformer/pkg/metrics"
)

// evictLRU — удаляет самую старую запись.
func (j *Journal) evictLRU() {
	if back := j.ll.Back(); back != nil {
		j.removeElement(back)
		metrics.JournalOps.WithLabelValues("evicted").Inc()
	}
}

// removeElement — удаляет элемент из списка и индекса.
func (j *Journal) removeElement(elem *list.Element) {
	if elem == nil {
		return
	}
	if ent, ok := elem.Value.(*entry); ok {
		delete(j.index, ent.key)
	}
	j.ll.Remove(elem)
}

func (j *Journal) isExpired(ent *entry, now time.Time) bool {
	if j.ttl <= 0 {
		return false
	}
	return now.After(ent.expiresAt)
}

func (j *Journal) expiryFrom(now time.Time) time.Time {
	if j.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(j.ttl)
}

// pruneExpiredFromBack — удаляет истёкшие записи с хвоста до первой актуальной.
// Записи упорядочены по времени записи, поэтому хвост истекает первым.
func (j *Journal) pruneExpiredFromBack(now time.Time) {
	if j.ttl <= 0 {
		return
	}
	for {
		back := j.ll.Back()
		if back == nil {
			break
		}
		ent, ok := back.Value.(*entry)
		if ok && !now.After(ent.expiresAt) {
			break
		}
		j.removeElement(back)
		metrics.JournalOps.WithLabelValues("expired").Inc()
	}
	metrics.JournalSize.Set(float64(j.ll.Len()))
}

// cloneFailure — копия, чтобы вызывающий не менял данные внутри журнала.
func cloneFailure(f domain.Failure) domain.Failure {
	f.Key = append([]byte(nil), f.Key...)
	return f
}
