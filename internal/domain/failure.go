package domain

import (
	"time"

	"github.com/google/uuid"
)

// Failure — запись журнала об ошибке обработки одной записи.
// Идентичность для дедупликации: (Topic, Partition, Offset, Stage) — повторная доставка
// той же записи перезаписывает прежнюю ошибку.
type Failure struct {
	ID        uuid.UUID `json:"id"`
	Stage     string    `json:"stage"` // decode|transform|produce
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Key       []byte    `json:"key,omitempty"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"` // сколько раз запись падала на этой стадии
	At        time.Time `json:"at"`
}

// FailureKey — ключ идемпотентности записи журнала.
type FailureKey struct {
	Topic     string
	Partition int
	Offset    int64
	Stage     string
}

func (f Failure) Identity() FailureKey {
	return FailureKey{Topic: f.Topic, Partition: f.Partition, Offset: f.Offset, Stage: f.Stage}
}
