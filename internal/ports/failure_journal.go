package ports

import (
	"context"

	"github.com/Gunvolt24/kafka_transformer/internal/domain"
)

// FailureJournal — журнал ошибок обработки записей для операторов.
// Требования к реализации: потокобезопасность; Record идемпотентен по Failure.Identity().
type FailureJournal interface {
	// Record — сохранить ошибку; повтор той же записи на той же стадии обновляет прежнюю.
	Record(ctx context.Context, f domain.Failure) error

	// Recent — последние ошибки, новые первыми.
	Recent(ctx context.Context, limit, offset int) ([]domain.Failure, error)
}
