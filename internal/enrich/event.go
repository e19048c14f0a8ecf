// Пакет enrich — пример преобразования для сервиса: JSON-события обогащаются
// метаданными обработки и маршрутизируются по категории.
package enrich

import (
	"encoding/json"
	"strings"
	"time"
)

// Event — входящее событие.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"` // category.action, например order.created
	Source     string          `json:"source,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Category — часть типа до первой точки.
func (e *Event) Category() string {
	if i := strings.IndexByte(e.Type, '.'); i > 0 {
		return e.Type[:i]
	}
	return e.Type
}

// Enriched — исходящее событие.
type Enriched struct {
	Event
	Category    string    `json:"category"`
	Processor   string    `json:"processor"`
	ProcessedAt time.Time `json:"processed_at"`
	LagMillis   int64     `json:"lag_ms"`
}
