package ports

import "github.com/Gunvolt24/kafka_transformer/internal/domain"

// Engine — то, что ops-слою нужно от работающего движка.
type Engine interface {
	Snapshot() domain.EngineSnapshot
}
