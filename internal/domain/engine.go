package domain

// EngineSnapshot — срез состояния движка для ops-эндпоинтов.
type EngineSnapshot struct {
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	State    string `json:"state"`
	Window   int    `json:"window"`
	InFlight int    `json:"in_flight"`
	Fatal    string `json:"fatal_error,omitempty"`
	// StopCause — ошибка записи, остановившая движок по политике stop.
	StopCause string `json:"stop_cause,omitempty"`
}
