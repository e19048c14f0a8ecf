// Пакет transformer — движок преобразования потока сообщений:
// читаем запись из топика, применяем пользовательский transform,
// публикуем результат и только после подтверждения двигаем оффсет.
package transformer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Position — позиция чтения (аналог partition+offset).
type Position struct {
	Topic     string
	Partition int
	Offset    int64
}

func (p Position) String() string {
	return fmt.Sprintf("%s[%d]@%d", p.Topic, p.Partition, p.Offset)
}

// partitionKey — ключ партиции для low-water-mark.
type partitionKey struct {
	topic     string
	partition int
}

func (p Position) key() partitionKey { return partitionKey{topic: p.Topic, partition: p.Partition} }

// Record — входящая запись вместе с позицией для коммита.
type Record[G any] struct {
	Value    G
	Key      []byte
	Headers  map[string][]byte
	Time     time.Time
	Position Position
}

// Block — результат transform: значение и метаданные для публикации.
// Пустой Topic — топик продюсера по умолчанию.
type Block[T any] struct {
	Value   T
	Topic   string
	Key     []byte
	Headers map[string][]byte
}

// EventTransformer — пара пользовательских функций.
// Transform может блокироваться (I/O) и возвращать ошибку.
// Error — уведомление «выстрелил и забыл», не должен блокироваться.
type EventTransformer[G, T any] struct {
	Transform func(ctx context.Context, value G) (Block[T], error)
	Error     func(err error)
}

// Consumer — сторона чтения клиента брокера.
type Consumer[G any] interface {
	// Consume возвращает следующую запись; ErrEndOfStream — поток закончился,
	// *DecodeError — запись не удалось декодировать.
	Consume(ctx context.Context) (Record[G], error)
	Commit(ctx context.Context, positions ...Position) error
	Close() error
}

// Producer — сторона публикации; Produce возвращается после подтверждения брокера.
type Producer[T any] interface {
	Produce(ctx context.Context, block Block[T]) error
	Close() error
}

// Client — связанная пара consumer/producer, которой владеет движок.
type Client[G, T any] interface {
	Consumer[G]
	Producer[T]
}

// Mode — вариант движка.
type Mode int

const (
	ModeSynchronous Mode = iota + 1
	ModeAsynchronous
)

func (m Mode) String() string {
	switch m {
	case ModeSynchronous:
		return "synchronous"
	case ModeAsynchronous:
		return "asynchronous"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode — разбор селектора type; всё неизвестное — ErrInvalidType.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synchronous":
		return ModeSynchronous, nil
	case "asynchronous":
		return ModeAsynchronous, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// RecordPolicy — что делать после ошибки отдельной записи.
type RecordPolicy int

const (
	// PolicyAuto — по режиму: synchronous → PolicyStop, asynchronous → PolicyContinue.
	PolicyAuto RecordPolicy = iota
	// PolicyStop — не идём дальше упавшей записи: движок останавливается без коммита её позиции.
	PolicyStop
	// PolicyContinue — продолжаем, но коммиты партиции после упавшей позиции не выполняются.
	PolicyContinue
)

// ParseRecordPolicy: "" и "auto" → PolicyAuto, "stop" → PolicyStop, "continue" → PolicyContinue.
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PolicyAuto, nil
	case "stop":
		return PolicyStop, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return 0, fmt.Errorf("%w: unknown record error policy %q", ErrInvalidConfig, s)
	}
}

func (p RecordPolicy) String() string {
	switch p {
	case PolicyStop:
		return "stop"
	case PolicyContinue:
		return "continue"
	default:
		return "auto"
	}
}

// Config — неизменяемые настройки движка.
type Config struct {
	Mode             Mode
	Window           int           // ёмкость окна in-flight (только asynchronous); 0 — DefaultWindow
	TransformTimeout time.Duration // 0 — без таймаута
	OnRecordError    RecordPolicy
}

// DefaultWindow — ёмкость окна, если не задана.
const DefaultWindow = 64

// Validate — ошибки конфигурации до запуска конвейера.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeSynchronous:
	case ModeAsynchronous:
		if c.Window < 0 {
			return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalidConfig, c.Window)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidType, c.Mode)
	}
	if c.TransformTimeout < 0 {
		return fmt.Errorf("%w: negative transform timeout", ErrInvalidConfig)
	}
	if c.OnRecordError < PolicyAuto || c.OnRecordError > PolicyContinue {
		return fmt.Errorf("%w: unknown record error policy %d", ErrInvalidConfig, c.OnRecordError)
	}
	return nil
}

func (c Config) window() int {
	if c.Mode == ModeSynchronous {
		return 1
	}
	if c.Window == 0 {
		return DefaultWindow
	}
	return c.Window
}

func (c Config) policy() RecordPolicy {
	if c.OnRecordError != PolicyAuto {
		return c.OnRecordError
	}
	if c.Mode == ModeAsynchronous {
		return PolicyContinue
	}
	return PolicyStop
}

// State — состояние жизненного цикла.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
