package transformer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidType    = errors.New("transformer: invalid type")
	ErrInvalidConfig  = errors.New("transformer: invalid config")
	ErrInvalidState   = errors.New("transformer: invalid state")
	ErrNotBound       = errors.New("transformer: transform callback is not bound")
	ErrEndOfStream    = errors.New("transformer: end of stream")
	ErrTransformPanic = errors.New("transformer: transform panicked")
)

// Stage — этап конвейера, на котором упала запись.
type Stage string

const (
	StageDecode    Stage = "decode"
	StageTransform Stage = "transform"
	StageProduce   Stage = "produce"
)

// RecordError — ошибка одной записи. Позиция такой записи не коммитится.
type RecordError struct {
	Stage    Stage
	Position Position
	Key      []byte
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("transformer: %s failed at %s: %v", e.Stage, e.Position, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// DecodeError — клиент не смог декодировать значение записи.
type DecodeError struct {
	Position Position
	Key      []byte
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FatalError — транспортная ошибка клиента брокера; останавливает движок.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "transformer: fatal: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal помечает ошибку как неустранимую. nil остаётся nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Err: err}
}

// IsFatal — помечена ли ошибка как неустранимая.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
