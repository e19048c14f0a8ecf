package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTrailingData — после значения во входе есть ещё данные.
var ErrTrailingData = errors.New("trailing data after value")

// FromJSON — строгий разбор одного значения и его валидация.
// Неизвестные поля и данные после значения — ошибка.
func FromJSON[V any](ctx context.Context, validator Validator[V], raw []byte) (*V, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	v := new(V)
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid json: %w", ErrTrailingData)
	}
	if validator != nil {
		if err := validator.Validate(ctx, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Canonical — FromJSON и перекодирование в компактный JSON без лишних пробелов и полей.
func Canonical[V any](ctx context.Context, validator Validator[V], raw []byte) ([]byte, error) {
	v, err := FromJSON(ctx, validator, raw)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return out, nil
}
