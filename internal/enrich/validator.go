package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEvent — базовая (sentinel) ошибка валидации.
var ErrInvalidEvent = errors.New("event validation failed")

// maxClockSkew — насколько occurred_at может опережать часы процессора.
const maxClockSkew = 5 * time.Minute

// Validator проверяет поля события. Возвращает ErrInvalidEvent (с обёрнутой причиной).
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator { return &Validator{now: time.Now} }

func (v *Validator) Validate(_ context.Context, ev *Event) error {
	if ev == nil {
		return fmt.Errorf("%w: событие не может быть nil", ErrInvalidEvent)
	}
	if strings.TrimSpace(ev.ID) == "" {
		return fmt.Errorf("%w: id обязателен", ErrInvalidEvent)
	}
	if err := validateType(ev.Type); err != nil {
		return err
	}
	if ev.OccurredAt.IsZero() || ev.OccurredAt.Before(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		return fmt.Errorf("%w: occurred_at некорректен", ErrInvalidEvent)
	}
	if ev.OccurredAt.After(v.now().Add(maxClockSkew)) {
		return fmt.Errorf("%w: occurred_at в будущем", ErrInvalidEvent)
	}
	if len(ev.Payload) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(ev.Payload, &obj); err != nil {
			return fmt.Errorf("%w: payload должен быть JSON-объектом", ErrInvalidEvent)
		}
	}
	return nil
}

// validateType — непустые сегменты [a-z0-9_] через точку.
func validateType(t string) error {
	if t == "" {
		return fmt.Errorf("%w: type обязателен", ErrInvalidEvent)
	}
	for _, seg := range strings.Split(t, ".") {
		if seg == "" {
			return fmt.Errorf("%w: type %q содержит пустой сегмент", ErrInvalidEvent, t)
		}
		for _, r := range seg {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
				return fmt.Errorf("%w: type %q содержит недопустимый символ %q", ErrInvalidEvent, t, r)
			}
		}
	}
	return nil
}
