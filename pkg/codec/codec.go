// Пакет codec — преобразование значения записи в байты и обратно.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Decoder[G any] interface {
	Decode(data []byte) (G, error)
}

type Encoder[T any] interface {
	Encode(v T) ([]byte, error)
}

// DecoderFunc — адаптер функции к Decoder.
type DecoderFunc[G any] func(data []byte) (G, error)

func (f DecoderFunc[G]) Decode(data []byte) (G, error) { return f(data) }

// EncoderFunc — адаптер функции к Encoder.
type EncoderFunc[T any] func(v T) ([]byte, error)

func (f EncoderFunc[T]) Encode(v T) ([]byte, error) { return f(v) }

// Bytes — значение как есть.
type Bytes struct{}

func (Bytes) Decode(data []byte) ([]byte, error) { return data, nil }
func (Bytes) Encode(v []byte) ([]byte, error)    { return v, nil }

// JSON — кодек encoding/json для произвольного типа.
type JSON[V any] struct {
	// DisallowUnknownFields — строгий разбор входящих сообщений.
	DisallowUnknownFields bool
}

func (j JSON[V]) Decode(data []byte) (V, error) {
	var v V
	if len(data) == 0 {
		return v, fmt.Errorf("json decode: empty payload")
	}
	if !j.DisallowUnknownFields {
		if err := json.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("json decode: %w", err)
		}
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("json decode: %w", err)
	}
	return v, nil
}

func (JSON[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return b, nil
}
