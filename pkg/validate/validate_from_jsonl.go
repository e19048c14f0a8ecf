package validate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// maxInvalidLines — сколько номеров невалидных строк запоминаем.
const maxInvalidLines = 20

// Result — статистика валидации.
type Result struct {
	Valid        int
	Invalid      int
	InvalidLines []int // номера первых невалидных строк (с 1)
}

func (r Result) String() string { return fmt.Sprintf("%d valid / %d invalid", r.Valid, r.Invalid) }

// JSONLStream — читает JSONL, валидирует каждую строку, валидные отдаёт в sink.
// Невалидные строки пропускаются и считаются; ошибка sink прерывает чтение.
func JSONLStream[V any](ctx context.Context, validator Validator[V], ir io.Reader, sink Sink) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(ir)
	// запас на большие строки
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		canonical, err := Canonical(ctx, validator, raw)
		if err != nil {
			res.Invalid++
			if len(res.InvalidLines) < maxInvalidLines {
				res.InvalidLines = append(res.InvalidLines, line)
			}
			continue
		}
		if err := sink(ctx, canonical); err != nil {
			return res, fmt.Errorf("sink: %w", err)
		}
		res.Valid++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
