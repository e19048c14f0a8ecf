package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// DetectFormat — формат по расширению; по умолчанию JSON.
func DetectFormat(path string) InputFormat {
	if strings.ToLower(filepath.Ext(path)) == ".jsonl" {
		return FormatJSONL
	}
	return FormatJSON
}

// File — валидирует файл как JSON (одно значение) или JSONL.
func File[V any](ctx context.Context, validator Validator[V], filePath string, format InputFormat, sink Sink) (Result, error) {
	if format == FormatAuto {
		format = DetectFormat(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Reader(ctx, validator, file, format, sink)
}

// Reader — то же для произвольного источника (stdin); FormatAuto трактуется как JSONL.
func Reader[V any](ctx context.Context, validator Validator[V], ir io.Reader, format InputFormat, sink Sink) (Result, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(ir)
		if err != nil {
			return Result{}, fmt.Errorf("read: %w", err)
		}
		canonical, err := Canonical(ctx, validator, raw)
		if err != nil {
			return Result{Invalid: 1, InvalidLines: []int{1}}, err
		}
		if err := sink(ctx, canonical); err != nil {
			return Result{}, fmt.Errorf("sink: %w", err)
		}
		return Result{Valid: 1}, nil

	case FormatJSONL, FormatAuto:
		return JSONLStream(ctx, validator, ir, sink)

	default:
		return Result{}, fmt.Errorf("unsupported format: %s", format)
	}
}
