package ports

import "context"

// Logger — минимальный контракт логгера для внешних слоёв.
type Logger interface {
	Debugf(ctx context.Context, format string, args ...any) // Debugf — подробности по отдельным записям.
	Infof(ctx context.Context, format string, args ...any)  // Infof — информационные сообщения.
	Warnf(ctx context.Context, format string, args ...any)  // Warnf — предупреждения.
	Errorf(ctx context.Context, format string, args ...any) // Errorf — ошибки.
}

// NopLogger — логгер, который ничего не пишет.
type NopLogger struct{}

func (NopLogger) Debugf(context.Context, string, ...any) {}
func (NopLogger) Infof(context.Context, string, ...any)  {}
func (NopLogger) Warnf(context.Context, string, ...any)  {}
func (NopLogger) Errorf(context.Context, string, ...any) {}
