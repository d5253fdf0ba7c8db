package logger

import (
	"context"
	"log/slog"

	"github.com/hatlonely/dbstruct/ref"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// NewDiscard 返回丢弃所有输出的日志器
func NewDiscard() Logger {
	return &SLog{Logger: slog.New(slog.DiscardHandler)}
}

// NewSLog 直接包装一个 slog.Logger
func NewSLog(l *slog.Logger) *SLog {
	return &SLog{Logger: l}
}

const Namespace = "github.com/hatlonely/dbstruct/log/logger"

func init() {
	ref.MustRegister(Namespace, "SLog", NewSLogWithOptions)
}
