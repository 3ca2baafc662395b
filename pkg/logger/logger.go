package logger

import (
	"context"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey string

const contextKey loggerKey = "logger"

var defaultLogger = zap.NewNop().Sugar()

// Builds the application logger with the given level ("debug", "info",
// "warn", "error", "fatal") and installs it as the package default.
func Run(level string) *zap.SugaredLogger {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		log.Printf("logger: unknown level %q, falling back to info", level)
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	zapLogger, err := cfg.Build()
	if err != nil {
		log.Fatalln("logger: can't build zap logger:", err)
	}

	defaultLogger = zapLogger.Sugar()
	return defaultLogger
}

func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// Returns the request-scoped logger if one was attached to the context,
// the package default otherwise.
func Log(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(contextKey).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return defaultLogger
}
