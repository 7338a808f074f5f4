package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RequestLogger emits the per-request and per-collection access logs,
// correlated with the active trace when tracing is enabled. It wraps the
// process root logger rather than building its own zap core; pkg/logger
// stays the single construction path.
type RequestLogger struct {
	base *zap.Logger
}

func NewRequestLogger(base *zap.Logger) *RequestLogger {
	return &RequestLogger{base: base.Named("access")}
}

// withTrace attaches trace/span ids from the OpenTelemetry span context
// carried in ctx, when there is one.
func (l *RequestLogger) withTrace(ctx context.Context) *zap.Logger {
	logger := l.base
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With(zap.String("trace_id", traceID))
	}
	if spanID := SpanIDFromContext(ctx); spanID != "" {
		logger = logger.With(zap.String("span_id", spanID))
	}
	return logger
}

// HTTP logs one completed API request, leveled by response class.
func (l *RequestLogger) HTTP(ctx context.Context, method, path, userAgent, clientIP string, statusCode int, duration time.Duration, size int64) {
	logger := l.withTrace(ctx)

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.String("user_agent", userAgent),
		zap.String("client_ip", clientIP),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
		zap.Int64("response_size", size),
	}

	switch {
	case statusCode >= 500:
		logger.Error("request completed", fields...)
	case statusCode >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

// Collection logs one finished feed-collection cycle.
func (l *RequestLogger) Collection(ctx context.Context, feedName string, duration time.Duration, itemsIngested int, err error) {
	logger := l.withTrace(ctx).With(
		zap.String("feed", feedName),
		zap.Duration("duration", duration),
		zap.Int("items_ingested", itemsIngested),
	)

	if err != nil {
		logger.Error("feed collection failed", zap.Error(err))
		return
	}
	logger.Info("feed collection completed")
}
