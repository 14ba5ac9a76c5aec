package pushover

import (
	"context"

	"go.uber.org/zap"
)

type correlationIDKey struct{}

// WithCorrelationID tags ctx so every log line the client writes for calls
// made with it carries a correlationId field.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	correlationID, ok := ctx.Value(correlationIDKey{}).(string)
	if !ok || correlationID == "" {
		return "", false
	}
	return correlationID, true
}

func requestLogger(logger *zap.Logger, ctx context.Context, entryPoint string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := []zap.Field{zap.String("entryPoint", entryPoint)}
	if correlationID, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, zap.String("correlationId", correlationID))
	}
	return logger.With(fields...)
}
