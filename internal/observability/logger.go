package observability

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns the JSON logger used by both binaries. Output goes to
// stderr so the CLI keeps stdout for command results. A non-empty component
// is attached to every entry.
func NewLogger(level string, component string) (*zap.Logger, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "" {
		name = "info"
	}
	atomicLevel, err := zap.ParseAtomicLevel(name)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoding := zap.NewProductionEncoderConfig()
	encoding.TimeKey = "timestamp"
	encoding.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:             atomicLevel,
		Encoding:          "json",
		EncoderConfig:     encoding,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	if component = strings.TrimSpace(component); component != "" {
		cfg.InitialFields = map[string]any{"component": component}
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// NewCorrelationID returns a fresh id for tagging one CLI invocation.
func NewCorrelationID() string {
	return uuid.NewString()
}
