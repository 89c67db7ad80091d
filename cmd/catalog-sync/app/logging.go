package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opendata-sync/catalog-sync/internal/config"
)

// debugLevel enables logr V(1) to V(4) and slog debug records, which zapr maps to zap level -4
const debugLevel = zapcore.Level(-4)

// getLogLevel reads CATALOG_SYNC_LOG_LEVEL. verbose lowers the default to debug.
func getLogLevel(verbose bool) zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	switch strings.ToLower(v.GetString("LOG_LEVEL")) {
	case "debug":
		return debugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "info":
		return zapcore.InfoLevel
	}
	if verbose {
		return debugLevel
	}
	return zapcore.InfoLevel
}

// traceHandler wraps an slog.Handler to inject the trace_id and span_id of the
// current span into every record
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// setupLogging builds the zap backend, exposes it as a logr.Logger for the sync code and
// installs it behind the default slog logger. Output goes to stderr so that stdout stays
// clean for commands printing data.
func setupLogging(verbose bool) (logr.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(getLogLevel(verbose))
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.Sampling = nil

	zl, err := zapCfg.Build()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to build logger, using no-op", "error", err)
		zl = zap.NewNop()
	}

	logger := zapr.NewLogger(zl)
	slog.SetDefault(slog.New(&traceHandler{Handler: logr.ToSlogHandler(logger)}))

	return logger, func() { _ = zl.Sync() }
}
