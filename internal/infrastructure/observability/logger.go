package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger initializes the global zerolog logger
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().
			Str("service", serviceName).
			Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger()
	}
}

// EnableLogExport forwards every global log event to the OpenTelemetry log
// provider. Call it after Setup so the exporting provider is installed.
func EnableLogExport(serviceName string) {
	log.Logger = log.Logger.Hook(NewOTelHook(global.GetLoggerProvider().Logger(serviceName)))
}

// LoggerFromContext returns a logger with trace context
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}

// OTelHook emits zerolog events as OpenTelemetry log records
type OTelHook struct {
	logger otellog.Logger
}

// NewOTelHook creates a hook writing to the given OpenTelemetry logger
func NewOTelHook(logger otellog.Logger) *OTelHook {
	return &OTelHook{logger: logger}
}

// Run implements zerolog.Hook
func (h *OTelHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetBody(otellog.StringValue(msg))
	record.SetSeverity(severity(level))
	record.SetSeverityText(level.String())

	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
}

func severity(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityUndefined
	}
}
