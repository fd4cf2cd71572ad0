package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
)

// Logger wraps zap.SugaredLogger to provide application-specific logging
type Logger struct {
	*zap.SugaredLogger
}

// New creates a logger from the logger section of the configuration.
// Format "json" selects zap's production encoder; anything else is the
// human-readable development console.
func New(cfg config.LoggerConfig) (*Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	out := []string{"stdout"}
	switch {
	case cfg.Output == "file" && cfg.Filename != "":
		out = []string{cfg.Filename}
	case cfg.Output == "stderr":
		out = []string{"stderr"}
	}
	zapConfig.OutputPaths = out
	if cfg.Output == "file" && cfg.Filename != "" {
		zapConfig.ErrorOutputPaths = out
	} else {
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	zapLogger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used by tests and by
// the terminal UI, which owns the screen.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithFields adds structured fields to the logger
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

// WithComponent tags every entry with the subsystem that wrote it.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// HTTPRequest describes one served request.
type HTTPRequest struct {
	Method    string
	URI       string
	Status    int
	Latency   time.Duration
	RemoteIP  string
	UserAgent string
	RequestID string
	Err       error
}

// LogHTTPRequest records a served request, at error level when it failed.
func (l *Logger) LogHTTPRequest(r HTTPRequest) {
	fields := []interface{}{
		"method", r.Method,
		"uri", r.URI,
		"status", r.Status,
		"latency_ms", float64(r.Latency.Microseconds()) / 1000,
		"remote_ip", r.RemoteIP,
		"user_agent", r.UserAgent,
		"request_id", r.RequestID,
	}
	if r.Err != nil {
		l.Errorw("HTTP request failed", append(fields, "error", r.Err.Error())...)
		return
	}
	l.Infow("HTTP request", fields...)
}

// LogUserAction records a board mutation or profile change.
func (l *Logger) LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := []interface{}{"user_id", userID, "action", action}
	for k, v := range metadata {
		fields = append(fields, k, v)
	}
	l.Infow("User action", fields...)
}

// LogSecurityEvent records failed sign-ins, rejected tokens and access to
// rows owned by another user.
func (l *Logger) LogSecurityEvent(event, userID, ip string, details map[string]interface{}) {
	fields := []interface{}{"security_event", event, "user_id", userID, "ip", ip}
	for k, v := range details {
		fields = append(fields, k, v)
	}
	l.Warnw("Security event", fields...)
}
