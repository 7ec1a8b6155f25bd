package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger writes one JSON line per action, tagged with the owning service.
type Logger struct {
	zl zerolog.Logger
}

var (
	mu   sync.RWMutex
	base = newBase(os.Stdout)
)

func newBase(w io.Writer) zerolog.Logger {
	zerolog.TimestampFieldName = "timestamp"
	return zerolog.New(w).With().Timestamp().Str("hostname", hostname()).Logger()
}

// Setup configures the process-wide output. Loggers created afterwards use it.
func Setup(level string, pretty bool) {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	base = newBase(w).Level(lvl)
	mu.Unlock()
}

func New(service string) *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &Logger{zl: base.With().Str("service", service).Logger()}
}

// NewWithWriter is used by tests that inspect log output.
func NewWithWriter(service string, w io.Writer) *Logger {
	return &Logger{zl: newBase(w).Level(zerolog.DebugLevel).With().Str("service", service).Logger()}
}

func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// With returns a child logger that always carries key=value.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.zl.Debug().Str("action", action).Fields(fields).Msg(action)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.zl.Info().Str("action", action).Fields(fields).Msg(action)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.zl.Warn().Str("action", action).Fields(fields).Msg(action)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.zl.Error().Str("action", action).Err(err).Fields(fields).Msg(action)
}

func hostname() string { h, _ := os.Hostname(); return h }
