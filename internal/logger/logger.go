package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tomoyayamashita/safe-apt/internal/pkgkey"
	"github.com/tomoyayamashita/safe-apt/internal/policy"
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

// Level represents log level
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel converts a configured level name into a Level.
// Unknown names fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "critical", "fatal":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger provides JSON Lines logging
type Logger struct {
	z *zap.Logger
}

// NewLogger creates a new Logger writing one JSON object per line to writer
func NewLogger(writer io.Writer, level Level) *Logger {
	if writer == nil {
		writer = os.Stdout
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(writer),
		level.zapLevel(),
	)

	return &Logger{z: zap.New(core)}
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// DecisionLog is the payload of a package_decision event
type DecisionLog struct {
	RunID       string  `json:"run_id"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Version     string  `json:"version,omitempty"`
	Arch        string  `json:"arch,omitempty"`
	Decision    string  `json:"decision"`
	Reason      string  `json:"reason"`
	Status      string  `json:"status,omitempty"`
	ScanDate    string  `json:"scan_date,omitempty"`
	ScanFile    string  `json:"scan_file,omitempty"`
	CVECount    int     `json:"cve_count"`
	CVSSMax     float64 `json:"cvss_max"`
	ScannerType string  `json:"scanner_type,omitempty"`
}

// LogDecision logs the outcome for a single requested package key.
// rec may be nil when no scan was found.
func (l *Logger) LogDecision(runID string, id pkgkey.Identity, result policy.Result, rec *scan.Record) {
	entry := DecisionLog{
		RunID:    runID,
		Key:      id.Key,
		Name:     id.Name,
		Version:  id.Version,
		Arch:     id.Arch,
		Decision: string(result.Decision),
		Reason:   result.Reason,
	}
	if rec != nil {
		entry.Status = rec.StatusText()
		entry.ScanDate = rec.ScanDate
		entry.ScanFile = rec.File
		entry.CVECount = rec.CVECount
		entry.CVSSMax = rec.CVSSMax
		entry.ScannerType = rec.ScannerType
	}

	l.z.Debug("package decision",
		zap.String("event", "package_decision"),
		zap.Any("data", entry),
	)
}

// Log logs a generic event
func (l *Logger) Log(level Level, event, message string, data map[string]interface{}) {
	fields := []zap.Field{zap.String("event", event)}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}

	if ce := l.z.Check(level.zapLevel(), message); ce != nil {
		ce.Write(fields...)
	}
}

// Debug logs a debug event
func (l *Logger) Debug(event, message string, data map[string]interface{}) {
	l.Log(LevelDebug, event, message, data)
}

// Info logs an info event
func (l *Logger) Info(event, message string, data map[string]interface{}) {
	l.Log(LevelInfo, event, message, data)
}

// Warn logs a warning event
func (l *Logger) Warn(event, message string, data map[string]interface{}) {
	l.Log(LevelWarn, event, message, data)
}

// Error logs an error event
func (l *Logger) Error(event, message string, data map[string]interface{}) {
	l.Log(LevelError, event, message, data)
}
