package logger

import (
	"context"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

type logrusLogger struct {
	logger *logrus.Logger
}

// getCallerFunctionName 获取调用者的函数名（跳过日志包自身的帧）
func getCallerFunctionName() string {
	pc := make([]uintptr, 10)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !isLoggerFrame(frame.Function) {
			parts := strings.Split(frame.Function, ".")
			return parts[len(parts)-1]
		}
		if !more {
			return "unknown"
		}
	}
}

func isLoggerFrame(function string) bool {
	const pkg = "/pkg/logger."
	i := strings.LastIndex(function, pkg)
	if i < 0 {
		return false
	}
	return !strings.HasPrefix(function[i+len(pkg):], "Test")
}

func (l *logrusLogger) entry(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := l.logger.WithContext(ctx)
	if traceID := getTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

func (l *logrusLogger) log(ctx context.Context, level logrus.Level, msg string, args []any) {
	if !l.logger.IsLevelEnabled(level) {
		return
	}
	args = append([]any{getCallerFunctionName()}, args...)
	l.entry(ctx).Logf(level, "[%s] "+msg, args...)
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, logrus.WarnLevel, msg, args)
}

func (l *logrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, logrus.ErrorLevel, msg, args)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, logrus.InfoLevel, msg, args)
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, logrus.DebugLevel, msg, args)
}

var (
	mu            sync.RWMutex
	defaultLogger Logger = newLogrusLogger(logrus.InfoLevel, os.Stderr)
)

type LoggerConfig struct {
	Level      string `json:"level,omitempty" toml:"level,omitempty"`
	File       string `json:"file,omitempty" toml:"file,omitempty"`
	MaxSize    int    `json:"max_size,omitempty" toml:"max_size,omitempty"`       // 单个日志文件最大大小(MB),默认100MB
	MaxBackups int    `json:"max_backups,omitempty" toml:"max_backups,omitempty"` // 保留的旧日志文件数量,默认3个
	MaxAge     int    `json:"max_age,omitempty" toml:"max_age,omitempty"`         // 保留旧日志文件的天数,默认7天
	Compress   bool   `json:"compress,omitempty" toml:"compress,omitempty"`
}

func newLogrusLogger(level logrus.Level, out io.Writer) *logrusLogger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(out)
	// JSON 格式，方便按 trace_id 检索
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &logrusLogger{logger: log}
}

// NewLogger 按配置创建日志实例，File 为空时输出到 stderr
func NewLogger(cfg *LoggerConfig) Logger {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   cfg.Compress,
		}
	}

	return newLogrusLogger(level, out)
}

// InitLogger 替换全局日志实例
func InitLogger(cfg *LoggerConfig) {
	SetDefaultLogger(NewLogger(cfg))
}

func SetDefaultLogger(l Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Warn(ctx context.Context, msg string, args ...any) {
	GetDefaultLogger().Warn(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	GetDefaultLogger().Error(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	GetDefaultLogger().Info(ctx, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	GetDefaultLogger().Debug(ctx, msg, args...)
}

type contextKey string

const traceIDKey contextKey = "trace_id"

// WithTraceID 将 trace_id 添加到 context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func getTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetTraceID 从 context 中获取 trace_id
func GetTraceID(ctx context.Context) string {
	return getTraceID(ctx)
}
