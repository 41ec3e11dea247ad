package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions enables a rotating log file next to stdout output.
type FileOptions struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newSugar(nil)
)

// Init configures the global logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func Init(lvl string) {
	InitWithFile(lvl, nil)
}

// InitWithFile is Init with an optional lumberjack-backed file sink.
func InitWithFile(lvl string, file *FileOptions) {
	SetLevel(lvl)
	s := newSugar(file)
	mu.Lock()
	sugar = s
	mu.Unlock()
}

func newSugar(file *FileOptions) *zap.SugaredLogger {
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}
	if file != nil && file.Filename != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Filename,
			MaxSize:    orDefault(file.MaxSizeMB, 64),
			MaxBackups: orDefault(file.MaxBackups, 7),
			MaxAge:     orDefault(file.MaxAgeDays, 7),
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SetLevel changes the level of the running logger without rebuilding it.
func SetLevel(lvl string) {
	level.SetLevel(parseLevel(lvl))
}

// GetLevel reports the current level as a lower-case string.
func GetLevel() string {
	return level.Level().String()
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Enabled reports whether messages at lvl would be written.
func Enabled(lvl string) bool {
	return level.Enabled(parseLevel(lvl))
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { current().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { current().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	_ = current().Sync()
}
