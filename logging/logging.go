// Package logging builds the process-wide diagnostics logger: a console core
// at the configured level and a file core that only receives error records.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultErrorFile is where error records are mirrored when Config.ErrorFile is empty.
const DefaultErrorFile = "errors.log"

// Config holds logger configuration
type Config struct {
	Level     string    // console threshold, default info
	Format    string    // "console" or "json"
	ErrorFile string    // error-level mirror; "-" disables it
	Console   io.Writer // defaults to os.Stderr
}

// Logger wraps the zap logger with the resources it owns.
type Logger struct {
	*zap.Logger
	errFile *os.File
}

// New builds the logger. The caller must Close it to flush and release the error file.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var consoleEncoder zapcore.Encoder
	if cfg.Format == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level),
	}

	l := &Logger{}
	path := cfg.ErrorFile
	if path == "" {
		path = DefaultErrorFile
	}
	if path != "-" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open error log %s: %w", path, err)
		}
		l.errFile = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(f),
			zapcore.ErrorLevel,
		))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}

// Close flushes buffered entries and closes the error file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync() // stderr sync fails on some platforms
	if l.errFile != nil {
		return l.errFile.Close()
	}
	return nil
}
