package logger

import (
	"io"
	"log/slog"
	"os"

	"hexmap-server/internal/shared/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

func Init() {
	if config.GlobalConfig == nil {
		panic("config must be initialized before logger")
	}

	logConfig := config.GlobalConfig.Logging
	slog.SetDefault(slog.New(newHandler(logConfig)))

	logger := slog.With("component", "logger")
	logger.Debug("Logger initialized",
		"level", logConfig.Level,
		"json_format", logConfig.JSONFormat,
		"file", logConfig.File,
		"environment", config.GlobalConfig.Server.Environment,
	)
}

func newHandler(logConfig config.LoggingConfig) slog.Handler {
	var out io.Writer = os.Stdout
	if logConfig.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSizeMB,
			MaxBackups: logConfig.MaxBackups,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(logConfig.Level),
	}

	if logConfig.JSONFormat {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
