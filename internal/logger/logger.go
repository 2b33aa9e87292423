package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cdacos/sql-info-streamer/internal/config"
)

// Setup installs the default slog logger. Console logs always go to
// stderr: stdout carries the event stream and must stay machine-parseable.
func Setup(cfg config.LoggerConfigs) error {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(cfg.ConsoleLevel),
		}),
	}

	if cfg.FileOutput != "" {
		logFile, err := os.OpenFile(cfg.FileOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}

		handlers = append(handlers, slog.NewTextHandler(logFile, &slog.HandlerOptions{
			Level:     parseLevel(cfg.FileLevel),
			AddSource: true,
		}))
	}

	slog.SetDefault(slog.New(NewMultiHandler(handlers...)))

	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
