package command

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pagescope/pagescope/internal/config"
	"github.com/pagescope/pagescope/internal/console"
)

// logConfig holds resolved logging configuration for commands that run a
// console or evaluator.
type logConfig struct {
	level      slog.Level
	logFile    io.WriteCloser // nil if no file logging
	bufferSize int
}

// resolveLogConfig resolves logging configuration with flag values taking
// precedence over config values, which take precedence over schema defaults.
// The caller must Close() the returned logConfig.logFile when non-nil.
func resolveLogConfig(flagPath, flagLevel string, flagBufferSize int, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	var lc logConfig

	resolveStr := func(key string) string {
		if cfg == nil {
			return ""
		}
		return schema.Resolve(cfg, key)
	}
	resolveInt := func(key string, fallback int) int {
		if cfg == nil {
			return fallback
		}
		return cfg.GetIntDefault(key, fallback)
	}

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = resolveStr("log.level")
	}
	switch strings.ToLower(levelStr) {
	case "debug":
		lc.level = slog.LevelDebug
	case "info":
		lc.level = slog.LevelInfo
	case "warn", "":
		lc.level = slog.LevelWarn
	case "error":
		lc.level = slog.LevelError
	default:
		return lc, fmt.Errorf("invalid log level: %s", levelStr)
	}

	lc.bufferSize = flagBufferSize
	if lc.bufferSize <= 0 {
		lc.bufferSize = resolveInt("log.buffer-size", 1000)
		if lc.bufferSize <= 0 {
			lc.bufferSize = 1000
		}
	}

	logPath := flagPath
	if logPath == "" {
		logPath = resolveStr("log.file")
	}

	if logPath != "" {
		maxSizeMB := resolveInt("log.max-size-mb", 10)
		if maxSizeMB <= 0 {
			maxSizeMB = 10
		}
		// Zero maxFiles is valid (no backups, just truncate on rotate).
		maxFiles := resolveInt("log.max-files", 5)
		if maxFiles < 0 {
			maxFiles = 5
		}

		w, err := console.NewRotatingFileWriter(logPath, maxSizeMB, maxFiles)
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		lc.logFile = w
	}

	return lc, nil
}

// newRecorder builds the in-memory log recorder for a resolved logConfig.
func (lc logConfig) newRecorder() *console.Recorder {
	var file io.Writer
	if lc.logFile != nil {
		file = lc.logFile
	}
	return console.NewRecorder(lc.level, lc.bufferSize, file)
}

// close releases the log file when one was opened.
func (lc logConfig) close() {
	if lc.logFile != nil {
		_ = lc.logFile.Close()
	}
}
