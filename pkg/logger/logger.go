package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"

	"tgrelay/pkg/config"
)

const (
	envFormat    = "RELAY_LOG_FORMAT"
	envLevel     = "RELAY_LOG_LEVEL"
	envAddSource = "RELAY_LOG_ADD_SOURCE"

	defaultFormat = "text"
	defaultLevel  = "info"
)

// New returns a slog logger writing to stderr in the configured format.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	formatter, err := parseFormat(override(cfg.Format, envFormat))
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(override(cfg.Level, envLevel))
	if err != nil {
		return nil, err
	}

	addSource := cfg.AddSource
	if value := strings.TrimSpace(os.Getenv(envAddSource)); value != "" {
		addSource = parseBool(value)
	}

	handler := charmLog.NewWithOptions(writer, charmLog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		ReportCaller:    addSource,
		Formatter:       formatter,
	})

	return slog.New(handler), nil
}

// override prefers a non-empty environment value over the configured one.
func override(configured string, key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return configured
}

func parseFormat(input string) (charmLog.Formatter, error) {
	format := strings.ToLower(strings.TrimSpace(input))
	if format == "" {
		format = defaultFormat
	}

	switch format {
	case "text":
		return charmLog.TextFormatter, nil
	case "json":
		return charmLog.JSONFormatter, nil
	case "logfmt":
		return charmLog.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unsupported log format %q", format)
	}
}

func parseLevel(input string) (charmLog.Level, error) {
	levelText := strings.ToLower(strings.TrimSpace(input))
	if levelText == "" {
		levelText = defaultLevel
	}

	switch levelText {
	case "debug":
		return charmLog.DebugLevel, nil
	case "info":
		return charmLog.InfoLevel, nil
	case "warn", "warning":
		return charmLog.WarnLevel, nil
	case "error":
		return charmLog.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", levelText)
	}
}

func parseBool(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
