package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"lexvault/internal/config"
)

const logLevelEnvKey = "LEXVAULT_LOG_LEVEL"

type levelSource string

const (
	levelFromFlag    levelSource = "flag"
	levelFromEnv     levelSource = "env"
	levelFromConfig  levelSource = "config"
	levelFromDefault levelSource = "default"
)

// configureLoggerForCLI installs the default slog logger. The level comes
// from --log-level, then LEXVAULT_LOG_LEVEL, then log_level. A bad flag is an
// error; a bad env or config value falls back to the default with a warning.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	rawLevel, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(rawLevel)
	if err == nil {
		slog.SetDefault(newLogger(os.Stderr, level))
		return "", nil
	}

	switch source {
	case levelFromFlag:
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case levelFromEnv:
		slog.SetDefault(newLogger(os.Stderr, defaultLevel()))
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
	case levelFromConfig:
		slog.SetDefault(newLogger(os.Stderr, defaultLevel()))
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel), nil
	default:
		slog.SetDefault(newLogger(os.Stderr, defaultLevel()))
		return "", nil
	}
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	if strings.TrimSpace(flagLevel) != "" {
		return flagLevel, levelFromFlag
	}
	if strings.TrimSpace(envLevel) != "" {
		return envLevel, levelFromEnv
	}
	if strings.TrimSpace(configLevel) != "" {
		return configLevel, levelFromConfig
	}
	return "", levelFromDefault
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = config.DefaultLogLevel
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return defaultLevel(), fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func defaultLevel() slog.Level {
	level, _ := parseLogLevel(config.DefaultLogLevel)
	return level
}

// newLogger writes text records to w. Timestamps are dropped when w is an
// interactive terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
