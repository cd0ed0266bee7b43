package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"roadlens/internal/config"
	"roadlens/internal/models"
)

const logLevelEnvKey = "ROADLENS_LOG_LEVEL"

// levelSource names where a log level came from, in the words a user would
// look for when fixing it.
type levelSource string

const (
	levelFromFlag    levelSource = "--log-level"
	levelFromEnv     levelSource = logLevelEnvKey
	levelFromConfig  levelSource = "log_level"
	levelFromDefault levelSource = "default"
)

// chooseLogLevel applies flag, then environment, then config file.
func chooseLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	for _, c := range []struct {
		raw    string
		source levelSource
	}{
		{flagLevel, levelFromFlag},
		{envLevel, levelFromEnv},
		{configLevel, levelFromConfig},
	} {
		if strings.TrimSpace(c.raw) != "" {
			return c.raw, c.source
		}
	}
	return "", levelFromDefault
}

// configureLoggerForCLI installs the default logger on stderr. A bad flag
// fails the command; a bad env or config value only produces a warning and
// falls back to info.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	raw, source := chooseLogLevel(flagLevel, os.Getenv(logLevelEnvKey), configLevel)

	var warning string
	level, err := parseLogLevel(raw)
	if err != nil {
		if source == levelFromFlag {
			return "", fmt.Errorf("invalid --log-level %q", raw)
		}
		level = slog.LevelInfo
		warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", source, raw, config.DefaultLogLevel)
	}
	slog.SetDefault(newLogger(os.Stderr, level))
	return warning, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// serverLogger tags every server line with the deployment facts needed to
// read an upload failure: which provider and database, and the photo cap.
func serverLogger(base *slog.Logger, cfg *config.Config) *slog.Logger {
	return base.With(
		"component", "server",
		"provider", cfg.Provider.Kind,
		"db_driver", cfg.DB.Driver,
		"max_photos", models.MaxPhotosPerReport,
	)
}
