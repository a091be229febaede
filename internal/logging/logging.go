// Package logging configures the rotating file logger used by the
// operator CLI. The server itself logs through cartridge's slog setup;
// the CLI keeps its own file trail so operator actions survive restarts.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"navlens/internal/config"
)

// NewCLILogger returns a logrus logger writing to stdout and a rotating
// file named after the tool under the configured logs directory. When the
// directory cannot be created the logger falls back to stdout only.
func NewCLILogger(cfg *config.Config, name string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(string(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if err := os.MkdirAll(cfg.LogsDirectory, 0o755); err != nil {
		log.SetOutput(os.Stdout)
		return log
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, name+".log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	return log
}
