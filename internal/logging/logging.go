// Package logging configures the pipeline's structured logger: a
// console handler plus an optional file handler, mirroring the
// original's setup_logger (which wired a StreamHandler and an optional
// RotatingFileHandler onto the root logger).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures Setup. The zero value logs to stdout at Info
// level with no file output.
type Options struct {
	Level      *logrus.Level
	Console    bool
	ConsoleFmt logrus.Formatter
	FilePath   string
}

// Setup configures and returns a *logrus.Logger per opts. Console
// defaults to true when neither Console nor FilePath is set, so a
// zero-value Options always produces a usable logger.
func Setup(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(defaultedLevel(opts.Level))
	logger.SetOutput(io.Discard)
	logger.SetFormatter(defaultedFormatter(opts.ConsoleFmt))

	var writers []io.Writer
	if opts.Console || opts.FilePath == "" {
		writers = append(writers, os.Stdout)
	}
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}

	if len(writers) == 1 {
		logger.SetOutput(writers[0])
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger, nil
}

func defaultedLevel(l *logrus.Level) logrus.Level {
	if l == nil {
		return logrus.InfoLevel
	}
	return *l
}

func defaultedFormatter(f logrus.Formatter) logrus.Formatter {
	if f != nil {
		return f
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}
