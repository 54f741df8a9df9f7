package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger from LOG_LEVEL, LOG_FORMAT and
// LOG_FILE. When LOG_FILE is set, output goes to both stderr and the file. The
// returned closer releases the file.
func SetupLogger() (io.Closer, error) {
	return Setup(logger.StandardLogger(), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("LOG_FILE"))
}

func Setup(l *logger.Logger, levelStr, format, file string) (io.Closer, error) {
	level, err := logger.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = logger.DebugLevel // safe fallback
	}
	l.SetLevel(level)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logger.JSONFormatter{})
	} else {
		l.SetFormatter(&logger.TextFormatter{
			FullTimestamp: true,
		})
	}

	if file == "" {
		l.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", file, err)
	}
	l.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
