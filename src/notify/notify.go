// Package notify fans decision events out to log sinks and chat webhooks.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one notable thing that happened during a cycle.
type Event struct {
	Kind    string
	Asset   string
	Level   Level
	Title   string
	Message string
	Fields  map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi delivers to every notifier. Sink failures are logged and do not stop the
// fan-out; the first error is returned.
type Multi struct {
	logger *logrus.Entry
	sinks  []Notifier
}

func NewMulti(logger *logrus.Entry, sinks ...Notifier) *Multi {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Multi{logger: logger.WithField("component", "notify")}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Notify(ctx context.Context, event Event) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, event); err != nil {
			m.logger.WithError(err).WithField("kind", event.Kind).Warn("notification sink failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// LogNotifier writes events to logrus at their level.
type LogNotifier struct {
	logger *logrus.Entry
}

func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, event Event) error {
	fields := logrus.Fields{"kind": event.Kind}
	if event.Asset != "" {
		fields["asset"] = event.Asset
	}
	for k, v := range event.Fields {
		fields[k] = v
	}
	entry := l.logger.WithFields(fields)

	msg := event.Title
	if event.Message != "" {
		msg = event.Title + ": " + event.Message
	}

	switch event.Level {
	case LevelError:
		entry.Error(msg)
	case LevelWarn:
		entry.Warn(msg)
	default:
		entry.Info(msg)
	}
	return nil
}
