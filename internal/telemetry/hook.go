// Package telemetry ships error-level log entries to Sentry.
package telemetry

import (
	"sync/atomic" // Closed flag
	"time"        // Flush timeout

	"github.com/getsentry/sentry-go" // Sentry client
	"github.com/sirupsen/logrus"     // Logging library
)

// Hook is a logrus hook that reports entries to Sentry.
// The Sentry transport buffers events and sends them in the background.
type Hook struct {
	hub    *sentry.Hub // Isolated hub, not the global one
	closed atomic.Bool // Set by Close; later entries are ignored
}

// NewHook builds a Sentry client for dsn; environment tags every event
func NewHook(dsn, environment string) (*Hook, error) {
	// Create a dedicated client so tests and the server do not share global state
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err // Invalid DSN
	}
	return &Hook{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Levels implements logrus.Hook
func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

// Fire implements logrus.Hook
func (h *Hook) Fire(entry *logrus.Entry) error {
	// Handlers may still log after shutdown started
	if h.closed.Load() {
		return nil
	}
	h.hub.CaptureEvent(newEvent(entry))
	return nil
}

// newEvent maps a logrus entry to a Sentry event
func newEvent(entry *logrus.Entry) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentryLevel(entry.Level) // Map severity
	event.Message = entry.Message          // Log message
	event.Timestamp = entry.Time           // Keep the original time
	event.Logger = "logrus"
	// Copy structured fields into extras
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error() // Errors do not serialize on their own
		}
		event.Extra[k] = v
	}
	return event
}

func sentryLevel(l logrus.Level) sentry.Level {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	case logrus.WarnLevel:
		return sentry.LevelWarning
	case logrus.ErrorLevel:
		return sentry.LevelError
	}
	return sentry.LevelInfo
}

// Close stops accepting entries and waits up to timeout for buffered events to be sent
func (h *Hook) Close(timeout time.Duration) bool {
	h.closed.Store(true)
	return h.hub.Flush(timeout)
}
