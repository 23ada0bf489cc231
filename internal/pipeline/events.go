package pipeline

import (
	"log"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the upper-case level label used in log lines.
func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "DEBUG"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSuccess:
		return "OK"
	default:
		return "INFO"
	}
}

// ProgressEvent is one observation emitted while processing archives.
// Archive is the archive's base filename, empty for run-level events.
type ProgressEvent struct {
	Level   ProgressLevel
	Archive string
	Message string
}

// Observer receives progress events.
type Observer interface {
	Observe(ProgressEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ProgressEvent)

// Observe calls f(event).
func (f ObserverFunc) Observe(event ProgressEvent) {
	f(event)
}

// LogObserver writes events to logger. Verbose events are dropped unless
// verbose is set.
func LogObserver(logger *log.Logger, verbose bool) Observer {
	if logger == nil {
		logger = log.Default()
	}
	return ObserverFunc(func(event ProgressEvent) {
		if event.Level == LevelVerbose && !verbose {
			return
		}
		if event.Archive != "" {
			logger.Printf("[%s] %s: %s", event.Level, event.Archive, event.Message)
			return
		}
		logger.Printf("[%s] %s", event.Level, event.Message)
	})
}

type discardObserver struct{}

func (discardObserver) Observe(ProgressEvent) {}
