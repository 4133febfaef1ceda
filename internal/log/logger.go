package log

import (
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger tags every entry with a category such as "Context:CSS" or
// "Static:NavigateTo", plus the time elapsed since the previous call. A nil
// *Logger discards everything.
type Logger struct {
	log            logrus.FieldLogger
	level          func() logrus.Level
	mu             sync.Mutex
	lastLogCall    time.Time
	categoryFilter *regexp.Regexp
}

// NewNullLogger returns a logger whose lines are discarded.
func NewNullLogger() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return New(l, nil)
}

// New wraps logger. When categoryFilter is set, only categories matching it
// are logged.
func New(logger *logrus.Logger, categoryFilter *regexp.Regexp) *Logger {
	return &Logger{
		log:            logger,
		level:          logger.GetLevel,
		categoryFilter: categoryFilter,
	}
}

// WithField returns a logger that adds key=value to every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		log:            l.log.WithField(key, value),
		level:          l.level,
		categoryFilter: l.categoryFilter,
	}
}

// Tracef logs at trace level.
func (l *Logger) Tracef(category string, msg string, args ...interface{}) {
	l.Logf(logrus.TraceLevel, category, msg, args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.DebugLevel, category, msg, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(category string, msg string, args ...interface{}) {
	l.Logf(logrus.InfoLevel, category, msg, args...)
}

// Warnf logs at warning level.
func (l *Logger) Warnf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.WarnLevel, category, msg, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.ErrorLevel, category, msg, args...)
}

// Logf logs msg under category at level.
func (l *Logger) Logf(level logrus.Level, category string, msg string, args ...interface{}) {
	if l == nil || l.log == nil {
		return
	}
	if l.level() < level {
		return
	}
	if l.categoryFilter != nil && !l.categoryFilter.MatchString(category) {
		return
	}

	l.mu.Lock()
	now := time.Now()
	var elapsed time.Duration
	if !l.lastLogCall.IsZero() {
		elapsed = now.Sub(l.lastLogCall)
	}
	l.lastLogCall = now
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"category": category,
		"elapsed":  fmt.Sprintf("%d ms", elapsed.Milliseconds()),
	}).Logf(level, msg, args...)
}
