package log

import (
	"io"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/lib/testutils"
)

func newTestLogger(level logrus.Level, filter *regexp.Regexp) (*Logger, *testutils.SimpleLogrusHook) {
	hook := testutils.NewLogHook()
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(level)
	l.AddHook(hook)
	return New(l, filter), hook
}

func TestLoggerCategory(t *testing.T) {
	t.Parallel()

	l, hook := newTestLogger(logrus.DebugLevel, nil)
	l.Debugf("Context:CSS", "sel:%q", "ul li")

	entries := hook.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, `sel:"ul li"`, entries[0].Message)
	assert.Equal(t, "Context:CSS", entries[0].Data["category"])
	assert.Contains(t, entries[0].Data, "elapsed")
}

func TestLoggerLevelAndFilter(t *testing.T) {
	t.Parallel()

	l, hook := newTestLogger(logrus.InfoLevel, regexp.MustCompile("^Static:"))
	l.Debugf("Static:NavigateTo", "below level")
	l.Infof("Context:Goto", "filtered out")
	l.Warnf("Static:SwitchToFrame", "kept")

	assert.Equal(t, []string{"kept"}, hook.Lines())
}

func TestLoggerWithField(t *testing.T) {
	t.Parallel()

	l, hook := newTestLogger(logrus.DebugLevel, nil)
	l.WithField("backend", "static").Debugf("Static:Search", "ok")

	entries := hook.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, "static", entries[0].Data["backend"])
}

func TestNilLogger(t *testing.T) {
	t.Parallel()

	var l *Logger
	assert.NotPanics(t, func() {
		l.Debugf("Context:CSS", "nothing")
		assert.Nil(t, l.WithField("a", 1))
	})
	assert.NotPanics(t, func() { NewNullLogger().Errorf("x", "y") })
}
