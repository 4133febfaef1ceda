package testutils

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

type testOutput struct{ testing.TB }

func (to testOutput) Write(p []byte) (n int, err error) {
	to.Logf("%s", p)
	return len(p), nil
}

// NewTestOutput returns an io.Writer that forwards to t.Logf.
func NewTestOutput(t testing.TB) io.Writer {
	return testOutput{t}
}

// NewLogger returns a debug-level logger that writes through t.Logf.
func NewLogger(t testing.TB) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(NewTestOutput(t))
	l.SetLevel(logrus.DebugLevel)
	return l
}
