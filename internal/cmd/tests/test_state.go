package tests

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/lib/fsext"
	"github.com/grafana/pincers/lib/testutils"
)

// GlobalTestState is a wrapper around GlobalState for use in tests.
type GlobalTestState struct {
	*state.GlobalState
	Cancel func()

	Stdout, Stderr *bytes.Buffer
	LoggerHook     *testutils.SimpleLogrusHook

	Cwd string

	ExpectedExitCode int
}

// NewGlobalTestState returns an initialized GlobalTestState, mocking all
// GlobalState fields for use in tests. The file system is in memory and the
// working directory is /test/.
func NewGlobalTestState(tb testing.TB) *GlobalTestState {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	fs := fsext.NewMemMapFs()
	cwd := "/test/"
	require.NoError(tb, fs.MkdirAll(cwd, 0o755))

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.Out = io.Discard

	hook := testutils.NewLogHook(logrus.AllLevels...)
	logger.AddHook(hook)

	ts := &GlobalTestState{
		Cwd:        cwd,
		Cancel:     cancel,
		LoggerHook: hook,
		Stdout:     new(bytes.Buffer),
		Stderr:     new(bytes.Buffer),
	}

	osExitCalled := false
	defaultOsExitHandle := func(exitCode int) {
		cancel()
		require.Equal(tb, ts.ExpectedExitCode, exitCode)
		osExitCalled = true
	}

	tb.Cleanup(func() {
		if ts.ExpectedExitCode > 0 {
			// Ensure that, if we are testing for a specific exit code,
			// that the exit function was called.
			require.True(tb, osExitCalled)
		}
	})

	outMutex := &sync.Mutex{}
	defaultFlags := state.GetDefaultGlobalOptions(".config")
	defaultFlags.NoColor = true

	ts.GlobalState = &state.GlobalState{
		Ctx:          ctx,
		FS:           fs,
		Getwd:        func() (string, error) { return ts.Cwd, nil },
		BinaryName:   "pincers",
		CmdArgs:      []string{},
		Env:          map[string]string{},
		DefaultFlags: defaultFlags,
		Flags:        defaultFlags,
		OutMutex:     outMutex,
		Stdout: &state.Writer{
			Mutex:  outMutex,
			Writer: ts.Stdout,
		},
		Stderr: &state.Writer{
			Mutex:  outMutex,
			Writer: ts.Stderr,
		},
		Stdin:          new(bytes.Buffer),
		OSExit:         defaultOsExitHandle,
		Logger:         logger,
		FallbackLogger: testutils.NewLogger(tb).WithField("fallback", true),
	}

	return ts
}
