// Package log holds the logrus plumbing for pincers: the category logger used
// by contexts and backends, and hooks configured from --log-output.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AsyncHook is a logrus hook that buffers entries and flushes them from its
// own goroutine until ctx is done.
type AsyncHook interface {
	logrus.Hook
	Listen(ctx context.Context)
}
