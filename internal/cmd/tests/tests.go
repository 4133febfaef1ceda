// Package tests contains integration tests that run the pincers command
// against a simulated global state.
package tests

import (
	"testing"

	"go.uber.org/goleak"
)

// Main is a TestMain function that can be imported by other test packages
// that want to use the API server and ensure no goroutines are leaking.
func Main(m *testing.M) {
	goleak.VerifyTestMain(m,
		// idle keep-alive connections of the page fetcher
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
