// Package cmd is the public entry point of the pincers command line.
package cmd

import (
	"context"

	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/internal/cmd"
)

// Execute runs pincers with the real process state: os.Args, the
// environment and the standard streams.
func Execute() {
	cmd.ExecuteWithGlobalState(state.NewGlobalState(context.Background()))
}
