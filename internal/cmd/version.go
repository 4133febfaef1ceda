package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/internal/build"
)

type versionCmd struct {
	gs     *state.GlobalState
	isJSON bool
}

func (c *versionCmd) run(_ *cobra.Command, _ []string) error {
	if !c.isJSON {
		valueColor := getColor(c.gs.Flags.NoColor || !c.gs.Stdout.IsTTY, color.FgCyan)
		printToStdout(c.gs, fmt.Sprintf("%s %s\n", c.gs.BinaryName, valueColor.Sprint(build.FullVersion())))
		return nil
	}

	jsonDetails, err := json.Marshal(build.VersionDetails())
	if err != nil {
		return fmt.Errorf("failed produce a JSON version details: %w", err)
	}

	printToStdout(c.gs, string(jsonDetails)+"\n")
	return nil
}

func getCmdVersion(gs *state.GlobalState) *cobra.Command {
	versionCmd := &versionCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  `Show the application version and exit.`,
		Args:  cobra.NoArgs,
		RunE:  versionCmd.run,
	}

	cmd.Flags().BoolVar(&versionCmd.isJSON, "json", false, "if set, output version information will be in JSON format")

	return cmd
}
