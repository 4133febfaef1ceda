package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/errext"
	"github.com/grafana/pincers/errext/exitcodes"
)

type cmdWait struct {
	gs    *state.GlobalState
	chain chainFlags
	until string
}

func (c *cmdWait) run(cmd *cobra.Command, args []string) error {
	cond, err := core.ConditionByName(c.until)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	conf, err := getConsolidatedConfig(c.gs, cmd.Flags())
	if err != nil {
		return err
	}
	sess, err := openSession(c.gs.Ctx, c.gs, conf)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil {
			c.gs.Logger.WithError(cerr).Warn("Closing the backend failed")
		}
	}()

	res, err := c.chain.open(sess.root, args[0], args[1:])
	if err != nil {
		return err
	}

	start := time.Now()
	fresh, err := res.WaitUntil(c.gs.Ctx, cond, conf.waitOptions())
	if err != nil {
		return err
	}
	c.gs.Logger.WithField("elapsed", time.Since(start)).Debug("Condition met")
	printToStdout(c.gs, fmt.Sprintf("%s: %s (%d elements)\n", cond.Name, fresh.Chain(), fresh.Count()))
	return nil
}

func getCmdWait(gs *state.GlobalState) *cobra.Command {
	c := &cmdWait{gs: gs}

	exampleText := getExampleText(gs, `
  # Wait for the spinner to go away
  {{.}} wait --backend browser --until not-visible https://example.com .spinner

  # Fail with exit code 102 unless the button is enabled within 3 seconds
  {{.}} wait --timeout 3s --until enabled form.html "button[type=submit]"`[1:])

	cmd := &cobra.Command{
		Use:   "wait <location> <selector>...",
		Short: "Wait until elements of a document meet a condition",
		Long: `Open a document and poll the selector chain until a condition holds.

The command exits with code 102 if the condition is not met before --timeout.`,
		Example: exampleText,
		Args:    cobra.MinimumNArgs(2),
		RunE:    c.run,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().AddFlagSet(c.chain.flagSet())
	cmd.Flags().StringVar(&c.until, "until", "present",
		"condition to wait for: 'present', 'not-present', 'visible', 'not-visible' or 'enabled'")
	cmd.Flags().AddFlagSet(configFlagSet())

	return cmd
}
