package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/errext"
	"github.com/grafana/pincers/errext/exitcodes"
)

// chainFlags are the flags that shape how a location is opened and queried.
type chainFlags struct {
	xpath  bool
	frames []string
	index  int
}

func (f *chainFlags) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.BoolVar(&f.xpath, "xpath", false, "treat the selectors as XPath expressions instead of CSS")
	flags.StringArrayVar(&f.frames, "frame", nil,
		"switch frame before querying, 'top', 'parent' or a CSS selector of the frame element, can be repeated")
	flags.IntVar(&f.index, "index", -1, "only keep the element at this position, -1 keeps all of them")
	return flags
}

// open navigates to location, applies the frame switches and runs the
// selector chain. Errors of the chain itself stay in the returned context so
// that a wait can re-run it.
func (f *chainFlags) open(root *core.Context, location string, selectors []string) (*core.Context, error) {
	if _, err := root.Goto(location); err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.QueryFailed)
	}
	for _, frame := range f.frames {
		opts, err := core.ParseGotoOptions(map[string]string{"frame": frame})
		if err != nil {
			return nil, err
		}
		if _, err := root.GotoWith(opts); err != nil {
			return nil, err
		}
	}

	cur := root
	for _, sel := range selectors {
		cur = cur.Find(sel, f.xpath)
	}
	if f.index >= 0 {
		cur = cur.At(f.index)
	}
	return cur, nil
}

type printMode struct {
	kind string
	attr string
}

func parsePrintMode(s string) (printMode, error) {
	kind, attr, hasAttr := strings.Cut(s, "=")
	switch kind {
	case "text", "html", "count", "json":
		if hasAttr {
			return printMode{}, fmt.Errorf("print mode %q takes no value", kind)
		}
		return printMode{kind: kind}, nil
	case "attr":
		if attr == "" {
			return printMode{}, fmt.Errorf("print mode attr needs an attribute name, e.g. attr=href")
		}
		return printMode{kind: kind, attr: attr}, nil
	default:
		return printMode{}, fmt.Errorf("unknown print mode %q, possible values are text, html, count, json and attr=<name>", s)
	}
}

type elementInfo struct {
	Tag       string         `json:"tag"`
	Text      string         `json:"text"`
	Classes   []string       `json:"classes,omitempty"`
	Value     *string        `json:"value,omitempty"`
	InputMode core.InputMode `json:"inputMode"`
	Checked   bool           `json:"checked,omitempty"`
	Selected  bool           `json:"selected,omitempty"`
}

func describe(el *core.Context) (elementInfo, error) {
	var (
		info elementInfo
		err  error
	)
	if info.Tag, err = el.Tag(); err != nil {
		return info, err
	}
	if info.Text, err = el.Text(); err != nil {
		return info, err
	}
	if info.Classes, err = el.Classes(); err != nil {
		return info, err
	}
	v, ok, err := el.Value()
	if err != nil {
		return info, err
	}
	if ok {
		info.Value = &v
	}
	if info.InputMode, err = el.InputMode(); err != nil {
		return info, err
	}
	if info.Checked, err = el.IsChecked(); err != nil {
		return info, err
	}
	if info.Selected, err = el.IsSelected(); err != nil {
		return info, err
	}
	return info, nil
}

// render formats the matched elements. Every mode except count needs at
// least one element.
func render(res *core.Context, mode printMode) (string, error) {
	if mode.kind == "count" {
		return fmt.Sprintf("%d\n", res.Count()), nil
	}
	if res.Count() == 0 {
		return "", &core.EmptyResultError{Operation: "print " + mode.kind, Chain: res.Chain()}
	}

	var sb strings.Builder
	switch mode.kind {
	case "html":
		html, err := res.HTML()
		if err != nil {
			return "", err
		}
		sb.WriteString(html)
		sb.WriteByte('\n')
	case "json":
		var infos []elementInfo
		err := res.Each(func(_ int, el *core.Context) error {
			info, err := describe(el)
			infos = append(infos, info)
			return err
		})
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return "", err
		}
		sb.Write(data)
		sb.WriteByte('\n')
	default:
		err := res.Each(func(_ int, el *core.Context) error {
			var (
				line string
				err  error
			)
			if mode.kind == "attr" {
				line, err = el.AttrOr(mode.attr, "")
			} else {
				line, err = el.Text()
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
			return err
		})
		if err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

type cmdQuery struct {
	gs    *state.GlobalState
	chain chainFlags
	print string
	wait  string
}

func (c *cmdQuery) run(cmd *cobra.Command, args []string) error {
	mode, err := parsePrintMode(c.print)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	var cond *core.Condition
	if c.wait != "" {
		found, err := core.ConditionByName(c.wait)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
		cond = &found
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
	if cond != nil {
		if res, err = res.WaitUntil(c.gs.Ctx, *cond, conf.waitOptions()); err != nil {
			return err
		}
	} else if err = res.Err(); err != nil {
		return err
	}

	out, err := render(res, mode)
	if err != nil {
		return err
	}
	printToStdout(c.gs, out)
	return nil
}

func getCmdQuery(gs *state.GlobalState) *cobra.Command {
	c := &cmdQuery{gs: gs}

	exampleText := getExampleText(gs, `
  # Print the text of every bike name
  {{.}} query https://example.com/bikes "ul.bikes li" .name

  # Print the href of the second link
  {{.}} query --print attr=href --index 1 index.html a

  # Query inside an iframe with XPath
  {{.}} query --frame "#checkout" --xpath page.html "//button[@type='submit']"

  # Count items once the list has rendered in a browser
  {{.}} query --backend browser --wait present --print count https://example.com "#list li"`[1:])

	cmd := &cobra.Command{
		Use:   "query <location> <selector>...",
		Short: "Print elements of a document",
		Long: `Open a document and print the elements matching a chain of selectors.

The location is an http(s) URL, a file: URL or a local path. Every selector is
searched under the elements matched by the previous one.`,
		Example: exampleText,
		Args:    cobra.MinimumNArgs(1),
		RunE:    c.run,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().AddFlagSet(c.chain.flagSet())
	cmd.Flags().StringVar(&c.print, "print", "text", "what to print: text, html, count, json or attr=<name>")
	cmd.Flags().StringVar(&c.wait, "wait", "",
		"poll until the result is 'present', 'not-present', 'visible', 'not-visible' or 'enabled' before printing")
	cmd.Flags().AddFlagSet(configFlagSet())

	return cmd
}
