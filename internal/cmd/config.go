package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/grafana/pincers/backend/browser"
	"github.com/grafana/pincers/backend/static"
	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/errext"
	"github.com/grafana/pincers/errext/exitcodes"
	"github.com/grafana/pincers/lib/fsext"
	"github.com/grafana/pincers/lib/types"
)

// Config is the backend and wait configuration shared by the query
// commands. Every layer (file, environment, flags) only overrides the
// fields it sets.
type Config struct {
	Backend      null.String        `json:"backend" yaml:"backend" envconfig:"PINCERS_BACKEND"`
	Timeout      types.NullDuration `json:"timeout" yaml:"timeout" envconfig:"PINCERS_TIMEOUT"`
	Interval     types.NullDuration `json:"interval" yaml:"interval" envconfig:"PINCERS_INTERVAL"`
	Headless     null.Bool          `json:"headless" yaml:"headless" envconfig:"PINCERS_HEADLESS"`
	BrowserBin   null.String        `json:"browserBin" yaml:"browserBin" envconfig:"PINCERS_BROWSER_BIN"`
	ControlURL   null.String        `json:"controlURL" yaml:"controlURL" envconfig:"PINCERS_CONTROL_URL"`
	UserAgent    null.String        `json:"userAgent" yaml:"userAgent" envconfig:"PINCERS_USER_AGENT"`
	TracesOutput null.String        `json:"tracesOutput" yaml:"tracesOutput" envconfig:"PINCERS_TRACES_OUTPUT"`
}

// NewConfig returns the defaults. None of them count as set.
func NewConfig() Config {
	return Config{
		Backend:      null.NewString(static.Name, false),
		Timeout:      types.NewNullDuration(core.DefaultWaitTimeout, false),
		Interval:     types.NewNullDuration(core.DefaultWaitInterval, false),
		Headless:     null.NewBool(true, false),
		UserAgent:    null.NewString(static.DefaultUserAgent, false),
		TracesOutput: null.NewString("none", false),
	}
}

// Apply overrides the receiver with every valid field of cfg.
func (c Config) Apply(cfg Config) Config {
	if cfg.Backend.Valid && cfg.Backend.String != "" {
		c.Backend = cfg.Backend
	}
	if cfg.Timeout.Valid {
		c.Timeout = cfg.Timeout
	}
	if cfg.Interval.Valid {
		c.Interval = cfg.Interval
	}
	if cfg.Headless.Valid {
		c.Headless = cfg.Headless
	}
	if cfg.BrowserBin.Valid {
		c.BrowserBin = cfg.BrowserBin
	}
	if cfg.ControlURL.Valid {
		c.ControlURL = cfg.ControlURL
	}
	if cfg.UserAgent.Valid && cfg.UserAgent.String != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.TracesOutput.Valid {
		c.TracesOutput = cfg.TracesOutput
	}
	return c
}

// Validate checks the consolidated values.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend.String {
	case static.Name, browser.Name:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q, expected %q or %q", c.Backend.String, static.Name, browser.Name))
	}
	if c.Timeout.TimeDuration() <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Interval.TimeDuration() <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Interval.TimeDuration() > c.Timeout.TimeDuration() {
		errs = append(errs, fmt.Errorf("interval %s is longer than timeout %s", c.Interval.Duration, c.Timeout.Duration))
	}
	return errors.Join(errs...)
}

func configFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("backend", static.Name, "document backend, 'static' (parse only) or 'browser' (live Chrome)")
	flags.Duration("timeout", core.DefaultWaitTimeout, "how long --wait conditions are polled")
	flags.Duration("interval", core.DefaultWaitInterval, "delay between --wait polls")
	flags.Bool("headless", true, "run a launched browser without a window")
	flags.String("browser-bin", "", "browser executable to launch, found or downloaded when empty")
	flags.String("control-url", "", "DevTools websocket URL of a running browser, instead of launching one")
	flags.String("user-agent", static.DefaultUserAgent, "User-Agent header for page requests")
	flags.String("traces-output", "none",
		"where backend call traces go, possible values are: 'none', 'stdout', 'otel[=url][,proto=http|grpc][,header.<name>=<value>]'")
	return flags
}

func getConfigFromFlags(flags *pflag.FlagSet) Config {
	return Config{
		Backend:      getNullString(flags, "backend"),
		Timeout:      getNullDuration(flags, "timeout"),
		Interval:     getNullDuration(flags, "interval"),
		Headless:     getNullBool(flags, "headless"),
		BrowserBin:   getNullString(flags, "browser-bin"),
		ControlURL:   getNullString(flags, "control-url"),
		UserAgent:    getNullString(flags, "user-agent"),
		TracesOutput: getNullString(flags, "traces-output"),
	}
}

// readDiskConfig reads the config file, if there is one. A missing file is
// only an error when the path was chosen by the user.
func readDiskConfig(gs *state.GlobalState) (Config, error) {
	path := gs.Flags.ConfigFilePath
	var conf Config
	data, err := fsext.ReadFile(gs.FS, path)
	if errors.Is(err, fs.ErrNotExist) && path == gs.DefaultFlags.ConfigFilePath {
		return conf, nil
	}
	if err != nil {
		return conf, fmt.Errorf("couldn't load the configuration from %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &conf)
	default:
		err = json.Unmarshal(data, &conf)
	}
	if err != nil {
		return conf, fmt.Errorf("couldn't parse the configuration from %q: %w", path, err)
	}
	return conf, nil
}

func readEnvConfig(env map[string]string) (Config, error) {
	var conf Config
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

// getConsolidatedConfig merges, from lowest to highest priority, the
// defaults, the config file, the PINCERS_* environment variables and the
// command line flags.
func getConsolidatedConfig(gs *state.GlobalState, flags *pflag.FlagSet) (Config, error) {
	result := NewConfig()

	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return result, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	result = result.Apply(fileConf)

	envConf, err := readEnvConfig(gs.Env)
	if err != nil {
		return result, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	result = result.Apply(envConf).Apply(getConfigFromFlags(flags))

	if err := result.Validate(); err != nil {
		return result, errext.WithExitCodeIfNone(
			errext.WithHint(err, "check the config file, the PINCERS_* environment variables and the flags"),
			exitcodes.InvalidConfig,
		)
	}
	gs.Logger.WithFields(map[string]interface{}{
		"backend":  result.Backend.String,
		"timeout":  result.Timeout.Duration,
		"interval": result.Interval.Duration,
	}).Debug("Consolidated config")
	return result, nil
}

func (c Config) waitOptions() core.WaitOptions {
	return core.WaitOptions{
		Timeout:  time.Duration(c.Timeout.Duration),
		Interval: time.Duration(c.Interval.Duration),
	}
}
