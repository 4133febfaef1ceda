package cmd

import (
	"context"
	"fmt"
	"regexp"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/grafana/pincers/backend/browser"
	"github.com/grafana/pincers/backend/static"
	"github.com/grafana/pincers/cmd/state"
	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/errext"
	"github.com/grafana/pincers/errext/exitcodes"
	"github.com/grafana/pincers/internal/build"
	"github.com/grafana/pincers/internal/lib/trace"
	"github.com/grafana/pincers/internal/log"
)

const shutdownTimeout = 5 * time.Second

// session is an open backend with its root context.
type session struct {
	root  *core.Context
	close func() error
}

func newCategoryLogger(gs *state.GlobalState) (*log.Logger, error) {
	var filter *regexp.Regexp
	if expr, ok := gs.Env["PINCERS_LOG_CATEGORY_FILTER"]; ok && expr != "" {
		var err error
		if filter, err = regexp.Compile(expr); err != nil {
			return nil, errext.WithExitCodeIfNone(
				fmt.Errorf("invalid PINCERS_LOG_CATEGORY_FILTER: %w", err), exitcodes.InvalidConfig)
		}
	}
	return log.New(gs.Logger, filter), nil
}

// openSession creates the configured backend, wraps it with tracing when
// traces are enabled, and returns its root context.
func openSession(ctx context.Context, gs *state.GlobalState, conf Config) (*session, error) {
	logger, err := newCategoryLogger(gs)
	if err != nil {
		return nil, err
	}

	var (
		backend core.Backend
		closers []func() error
	)
	switch conf.Backend.String {
	case browser.Name:
		b, err := browser.Launch(ctx, browser.Config{
			ControlURL: conf.ControlURL.String,
			Bin:        conf.BrowserBin.String,
			Headless:   conf.Headless.Bool,
			UserAgent:  conf.UserAgent.String,
		}, logger)
		if err != nil {
			return nil, errext.WithHint(
				errext.WithExitCodeIfNone(err, exitcodes.BackendUnavailable),
				"set --control-url to a running browser or --browser-bin to a Chrome executable",
			)
		}
		backend = b
		closers = append(closers, b.Close)
	default:
		fetcher, err := static.NewHTTPFetcher(static.FetcherOptions{
			Timeout:   conf.Timeout.TimeDuration(),
			UserAgent: conf.UserAgent.String,
			Fs:        gs.FS,
		})
		if err != nil {
			return nil, err
		}
		b, err := static.New(static.WithFetcher(fetcher), static.WithLogger(logger), static.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		backend = b
	}

	tp, err := trace.TracerProviderFromConfigLine(ctx, conf.TracesOutput.String, gs.Stdout)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if conf.TracesOutput.String != "" && conf.TracesOutput.String != "none" {
		backend = trace.NewTracedBackend(ctx, backend, tp.Tracer("github.com/grafana/pincers", oteltrace.WithInstrumentationVersion(build.Version)))
	}
	closers = append(closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return tp.Shutdown(sctx)
	})

	root := core.NewRootContext(backend,
		core.WithLogger(logger),
		core.WithWaitDefaults(conf.Timeout.TimeDuration(), conf.Interval.TimeDuration()),
	)
	return &session{
		root: root,
		close: func() error {
			var firstErr error
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}, nil
}
