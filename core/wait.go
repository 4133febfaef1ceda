package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Condition is a named predicate over a freshly resolved set of elements.
type Condition struct {
	Name  string
	Check func(Checker, []ElementHandle) (bool, error)
}

// Built-in wait conditions.
var (
	Present    = Condition{Name: "present", Check: Checker.CheckPresent}
	NotPresent = Condition{Name: "not present", Check: Checker.CheckNotPresent}
	Visible    = Condition{Name: "visible", Check: Checker.CheckVisible}
	NotVisible = Condition{Name: "not visible", Check: Checker.CheckNotVisible}
	Enabled    = Condition{Name: "enabled", Check: Checker.CheckEnabled}
)

// ConditionByName returns the built-in condition called name. Both
// "not present" and "not-present" spellings are accepted.
func ConditionByName(name string) (Condition, error) {
	switch name {
	case "present":
		return Present, nil
	case "not present", "not-present", "absent":
		return NotPresent, nil
	case "visible":
		return Visible, nil
	case "not visible", "not-visible", "hidden":
		return NotVisible, nil
	case "enabled":
		return Enabled, nil
	default:
		return Condition{}, &InvalidArgumentError{
			Operation: "Wait",
			Reason:    fmt.Sprintf("unknown condition %q", name),
		}
	}
}

// WaitOptions tunes a single wait. Zero values use the root's defaults.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (o WaitOptions) withDefaults(s *settings) WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = s.waitTimeout
	}
	if o.Interval <= 0 {
		o.Interval = s.waitInterval
	}
	return o
}

// WaitUntil re-runs the query chain that produced c until cond holds for the
// fresh elements, and returns the fresh context. It fails with a
// *TimeoutError once opts.Timeout has elapsed, with ctx.Err() when ctx is
// done, and with the backend error if the query or the check fails.
func (c *Context) WaitUntil(ctx context.Context, cond Condition, opts WaitOptions) (*Context, error) {
	if cond.Check == nil {
		return nil, &InvalidArgumentError{Operation: "Wait", Reason: "condition has no check"}
	}
	opts = opts.withDefaults(c.settings)
	c.logger().Debugf("Context:WaitUntil", "chain:%q cond:%q timeout:%s interval:%s",
		c.Chain(), cond.Name, opts.Timeout, opts.Interval)

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	timer := time.NewTimer(0)
	defer timer.Stop()

	lastCount := 0
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		fresh, els, err := c.poll()
		if err != nil {
			return nil, err
		}
		lastCount = len(els)
		ok, err := cond.Check(c.backend, els)
		if err != nil {
			return nil, c.annotate("Wait "+cond.Name, err)
		}
		if ok {
			c.logger().Debugf("Context:WaitUntil", "chain:%q cond:%q met attempt:%d", c.Chain(), cond.Name, attempt)
			return fresh, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{
				Condition: cond.Name,
				Chain:     c.Chain(),
				Elapsed:   time.Since(start),
				LastCount: lastCount,
			}
		}
		next := opts.Interval
		if next > remaining {
			next = remaining
		}
		timer.Reset(next)
	}
}

// WaitFor is CSS(selector).WaitUntil(ctx, cond, opts).
func (c *Context) WaitFor(ctx context.Context, selector string, cond Condition, opts WaitOptions) (*Context, error) {
	return c.CSS(selector).WaitUntil(ctx, cond, opts)
}

// poll re-resolves c. An index that is out of range on the fresh document
// counts as no elements.
func (c *Context) poll() (*Context, []ElementHandle, error) {
	fresh := c.Refresh()
	els, err := fresh.resolve()
	var ioe *IndexOutOfRangeError
	if errors.As(err, &ioe) {
		return fresh, nil, nil
	}
	return fresh, els, err
}
