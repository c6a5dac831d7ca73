// Package wait polls a condition against a live, externally changing resource
// until it holds or a deadline passes.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the pause between two evaluations of a condition.
const DefaultInterval = 500 * time.Millisecond

// ErrTimeout is matched by every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("wait: timed out")

// Condition is a re-invocable, read-only check. Description is used in
// diagnostics when the condition is never met.
type Condition struct {
	Description string
	Check       func(ctx context.Context) (bool, error)
}

// TimeoutError reports a condition that did not hold before its deadline.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	Elapsed   time.Duration
	Attempts  int
	// LastErr is the last ignored error returned by the condition, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("wait: %s not met after %s (timeout %s, %d attempts)",
		e.Condition, e.Elapsed.Round(time.Millisecond), e.Timeout, e.Attempts)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type pollerConfig struct {
	interval time.Duration
	ignored  []error
}

type Option func(*pollerConfig)

// WithInterval sets the pause between evaluations. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *pollerConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithIgnored makes errors matching any of errs count as "not yet true"
// instead of aborting the wait.
func WithIgnored(errs ...error) Option {
	return func(c *pollerConfig) {
		c.ignored = append(c.ignored, errs...)
	}
}

// Poller evaluates conditions until they hold or time out.
type Poller struct {
	interval time.Duration
	ignored  []error
}

func New(options ...Option) *Poller {
	cfg := &pollerConfig{interval: DefaultInterval}
	for _, opt := range options {
		opt(cfg)
	}

	return &Poller{
		interval: cfg.interval,
		ignored:  cfg.ignored,
	}
}

// Interval returns the pause between evaluations.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Block evaluates cond until it returns true or timeout has elapsed since the
// first evaluation. The condition is always evaluated at least once, so a zero
// timeout is a single check. Errors that are not ignored are returned at once.
func (p *Poller) Block(ctx context.Context, cond Condition, timeout time.Duration) error {
	if cond.Check == nil {
		return errors.Errorf("wait: condition %q has no check", cond.Description)
	}
	if timeout < 0 {
		timeout = 0
	}

	start := time.Now()
	deadline := start.Add(timeout)

	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := cond.Check(ctx)
		if err != nil {
			if !p.isIgnored(err) {
				return errors.Wrapf(err, "wait: evaluating %s", cond.Description)
			}
			lastErr = err
			ok = false
		}
		if ok {
			logrus.Debugf("wait: %s met after %d attempts in %s", cond.Description, attempt, time.Since(start))
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			timeoutErr := &TimeoutError{
				Condition: cond.Description,
				Timeout:   timeout,
				Elapsed:   time.Since(start),
				Attempts:  attempt,
				LastErr:   lastErr,
			}
			logrus.WithFields(logrus.Fields{
				"condition": cond.Description,
				"timeout":   timeout,
				"attempts":  attempt,
			}).Warn("wait: condition timed out")
			return timeoutErr
		}

		pause := p.interval
		if remaining < pause {
			pause = remaining
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) isIgnored(err error) bool {
	for _, target := range p.ignored {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
