// Package progress runs a remote command behind a fixed sequence of
// (percent, message) announcements.
//
// The announcements are an animation chosen by the caller. They are not
// derived from the command: every stage is emitted, percent reaches 100, and
// only then is the command invoked.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// ErrInvalidPlan is returned when a plan's percents are out of range or decreasing.
var ErrInvalidPlan = errors.New("invalid progress plan")

// Stage is one announcement.
type Stage struct {
	Percent int
	Message string
}

// Plan describes the announcements made around one command.
type Plan struct {
	// Start is announced at 0% before any stage.
	Start string
	// Stages are announced in order, each followed by Interval.
	Stages   []Stage
	Interval time.Duration
	// Final is announced at 100% right before the command is invoked.
	Final string
}

// Validate checks that every percent lies in [0,100] and the sequence never decreases.
func (p Plan) Validate() error {
	last := 0
	for i, s := range p.Stages {
		if s.Percent < 0 || s.Percent > 100 {
			return fmt.Errorf("%w: stage %d percent %d out of range", ErrInvalidPlan, i, s.Percent)
		}
		if s.Percent < last {
			return fmt.Errorf("%w: stage %d percent %d below %d", ErrInvalidPlan, i, s.Percent, last)
		}
		last = s.Percent
	}
	return nil
}

// Observer receives every announcement. A reset is reported as (0, "").
type Observer func(percent int, message string)

type runner struct {
	clock   clock.Clock
	noDelay bool
}

// Option configures Run.
type Option func(*runner)

// WithClock replaces the clock used for the inter-stage waits.
func WithClock(c clock.Clock) Option {
	return func(r *runner) { r.clock = c }
}

// WithoutDelay skips the inter-stage waits. Announcements are unchanged.
func WithoutDelay() Option {
	return func(r *runner) { r.noDelay = true }
}

// Run announces plan to observe and then invokes op.
// If op fails, or ctx is cancelled while stages are playing, observe receives
// a reset before the error is returned.
func Run[R any](ctx context.Context, plan Plan, op func(context.Context) (R, error), observe Observer, opts ...Option) (R, error) {
	var zero R

	r := &runner{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(r)
	}
	if observe == nil {
		observe = func(int, string) {}
	}
	if err := plan.Validate(); err != nil {
		return zero, err
	}

	reset := func() { observe(0, "") }

	observe(0, plan.Start)
	for _, s := range plan.Stages {
		observe(s.Percent, s.Message)
		if err := r.wait(ctx, plan.Interval); err != nil {
			reset()
			return zero, err
		}
	}
	observe(100, plan.Final)

	res, err := op(ctx)
	if err != nil {
		reset()
		return zero, err
	}
	return res, nil
}

func (r *runner) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.noDelay || d <= 0 {
		return nil
	}

	t := r.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
