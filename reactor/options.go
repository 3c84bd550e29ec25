// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// DefaultMaxEventsPerPoll is the size of the readiness buffer used for each
// poll, unless overridden by [WithMaxEventsPerPoll].
const DefaultMaxEventsPerPoll = 256

// baseOptions holds configuration options for Base creation.
type baseOptions struct {
	logger           *logiface.Logger[logiface.Event]
	logLimiter       *catrate.Limiter
	maxEventsPerPoll int
	metricsEnabled   bool
}

// Option configures a Base instance.
type Option interface {
	applyBase(*baseOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyBaseFunc func(*baseOptions) error
}

func (o *optionImpl) applyBase(opts *baseOptions) error {
	return o.applyBaseFunc(opts)
}

// WithLogger sets the logger used for diagnostics, e.g. recovered callback
// panics and poll failures. A nil logger disables logging (the default).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *baseOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLogRateLimits limits warnings per category (e.g. one category per
// event that keeps panicking), using the same rate format as
// [catrate.NewLimiter]. A nil or empty map disables limiting.
//
// [catrate.NewLimiter]: https://pkg.go.dev/github.com/joeycumines/go-catrate#NewLimiter
func WithLogRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *baseOptions) (err error) {
		if len(rates) == 0 {
			opts.logLimiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("reactor: invalid log rate limits: %v", r)
			}
		}()
		opts.logLimiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// WithMaxEventsPerPoll sets how many readiness notifications are retrieved
// per poll. Must be positive.
func WithMaxEventsPerPoll(n int) Option {
	return &optionImpl{func(opts *baseOptions) error {
		if n <= 0 {
			return fmt.Errorf("reactor: max events per poll must be positive, got %d", n)
		}
		opts.maxEventsPerPoll = n
		return nil
	}}
}

// WithMetrics enables runtime metrics collection, see [Base.Metrics].
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *baseOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveOptions applies Option instances to baseOptions.
func resolveOptions(opts []Option) (*baseOptions, error) {
	cfg := &baseOptions{
		maxEventsPerPoll: DefaultMaxEventsPerPoll,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyBase(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
