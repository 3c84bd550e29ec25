package gojareactor

import (
	"context"
	"errors"

	"github.com/joeycumines/go-reactor/reactor"
)

// moduleOptions holds configuration for a [Module] instance.
type moduleOptions struct {
	ctx         context.Context
	baseOptions []reactor.Option
	onNewBase   []func(*reactor.Base)
}

// Option configures a [Module] instance. Options are applied during
// module construction.
type Option interface {
	applyOption(*moduleOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*moduleOptions) error
}

func (o *optionFunc) applyOption(opts *moduleOptions) error {
	return o.fn(opts)
}

// WithContext configures the parent context of every loop run from
// JavaScript. Canceling it breaks out of any running loop. Defaults to
// [context.Background].
func WithContext(ctx context.Context) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if ctx == nil {
			return errors.New("gojareactor: context must not be nil")
		}
		opts.ctx = ctx
		return nil
	}}
}

// WithBaseOptions configures the options passed to [reactor.New] for each
// base created by JavaScript. May be specified multiple times.
func WithBaseOptions(baseOptions ...reactor.Option) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.baseOptions = append(opts.baseOptions, baseOptions...)
		return nil
	}}
}

// WithOnNewBase registers a hook that receives each base created by
// JavaScript, e.g. to export its metrics. Hooks run in the order they were
// registered.
func WithOnNewBase(fn func(*reactor.Base)) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if fn == nil {
			return errors.New("gojareactor: base hook must not be nil")
		}
		opts.onNewBase = append(opts.onNewBase, fn)
		return nil
	}}
}

// resolveOptions applies the given options to a default [moduleOptions].
func resolveOptions(opts []Option) (*moduleOptions, error) {
	cfg := &moduleOptions{ctx: context.Background()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
