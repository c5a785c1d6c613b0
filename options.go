// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// options holds configuration applied at New.
type options struct {
	logger         *logiface.Logger[logiface.Event]
	now            func() time.Time
	metricsEnabled bool
	dontWait       bool
}

// Option configures a Reactor instance.
type Option interface {
	apply(*options) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*options) error
}

func (o *optionImpl) apply(opts *options) error {
	return o.applyFunc(opts)
}

// WithLogger attaches a structured logger. Pass the generic form, e.g.
// logiface.New[E](...).Logger(). A nil logger (the default) disables
// logging entirely.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) error {
		opts.logger = logger
		return nil
	}}
}

// WithClock overrides the wall-clock source used for timer deadlines and
// skew detection. The default is time.Now.
func WithClock(now func() time.Time) Option {
	return &optionImpl{func(opts *options) error {
		if now == nil {
			return errors.New("reactor: WithClock requires a non-nil clock")
		}
		opts.now = now
		return nil
	}}
}

// WithMetrics enables runtime counters and poll-latency tracking,
// readable via Reactor.Metrics. Disabled by default; the dispatch path
// then carries no instrumentation at all.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *options) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithDontWait starts the reactor with the DontWait flag set, as if
// SetDontWait(true) had been called before the first iteration.
func WithDontWait(on bool) Option {
	return &optionImpl{func(opts *options) error {
		opts.dontWait = on
		return nil
	}}
}

// resolveOptions applies Option instances over the defaults.
func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		now: time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // skip nil options gracefully
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
