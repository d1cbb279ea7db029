// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"github.com/joeycumines/logiface"
)

// Mode selects the backing strategy for primitives that have both a
// single-goroutine and a cross-goroutine implementation.
type Mode uint8

const (
	// ModeLocal uses plain fields. All use of the primitive (including the
	// host callbacks feeding it) must happen on one goroutine.
	ModeLocal Mode = iota + 1

	// ModeAtomic uses atomic state machines, and is safe across goroutines.
	ModeAtomic
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "Local"
	case ModeAtomic:
		return "Atomic"
	default:
		return "Unknown"
	}
}

// options holds configuration shared by the constructors in this package.
type options struct {
	logger        *logiface.Logger[logiface.Event]
	mode          Mode
	highWaterMark int
}

// Option configures a primitive or adapter.
type Option interface {
	apply(*options)
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*options)
}

func (o *optionImpl) apply(opts *options) {
	o.applyFunc(opts)
}

// WithMode overrides [DefaultMode] for the constructed instance.
// Values other than [ModeLocal] and [ModeAtomic] are ignored.
func WithMode(mode Mode) Option {
	return &optionImpl{func(opts *options) {
		if mode == ModeLocal || mode == ModeAtomic {
			opts.mode = mode
		}
	}}
}

// WithLogger attaches a structured logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) {
		opts.logger = logger
	}}
}

// WithHighWaterMark sets how many chunks a builder-backed source may queue
// before it stops calling pull. Values below 1 are treated as 1.
func WithHighWaterMark(n int) Option {
	return &optionImpl{func(opts *options) {
		if n < 1 {
			n = 1
		}
		opts.highWaterMark = n
	}}
}

// resolveOptions applies Option instances to a fresh options value.
func resolveOptions(opts []Option) *options {
	cfg := &options{
		mode:          DefaultMode,
		highWaterMark: 1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
