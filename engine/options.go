package engine

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	log     *zap.Logger
	quantum time.Duration
	now     func() time.Time
}

// Option configures a Session
type Option func(*options)

// WithLogger sets the logger for the session and its parts
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithPollQuantum sets the longest slice the playback loop waits between
// cancellation checks.
func WithPollQuantum(d time.Duration) Option {
	return func(o *options) {
		o.quantum = d
	}
}

// WithClock sets the clock used to timestamp captured events
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts ...Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.quantum <= 0 {
		o.quantum = DefaultPollQuantum
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}
