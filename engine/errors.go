package engine

import "errors"

var (
	// ErrInvalidState is returned when an operation conflicts with the current
	// record/playback state. Nothing has changed when it is returned.
	ErrInvalidState = errors.New("invalid state")

	// ErrNoSourceConfigured is returned when recording needs an input that isn't wired
	ErrNoSourceConfigured = errors.New("no source configured")

	// ErrNoSinkConfigured is returned when playback needs an output that isn't wired
	ErrNoSinkConfigured = errors.New("no sink configured")

	// ErrInvalidChannel is returned for a channel override outside 0-15
	ErrInvalidChannel = errors.New("invalid channel")
)
