package engine

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-recplay/midi"
)

// Link mirrors live input to a sink, optionally forcing every channel
// message onto one channel.
type Link struct {
	mu       sync.Mutex
	sink     midi.Sink
	override int // -1 = pass channel through
}

// NewLink creates a link with no sink and no override
func NewLink() *Link {
	return &Link{override: -1}
}

// Configure replaces the sink and override together. Deliveries already in
// flight finish with the old pair.
func (l *Link) Configure(sink midi.Sink, override *uint8) error {
	ov := -1
	if override != nil {
		if *override >= midi.NumChannels {
			return fmt.Errorf("%w: override %d (want 0-15)", ErrInvalidChannel, *override)
		}
		ov = int(*override)
	}
	l.mu.Lock()
	l.sink = sink
	l.override = ov
	l.mu.Unlock()
	return nil
}

// Sink returns the configured sink, or nil
func (l *Link) Sink() midi.Sink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink
}

// Override returns the channel override, if any
func (l *Link) Override() (uint8, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.override < 0 {
		return 0, false
	}
	return uint8(l.override), true
}

// Deliver rewrites msg per the override and sends it to the sink. It
// returns the message as forwarded and whether a sink took it. The lock is
// held for the whole read-rewrite-send so reconfiguration never splits a
// delivery.
func (l *Link) Deliver(msg gomidi.Message) (out gomidi.Message, sent bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out = msg
	if l.override >= 0 {
		out = midi.WithChannel(msg, uint8(l.override))
	}
	if l.sink == nil {
		return out, false, nil
	}
	if err := l.sink.Send(out); err != nil {
		return out, false, err
	}
	return out, true, nil
}
