package engine

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-recplay/midi"
)

// TimedEvent is a message and its offset from the start of a recording
type TimedEvent struct {
	Offset time.Duration
	Msg    gomidi.Message
}

// Recording is an ordered capture. Offsets never decrease.
// A Recording handed out by the engine must be treated as read-only.
type Recording []TimedEvent

// Len returns the number of events
func (r Recording) Len() int {
	return len(r)
}

// Duration returns the offset of the last event
func (r Recording) Duration() time.Duration {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1].Offset
}

// Clone deep-copies the recording, messages included
func (r Recording) Clone() Recording {
	if r == nil {
		return nil
	}
	out := make(Recording, len(r))
	for i, ev := range r {
		out[i] = TimedEvent{Offset: ev.Offset, Msg: midi.Clone(ev.Msg)}
	}
	return out
}

// appendAllNotesOff terminates r with one all-notes-off per channel at
// offset, clamped so offsets stay non-decreasing.
func appendAllNotesOff(r Recording, offset time.Duration) Recording {
	if last := r.Duration(); offset < last {
		offset = last
	}
	for ch := uint8(0); ch < midi.NumChannels; ch++ {
		r = append(r, TimedEvent{Offset: offset, Msg: midi.AllNotesOff(ch)})
	}
	return r
}
