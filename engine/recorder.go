package engine

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Recorder timestamps captured messages relative to the first one.
// Capture runs on the input's delivery goroutine; Start and Stop come from
// the controlling goroutine.
type Recorder struct {
	now func() time.Time

	mu        sync.Mutex
	recording bool
	started   bool
	startTime time.Time
	events    Recording
}

// NewRecorder creates an idle recorder. A nil clock uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Start clears the buffer and begins capturing
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("%w: already recording", ErrInvalidState)
	}
	r.recording = true
	r.started = false
	r.events = nil
	return nil
}

// IsRecording reports whether Capture is storing events
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Capture appends msg if recording and returns its offset. The first
// captured message defines offset 0.
func (r *Recorder) Capture(msg gomidi.Message) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0, false
	}
	now := r.now()
	if !r.started {
		r.started = true
		r.startTime = now
	}
	offset := now.Sub(r.startTime)
	if last := r.events.Duration(); offset < last {
		offset = last
	}
	r.events = append(r.events, TimedEvent{Offset: offset, Msg: msg})
	return offset, true
}

// Len returns the number of events captured so far
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Stop ends capture and returns the finished recording, terminated with an
// all-notes-off per channel. Stopping an idle recorder is a no-op that
// returns false.
func (r *Recorder) Stop() (Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, false
	}
	r.recording = false

	var elapsed time.Duration
	if r.started {
		elapsed = r.now().Sub(r.startTime)
	}
	rec := appendAllNotesOff(r.events, elapsed)
	r.events = nil
	return rec, true
}
