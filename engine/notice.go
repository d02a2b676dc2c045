package engine

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoticeKind identifies what happened in the engine
type NoticeKind int

const (
	RecordingStarted NoticeKind = iota
	EventReceived
	EventForwarded
	EventDropped // no sink on the live path
	ForwardFailed
	RecordingStopped
	PlaybackStarted
	PlaybackEvent
	PlaybackStopped
	PlaybackFailed
)

var noticeNames = [...]string{
	RecordingStarted: "recording_started",
	EventReceived:    "event_received",
	EventForwarded:   "event_forwarded",
	EventDropped:     "event_dropped",
	ForwardFailed:    "forward_failed",
	RecordingStopped: "recording_stopped",
	PlaybackStarted:  "playback_started",
	PlaybackEvent:    "playback_event",
	PlaybackStopped:  "playback_stopped",
	PlaybackFailed:   "playback_failed",
}

func (k NoticeKind) String() string {
	if k >= 0 && int(k) < len(noticeNames) {
		return noticeNames[k]
	}
	return "unknown"
}

// Notice is published on the session's notice bus. Only the fields relevant
// to Kind are set.
type Notice struct {
	Kind     NoticeKind
	At       time.Time
	Msg      gomidi.Message
	Offset   time.Duration
	Loop     bool
	Events   int  // recording length on RecordingStopped and PlaybackStarted
	Captured bool // EventReceived was stored by the recorder
	Err      error
}
