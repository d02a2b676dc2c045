package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-recplay/midi"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var errSinkDown = errors.New("sink down")

// testSink records every message with its arrival time
type testSink struct {
	mu     sync.Mutex
	msgs   []gomidi.Message
	times  []time.Time
	err    error
	onSend func(n int)
}

func (s *testSink) Send(msg gomidi.Message) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	s.times = append(s.times, time.Now())
	n := len(s.msgs)
	fn := s.onSend
	s.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return nil
}

func (s *testSink) Messages() []gomidi.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gomidi.Message(nil), s.msgs...)
}

func (s *testSink) Times() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.times...)
}

// testSource is a Source driven by the test
type testSource struct {
	midi.Bus[gomidi.Message]
}

func (s *testSource) Emit(msg gomidi.Message) {
	s.Publish(msg)
}

// fakeClock only moves when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// noticeLog collects notices from a session
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) Kinds() []NoticeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]NoticeKind, len(l.notices))
	for i, n := range l.notices {
		kinds[i] = n.Kind
	}
	return kinds
}

func (l *noticeLog) Count(kind NoticeKind) int {
	n := 0
	for _, k := range l.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func waitDone(t *testing.T, wait func() error, within time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(within):
		t.Fatalf("did not finish within %s", within)
		return nil
	}
}

func recordingAt(offsets ...time.Duration) Recording {
	rec := make(Recording, len(offsets))
	for i, off := range offsets {
		rec[i] = TimedEvent{Offset: off, Msg: gomidi.NoteOn(0, uint8(60+i), 100)}
	}
	return rec
}
