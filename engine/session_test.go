package engine

import (
	"bytes"
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-recplay/midi"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *testSource, *testSink) {
	t.Helper()
	s := NewSession(opts...)
	src := &testSource{}
	sink := &testSink{}
	if err := s.SetForwarding(src, sink, nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, src, sink
}

func TestSession_PlayWhileRecording(t *testing.T) {
	s, src, sink := newTestSession(t)
	if err := s.StartRecording(); err != nil {
		t.Fatal(err)
	}
	src.Emit(gomidi.NoteOn(0, 60, 100))

	err := s.StartPlaying(recordingAt(0), sink, false)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if !s.IsRecording() || s.IsPlaying() {
		t.Errorf("state changed: recording=%v playing=%v", s.IsRecording(), s.IsPlaying())
	}
	if s.CapturedLen() != 1 {
		t.Errorf("CapturedLen() = %d, want 1", s.CapturedLen())
	}
}

func TestSession_RecordWhilePlaying(t *testing.T) {
	s, _, sink := newTestSession(t)
	if err := s.StartPlaying(recordingAt(10*time.Second), sink, false); err != nil {
		t.Fatal(err)
	}

	err := s.StartRecording()
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if s.IsRecording() || !s.IsPlaying() {
		t.Errorf("state changed: recording=%v playing=%v", s.IsRecording(), s.IsPlaying())
	}

	s.StopPlaying()
	waitDone(t, s.Wait, DefaultPollQuantum)
	if err := s.StartRecording(); err != nil {
		t.Errorf("StartRecording after stop: %v", err)
	}
}

func TestSession_StopRecordingAppendsAllNotesOff(t *testing.T) {
	clock := newFakeClock()
	s, src, _ := newTestSession(t, WithClock(clock.Now))

	s.StartRecording()
	src.Emit(gomidi.NoteOn(2, 60, 100))
	clock.Advance(120 * time.Millisecond)
	src.Emit(gomidi.NoteOff(2, 60))
	clock.Advance(30 * time.Millisecond)

	rec := s.StopRecording()
	if len(rec) != 2+midi.NumChannels {
		t.Fatalf("len = %d, want %d", len(rec), 2+midi.NumChannels)
	}
	last := rec[1].Offset
	for i, ev := range rec[len(rec)-midi.NumChannels:] {
		ch, ok := midi.Channel(ev.Msg)
		if !ok || int(ch) != i || !midi.IsAllNotesOff(ev.Msg) {
			t.Errorf("tail[%d] = % X, want all-notes-off on channel %d", i, []byte(ev.Msg), i)
		}
		if ev.Offset < last {
			t.Errorf("tail[%d] offset %s < last captured %s", i, ev.Offset, last)
		}
	}
	if got := s.Recording(); len(got) != len(rec) {
		t.Errorf("Recording() len = %d, want %d", len(got), len(rec))
	}
}

func TestSession_StopRecordingIdle(t *testing.T) {
	s, _, _ := newTestSession(t)
	if rec := s.StopRecording(); rec != nil {
		t.Errorf("StopRecording() before any capture = %v, want nil", rec)
	}

	s.StartRecording()
	first := s.StopRecording()
	again := s.StopRecording()
	if len(again) != len(first) {
		t.Errorf("second StopRecording() len = %d, want %d", len(again), len(first))
	}
}

func TestSession_CapturesRewrittenChannel(t *testing.T) {
	s, src, sink := newTestSession(t)
	if err := s.SetForwarding(src, sink, u8(3)); err != nil {
		t.Fatal(err)
	}

	s.StartRecording()
	src.Emit(gomidi.NoteOn(7, 60, 100))
	rec := s.StopRecording()

	want := gomidi.NoteOn(3, 60, 100)
	if !bytes.Equal(rec[0].Msg, want) {
		t.Errorf("captured % X, want % X", []byte(rec[0].Msg), []byte(want))
	}
	got := sink.Messages()
	if len(got) != 1 || !bytes.Equal(got[0], want) {
		t.Errorf("forwarded %v, want [% X]", got, []byte(want))
	}
}

func TestSession_ForwardNotices(t *testing.T) {
	tests := []struct {
		name string
		sink *testSink
		want NoticeKind
	}{
		{"forwarded", &testSink{}, EventForwarded},
		{"dropped without sink", nil, EventDropped},
		{"send failure", &testSink{err: errSinkDown}, ForwardFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			defer s.Close()
			src := &testSource{}

			var sink midi.Sink
			if tt.sink != nil {
				sink = tt.sink
			}
			if err := s.SetForwarding(src, sink, nil); err != nil {
				t.Fatal(err)
			}
			var notices noticeLog
			s.Subscribe(notices.add)

			src.Emit(gomidi.NoteOn(0, 60, 100))

			got := notices.Kinds()
			if len(got) != 2 || got[0] != EventReceived || got[1] != tt.want {
				t.Errorf("notices = %v, want [event_received %s]", got, tt.want)
			}
		})
	}
}

func TestSession_RecordsWithoutSink(t *testing.T) {
	s := NewSession()
	defer s.Close()
	src := &testSource{}
	s.SetForwarding(src, nil, nil)

	s.StartRecording()
	src.Emit(gomidi.NoteOn(0, 60, 100))
	rec := s.StopRecording()
	if len(rec) != 1+midi.NumChannels {
		t.Errorf("len = %d, want %d", len(rec), 1+midi.NumChannels)
	}
}

func TestSession_Preconditions(t *testing.T) {
	s := NewSession()
	defer s.Close()

	if err := s.StartRecording(); !errors.Is(err, ErrNoSourceConfigured) {
		t.Errorf("record without source: err = %v", err)
	}
	if err := s.SetForwarding(nil, &testSink{}, nil); !errors.Is(err, ErrNoSourceConfigured) {
		t.Errorf("nil source: err = %v", err)
	}
	if err := s.SetForwarding(&testSource{}, nil, u8(16)); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("bad override: err = %v", err)
	}
	if err := s.StartPlaying(nil, &testSink{}, false); !errors.Is(err, ErrInvalidState) {
		t.Errorf("play with no recording: err = %v", err)
	}
	if err := s.StartPlaying(recordingAt(0), nil, false); !errors.Is(err, ErrNoSinkConfigured) {
		t.Errorf("play with no sink: err = %v", err)
	}
}

func TestSession_PlaysStoredRecordingToLiveSink(t *testing.T) {
	s, src, sink := newTestSession(t)

	s.StartRecording()
	src.Emit(gomidi.NoteOn(0, 60, 100))
	rec := s.StopRecording()
	before := len(sink.Messages())

	if err := s.StartPlaying(nil, nil, false); err != nil {
		t.Fatal(err)
	}
	if err := waitDone(t, s.Wait, time.Second); err != nil {
		t.Fatal(err)
	}
	if got := len(sink.Messages()) - before; got != len(rec) {
		t.Errorf("played %d events, want %d", got, len(rec))
	}
}

func TestSession_LiveMirrorDuringPlayback(t *testing.T) {
	s, src, sink := newTestSession(t)
	if err := s.StartPlaying(recordingAt(10*time.Second), sink, false); err != nil {
		t.Fatal(err)
	}
	src.Emit(gomidi.NoteOn(5, 40, 80))

	if got := sink.Messages(); len(got) != 1 {
		t.Errorf("live path sent %d events during playback, want 1", len(got))
	}
}

func TestSession_DetachStopsDelivery(t *testing.T) {
	s, src, sink := newTestSession(t)
	s.Detach()
	src.Emit(gomidi.NoteOn(0, 60, 100))

	if n := len(sink.Messages()); n != 0 {
		t.Errorf("sent %d after detach, want 0", n)
	}
	if src.Len() != 0 {
		t.Errorf("source still has %d subscribers", src.Len())
	}
}

func TestSession_SwapSinkStopsPlayback(t *testing.T) {
	s, _, oldSink := newTestSession(t)
	if err := s.StartPlaying(recordingAt(0, 20*time.Millisecond), nil, true); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	newSink := &testSink{}
	if err := s.SwapSink(newSink, nil); err != nil {
		t.Fatal(err)
	}
	if s.IsPlaying() {
		t.Fatal("IsPlaying() = true after SwapSink returned")
	}
	sentOld := len(oldSink.Messages())

	if err := s.StartPlaying(nil, nil, false); err != nil {
		t.Fatal(err)
	}
	if err := waitDone(t, s.Wait, time.Second); err != nil {
		t.Fatal(err)
	}
	if n := len(newSink.Messages()); n != 2 {
		t.Errorf("new sink got %d events, want 2", n)
	}
	if n := len(oldSink.Messages()); n != sentOld {
		t.Errorf("old sink got %d events after the swap", n-sentOld)
	}
}

func TestSession_SwapSinkBlocksConcurrentPlayback(t *testing.T) {
	s, _, oldSink := newTestSession(t)
	if err := s.StartPlaying(recordingAt(0, 5*time.Millisecond), nil, true); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			s.StartPlaying(nil, nil, true)
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	newSink := &testSink{}
	if err := s.SwapSink(newSink, nil); err != nil {
		t.Fatal(err)
	}
	sentOld := len(oldSink.Messages())

	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
	s.StopPlaying()
	waitDone(t, s.Wait, time.Second)

	if n := len(oldSink.Messages()); n != sentOld {
		t.Errorf("old sink got %d events after the swap", n-sentOld)
	}
	if len(newSink.Messages()) == 0 {
		t.Error("new sink got nothing; playback never restarted after the swap")
	}
}

func TestSession_SwapSinkInvalidOverride(t *testing.T) {
	s, _, sink := newTestSession(t)
	if err := s.SwapSink(&testSink{}, u8(16)); !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("err = %v, want ErrInvalidChannel", err)
	}
	if s.link.Sink() != sink {
		t.Error("live sink replaced by a rejected swap")
	}
}
