package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestPlayer_RoundTripTiming(t *testing.T) {
	const tolerance = 30 * time.Millisecond
	offsets := []time.Duration{0, 100 * time.Millisecond, 250 * time.Millisecond}

	sink := &testSink{}
	p := NewPlayer(30*time.Millisecond, nil, nil)
	if err := p.Play(recordingAt(offsets...), sink, false); err != nil {
		t.Fatal(err)
	}
	if err := waitDone(t, p.Wait, 2*time.Second); err != nil {
		t.Fatal(err)
	}

	times := sink.Times()
	if len(times) != len(offsets) {
		t.Fatalf("sent %d events, want %d", len(times), len(offsets))
	}
	for i, off := range offsets {
		got := times[i].Sub(times[0])
		if diff := (got - off).Abs(); diff > tolerance {
			t.Errorf("event %d arrived at +%s, want +%s (±%s)", i, got, off, tolerance)
		}
	}
}

func TestPlayer_CancelBeforeFirstEvent(t *testing.T) {
	sink := &testSink{}
	p := NewPlayer(DefaultPollQuantum, nil, nil)
	if err := p.Play(recordingAt(10*time.Second), sink, false); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	p.Stop()

	if err := waitDone(t, p.Wait, DefaultPollQuantum); err != nil {
		t.Fatal(err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after stop")
	}
	if n := len(sink.Messages()); n != 0 {
		t.Errorf("sent %d events, want 0", n)
	}
}

func TestPlayer_LoopStopsAfterFive(t *testing.T) {
	rec := recordingAt(0, 10*time.Millisecond)
	p := NewPlayer(DefaultPollQuantum, nil, nil)
	sink := &testSink{}
	sink.onSend = func(n int) {
		if n == 5 {
			p.Stop()
		}
	}

	if err := p.Play(rec, sink, true); err != nil {
		t.Fatal(err)
	}
	if err := waitDone(t, p.Wait, 2*time.Second); err != nil {
		t.Fatal(err)
	}

	got := sink.Messages()
	if len(got) != 5 {
		t.Fatalf("sent %d events, want 5", len(got))
	}
	for i, msg := range got {
		want := rec[i%2].Msg
		if !bytes.Equal(msg, want) {
			t.Errorf("event %d = % X, want % X", i, []byte(msg), []byte(want))
		}
	}
}

func TestPlayer_RejectsSecondRun(t *testing.T) {
	p := NewPlayer(DefaultPollQuantum, nil, nil)
	if err := p.Play(recordingAt(10*time.Second), &testSink{}, false); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	if err := p.Play(recordingAt(0), &testSink{}, false); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestPlayer_Validation(t *testing.T) {
	p := NewPlayer(DefaultPollQuantum, nil, nil)

	if err := p.Play(recordingAt(0), nil, false); !errors.Is(err, ErrNoSinkConfigured) {
		t.Errorf("nil sink: err = %v, want ErrNoSinkConfigured", err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after rejected start")
	}
}

func TestPlayer_LoopWithoutDurationParks(t *testing.T) {
	const quantum = 40 * time.Millisecond
	p := NewPlayer(quantum, nil, nil)
	sink := &testSink{}

	if err := p.Play(recordingAt(0, 0), sink, true); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5*quantum + quantum/2)
	p.Stop()
	if err := waitDone(t, p.Wait, time.Second); err != nil {
		t.Fatal(err)
	}

	// one pass of two events per quantum, not a busy loop
	n := len(sink.Messages())
	if n < 4 || n > 14 {
		t.Errorf("sent %d events in ~5 quanta, want between 4 and 14", n)
	}
}

type panicSink struct{}

func (panicSink) Send(gomidi.Message) error { panic("boom") }

func TestPlayer_PanicInLoopCleansUp(t *testing.T) {
	var notices noticeLog
	p := NewPlayer(DefaultPollQuantum, nil, notices.add)

	if err := p.Play(recordingAt(0), panicSink{}, false); err != nil {
		t.Fatal(err)
	}
	err := waitDone(t, p.Wait, time.Second)
	if err == nil || !strings.Contains(err.Error(), "playback panic") {
		t.Errorf("Wait() = %v, want a playback panic error", err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after panic")
	}
	if notices.Count(PlaybackFailed) != 1 {
		t.Errorf("notices = %v, want one playback_failed", notices.Kinds())
	}

	// the player is usable again
	sink := &testSink{}
	if err := p.Play(recordingAt(0), sink, false); err != nil {
		t.Fatalf("Play after panic: %v", err)
	}
	if err := waitDone(t, p.Wait, time.Second); err != nil {
		t.Fatal(err)
	}
	if len(sink.Messages()) != 1 {
		t.Errorf("sent %d events after recovery, want 1", len(sink.Messages()))
	}
}

func TestPlayer_SendFailureEndsRun(t *testing.T) {
	var notices noticeLog
	p := NewPlayer(DefaultPollQuantum, nil, notices.add)

	if err := p.Play(recordingAt(0, time.Millisecond), &testSink{err: errSinkDown}, false); err != nil {
		t.Fatal(err)
	}
	err := waitDone(t, p.Wait, time.Second)
	if !errors.Is(err, errSinkDown) {
		t.Errorf("Wait() = %v, want %v", err, errSinkDown)
	}
	if !errors.Is(p.Err(), errSinkDown) {
		t.Errorf("Err() = %v, want %v", p.Err(), errSinkDown)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after failure")
	}
	if notices.Count(PlaybackFailed) != 1 {
		t.Errorf("notices = %v, want one playback_failed", notices.Kinds())
	}
}

func TestPlayer_StopIdleIsSafe(t *testing.T) {
	p := NewPlayer(0, nil, nil)
	p.Stop()
	p.Stop()
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() on idle player = %v", err)
	}
}

func TestPlayer_Notices(t *testing.T) {
	var notices noticeLog
	p := NewPlayer(DefaultPollQuantum, nil, notices.add)

	p.Play(recordingAt(0, time.Millisecond), &testSink{}, false)
	waitDone(t, p.Wait, time.Second)

	want := []NoticeKind{PlaybackStarted, PlaybackEvent, PlaybackEvent, PlaybackStopped}
	got := notices.Kinds()
	if len(got) != len(want) {
		t.Fatalf("notices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notice %d = %s, want %s", i, got[i], want[i])
		}
	}
}
