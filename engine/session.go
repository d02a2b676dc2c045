package engine

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"go-recplay/midi"
)

// Session is the capture/forward/playback engine for one input and one
// output. Recording and playing are mutually exclusive; the live mirror runs
// regardless of either.
type Session struct {
	log      *zap.Logger
	link     *Link
	recorder *Recorder
	player   *Player
	notices  midi.Bus[Notice]

	mu          sync.Mutex // serialises state transitions and wiring
	source      midi.Source
	unsubscribe func()
	recording   Recording
	playSink    midi.Sink // last sink used for playback
}

// NewSession creates an idle, unwired session
func NewSession(opts ...Option) *Session {
	o := applyOptions(opts...)
	s := &Session{
		log:      o.log,
		link:     NewLink(),
		recorder: NewRecorder(o.now),
	}
	s.player = NewPlayer(o.quantum, o.log.Named("player"), s.notices.Publish)
	return s
}

// Subscribe registers fn for engine notices. fn runs synchronously on the
// goroutine that produced the notice and must not block or call Wait.
func (s *Session) Subscribe(fn func(Notice)) func() {
	return s.notices.Subscribe(fn)
}

// SetForwarding wires source to the session and mirrors it to sink, forcing
// channel messages onto override when it is non-nil. A nil sink leaves the
// live path idle; events are still captured while recording.
func (s *Session) SetForwarding(source midi.Source, sink midi.Sink, override *uint8) error {
	if source == nil {
		return fmt.Errorf("%w: forwarding needs an input", ErrNoSourceConfigured)
	}
	if override != nil && *override >= midi.NumChannels {
		return fmt.Errorf("%w: override %d (want 0-15)", ErrInvalidChannel, *override)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.link.Configure(sink, override); err != nil {
		return err
	}
	if source != s.source {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.source = source
		s.unsubscribe = source.Subscribe(s.deliver)
	}

	fields := []zap.Field{zap.Bool("sink", sink != nil)}
	if override != nil {
		fields = append(fields, zap.Uint8("override", *override))
	}
	s.log.Info("forwarding configured", fields...)
	return nil
}

// SetSink changes the live sink and override without touching the source
func (s *Session) SetSink(sink midi.Sink, override *uint8) error {
	return s.link.Configure(sink, override)
}

// SwapSink replaces the live sink and stops any playback first, waiting for
// it to end. The previous playback sink is forgotten. No playback can start
// until the swap is done, so the old sink may be closed once it returns.
func (s *Session) SwapSink(sink midi.Sink, override *uint8) error {
	if override != nil && *override >= midi.NumChannels {
		return fmt.Errorf("%w: override %d (want 0-15)", ErrInvalidChannel, *override)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player.IsPlaying() {
		s.player.Stop()
		if err := s.player.Wait(); err != nil {
			s.log.Warn("playback ended with error before sink swap", zap.Error(err))
		}
	}
	if err := s.link.Configure(sink, override); err != nil {
		return err
	}
	s.playSink = nil
	s.log.Info("sink swapped", zap.Bool("sink", sink != nil))
	return nil
}

// Detach unsubscribes from the source and clears the live sink
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.source = nil
	s.link.Configure(nil, nil)
	s.log.Info("forwarding detached")
}

// Override returns the live channel override, if any
func (s *Session) Override() (uint8, bool) {
	return s.link.Override()
}

// deliver runs on the source's callback goroutine for every received message
func (s *Session) deliver(msg gomidi.Message) {
	out, sent, err := s.link.Deliver(msg)
	offset, captured := s.recorder.Capture(out)

	now := time.Now()
	s.notices.Publish(Notice{Kind: EventReceived, At: now, Msg: out, Offset: offset, Captured: captured})
	switch {
	case err != nil:
		s.log.Error("forward failed", zap.Error(err))
		s.notices.Publish(Notice{Kind: ForwardFailed, At: now, Msg: out, Err: err})
	case sent:
		s.notices.Publish(Notice{Kind: EventForwarded, At: now, Msg: out})
	default:
		s.notices.Publish(Notice{Kind: EventDropped, At: now, Msg: out})
	}
}

// StartRecording begins a new capture, discarding nothing until StopRecording
// replaces the stored recording.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: recording needs an input", ErrNoSourceConfigured)
	}
	if s.player.IsPlaying() {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot record while playing", ErrInvalidState)
	}
	if err := s.recorder.Start(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.log.Info("recording started")
	s.notices.Publish(Notice{Kind: RecordingStarted, At: time.Now()})
	return nil
}

// StopRecording ends the capture and stores the result as the current
// recording. When not recording it is a no-op returning the current one.
func (s *Session) StopRecording() Recording {
	s.mu.Lock()
	rec, ok := s.recorder.Stop()
	if !ok {
		current := s.recording
		s.mu.Unlock()
		return current
	}
	s.recording = rec
	s.mu.Unlock()

	s.log.Info("recording stopped",
		zap.Int("events", rec.Len()),
		zap.Duration("duration", rec.Duration()))
	s.notices.Publish(Notice{Kind: RecordingStopped, At: time.Now(), Events: rec.Len(), Offset: rec.Duration()})
	return rec
}

// StartPlaying replays rec to sink. A nil rec reuses the current recording.
// A nil sink uses the live sink, or the previous playback sink when no live
// sink is set.
func (s *Session) StartPlaying(rec Recording, sink midi.Sink, loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder.IsRecording() {
		return fmt.Errorf("%w: cannot play while recording", ErrInvalidState)
	}
	if rec == nil {
		rec = s.recording
	}
	if rec == nil {
		return fmt.Errorf("%w: no recording to play", ErrInvalidState)
	}
	if sink == nil {
		sink = s.link.Sink()
	}
	if sink == nil {
		sink = s.playSink
	}
	if sink == nil {
		return fmt.Errorf("%w: playback needs an output", ErrNoSinkConfigured)
	}

	if err := s.player.Play(rec, sink, loop); err != nil {
		return err
	}
	s.recording = rec
	s.playSink = sink
	return nil
}

// StopPlaying asks playback to stop without waiting for it
func (s *Session) StopPlaying() {
	s.player.Stop()
}

// IsRecording reports whether a capture is in progress
func (s *Session) IsRecording() bool {
	return s.recorder.IsRecording()
}

// IsPlaying reports whether a playback goroutine is alive
func (s *Session) IsPlaying() bool {
	return s.player.IsPlaying()
}

// Recording returns the current recording (nil before the first capture)
func (s *Session) Recording() Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// CapturedLen returns how many events the in-progress capture holds
func (s *Session) CapturedLen() int {
	return s.recorder.Len()
}

// Wait blocks until the current playback run ends and returns its error
func (s *Session) Wait() error {
	return s.player.Wait()
}

// Close stops playback and recording, waits for the playback goroutine and
// detaches from the source.
func (s *Session) Close() error {
	s.StopPlaying()
	err := s.player.Wait()
	s.StopRecording()
	s.Detach()
	return err
}
