package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-recplay/midi"
)

// DefaultPollQuantum bounds how long a stop can go unnoticed by the
// playback loop.
const DefaultPollQuantum = 300 * time.Millisecond

// Player replays a Recording on a background goroutine, one run at a time.
type Player struct {
	quantum time.Duration
	log     *zap.Logger
	notify  func(Notice)

	mu   sync.Mutex
	run  *playRun // active run, nil when idle
	last *playRun // most recent finished run
}

type playRun struct {
	rec  Recording
	sink midi.Sink
	loop bool

	cancelled atomic.Bool
	stopCh    chan struct{}
	stopOnce  sync.Once

	done chan struct{}
	err  error // set before done is closed
	sent int
}

func (r *playRun) cancel() {
	r.stopOnce.Do(func() {
		r.cancelled.Store(true)
		close(r.stopCh)
	})
}

// NewPlayer creates an idle player. quantum <= 0 uses DefaultPollQuantum.
func NewPlayer(quantum time.Duration, log *zap.Logger, notify func(Notice)) *Player {
	if quantum <= 0 {
		quantum = DefaultPollQuantum
	}
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Player{quantum: quantum, log: log, notify: notify}
}

// Play starts replaying rec to sink and returns immediately. With loop set
// the recording repeats until Stop. A recording with no duration repeats
// once per quantum.
func (p *Player) Play(rec Recording, sink midi.Sink, loop bool) error {
	if sink == nil {
		return fmt.Errorf("%w: playback needs an output", ErrNoSinkConfigured)
	}

	p.mu.Lock()
	if p.run != nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: playback already running", ErrInvalidState)
	}
	r := &playRun{
		rec:    rec,
		sink:   sink,
		loop:   loop,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.run = r
	p.mu.Unlock()

	p.log.Info("playback started",
		zap.Int("events", rec.Len()),
		zap.Duration("duration", rec.Duration()),
		zap.Bool("loop", loop))

	go p.play(r)
	return nil
}

// Stop asks the running loop to finish and returns without waiting. The
// loop observes it within one polling quantum. Safe to call when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	r := p.run
	p.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

// IsPlaying reports whether a playback goroutine is alive
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil
}

// Wait blocks until the current run ends and returns its error. When idle it
// returns the error of the last run.
func (p *Player) Wait() error {
	p.mu.Lock()
	r := p.run
	if r == nil {
		r = p.last
	}
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Err returns the error that ended the last finished run
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	return p.last.err
}

func (p *Player) play(r *playRun) {
	defer p.finish(r)
	p.notify(Notice{Kind: PlaybackStarted, At: time.Now(), Loop: r.loop, Events: r.rec.Len()})

	for {
		loopStart := time.Now()
		for _, ev := range r.rec {
			if !p.waitUntil(r, loopStart.Add(ev.Offset)) {
				return
			}
			if err := r.sink.Send(ev.Msg); err != nil {
				r.err = fmt.Errorf("playback send at %s: %w", ev.Offset, err)
				return
			}
			r.sent++
			p.notify(Notice{Kind: PlaybackEvent, At: time.Now(), Msg: ev.Msg, Offset: ev.Offset, Loop: r.loop})
		}
		if !r.loop || r.cancelled.Load() {
			return
		}
		if r.rec.Duration() == 0 && !p.waitUntil(r, loopStart.Add(p.quantum)) {
			return
		}
	}
}

// waitUntil parks until target in slices of at most one quantum. It returns
// false once the run is cancelled.
func (p *Player) waitUntil(r *playRun, target time.Time) bool {
	for {
		if r.cancelled.Load() {
			return false
		}
		remaining := time.Until(target)
		if remaining <= 0 {
			return true
		}
		if remaining > p.quantum {
			remaining = p.quantum
		}
		timer := time.NewTimer(remaining)
		select {
		case <-r.stopCh:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// finish always runs, even if the loop panicked, so state never sticks in
// Running.
func (p *Player) finish(r *playRun) {
	if v := recover(); v != nil {
		r.err = fmt.Errorf("playback panic: %v", v)
	}

	p.mu.Lock()
	if p.run == r {
		p.run = nil
	}
	p.last = r
	p.mu.Unlock()
	// waiters see the final notice before they wake
	defer close(r.done)

	if r.err != nil {
		p.log.Error("playback failed", zap.Error(r.err), zap.Int("sent", r.sent))
		p.notify(Notice{Kind: PlaybackFailed, At: time.Now(), Loop: r.loop, Err: r.err})
		return
	}
	p.log.Info("playback stopped",
		zap.Int("sent", r.sent),
		zap.Bool("cancelled", r.cancelled.Load()))
	p.notify(Notice{Kind: PlaybackStopped, At: time.Now(), Loop: r.loop})
}
