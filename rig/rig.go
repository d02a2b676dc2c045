package rig

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go-recplay/engine"
	"go-recplay/midi"
)

// Input is an opened input port
type Input interface {
	midi.Source
	Name() string
	Close() error
}

// Output is an opened output port
type Output interface {
	midi.Sink
	Name() string
	Close() error
}

// Openers open ports by reference (name, index or substring)
type Openers struct {
	In  func(ref string) (Input, error)
	Out func(ref string) (Output, error)
}

// DriverOpeners opens real ports through the MIDI driver
func DriverOpeners(log *zap.Logger) Openers {
	return Openers{
		In: func(ref string) (Input, error) {
			p, err := midi.OpenInPort(ref, log.Named("in"))
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Out: func(ref string) (Output, error) {
			p, err := midi.OpenOutPort(ref, log.Named("out"))
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

// Rig owns the opened ports and keeps the session wired to them. Swapping a
// port opens the new one before the old one is closed.
type Rig struct {
	session *engine.Session
	open    Openers
	log     *zap.Logger

	mu       sync.Mutex
	in       Input
	out      Output
	override *uint8
}

// New creates a rig around session with no ports open
func New(session *engine.Session, open Openers, log *zap.Logger) *Rig {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rig{session: session, open: open, log: log}
}

// Session returns the engine session the rig drives
func (r *Rig) Session() *engine.Session {
	return r.session
}

// sink returns r.out as a Sink, nil when no output is open
func (r *Rig) sink() midi.Sink {
	if r.out == nil {
		return nil
	}
	return r.out
}

// SetInput opens ref and routes it through the session
func (r *Rig) SetInput(ref string) error {
	in, err := r.open.In(ref)
	if err != nil {
		return fmt.Errorf("input %q: %w", ref, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.session.SetForwarding(in, r.sink(), r.override); err != nil {
		in.Close()
		return err
	}
	old := r.in
	r.in = in
	if old != nil {
		old.Close()
	}
	r.log.Info("input selected", zap.String("port", in.Name()))
	return nil
}

// SetOutput opens ref and makes it the live and playback sink. Playback to
// the old output is stopped first.
func (r *Rig) SetOutput(ref string) error {
	out, err := r.open.Out(ref)
	if err != nil {
		return fmt.Errorf("output %q: %w", ref, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.session.SwapSink(out, r.override); err != nil {
		out.Close()
		return err
	}
	old := r.out
	r.out = out
	if old != nil {
		old.Close()
	}
	r.log.Info("output selected", zap.String("port", out.Name()))
	return nil
}

// SetOverride forces live traffic onto ch, or passes channels through when
// ch is nil.
func (r *Rig) SetOverride(ch *uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.session.SetSink(r.sink(), ch); err != nil {
		return err
	}
	r.override = ch
	return nil
}

// CycleOverride steps off, 0, 1 .. 15, off
func (r *Rig) CycleOverride() (*uint8, error) {
	r.mu.Lock()
	cur := r.override
	r.mu.Unlock()

	var next *uint8
	switch {
	case cur == nil:
		ch := uint8(0)
		next = &ch
	case *cur < midi.NumChannels-1:
		ch := *cur + 1
		next = &ch
	}
	return next, r.SetOverride(next)
}

// Override returns the channel override, if any
func (r *Rig) Override() *uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.override
}

// Names returns the names of the open ports, empty when closed
func (r *Rig) Names() (in, out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.in != nil {
		in = r.in.Name()
	}
	if r.out != nil {
		out = r.out.Name()
	}
	return in, out
}

// Output returns the open output, or nil
func (r *Rig) Output() Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

// Close shuts the session down and closes both ports
func (r *Rig) Close() error {
	err := r.session.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	if r.in != nil {
		errs = append(errs, r.in.Close())
		r.in = nil
	}
	if r.out != nil {
		for ch := uint8(0); ch < midi.NumChannels; ch++ {
			r.out.Send(midi.AllNotesOff(ch))
		}
		errs = append(errs, r.out.Close())
		r.out = nil
	}
	return errors.Join(errs...)
}

// NextName returns the name after current in names, wrapping around. With
// current absent it returns the first name.
func NextName(names []string, current string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	for i, n := range names {
		if n == current {
			return names[(i+1)%len(names)], true
		}
	}
	return names[0], true
}
