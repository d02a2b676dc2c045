package midi

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PortsEvent is emitted when the set of available ports changes
type PortsEvent struct {
	Ins  []string
	Outs []string
}

// Lister returns the current input and output port names
type Lister func() (ins, outs []string)

// Watcher polls for MIDI ports so devices can be hot-plugged
type Watcher struct {
	list     Lister
	pollRate time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu   sync.RWMutex
	ins  []string
	outs []string

	events chan PortsEvent
}

// NewWatcher creates a watcher. A nil lister uses ListPorts.
func NewWatcher(list Lister, pollRate time.Duration, log *zap.Logger) *Watcher {
	if list == nil {
		list = ListPorts
	}
	if pollRate <= 0 {
		pollRate = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		list:     list,
		pollRate: pollRate,
		timeout:  3 * time.Second,
		log:      log,
		events:   make(chan PortsEvent, 16),
	}
}

// Events returns a channel of port changes. Closed when Run returns.
func (w *Watcher) Events() <-chan PortsEvent {
	return w.events
}

// Ports returns a snapshot of the last scan
func (w *Watcher) Ports() (ins, outs []string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.ins), slices.Clone(w.outs)
}

// Run polls until ctx is done (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	// CoreMIDI can hang listing ports
	type result struct{ ins, outs []string }
	ch := make(chan result, 1)
	go func() {
		ins, outs := w.list()
		ch <- result{ins, outs}
	}()

	var r result
	select {
	case r = <-ch:
	case <-time.After(w.timeout):
		w.log.Warn("port scan timed out", zap.Duration("timeout", w.timeout))
		return
	case <-ctx.Done():
		return
	}

	w.mu.Lock()
	changed := !slices.Equal(r.ins, w.ins) || !slices.Equal(r.outs, w.outs)
	if changed {
		w.ins, w.outs = r.ins, r.outs
	}
	w.mu.Unlock()

	if !changed {
		return
	}
	w.log.Debug("ports changed", zap.Strings("ins", r.ins), zap.Strings("outs", r.outs))
	select {
	case w.events <- PortsEvent{Ins: slices.Clone(r.ins), Outs: slices.Clone(r.outs)}:
	case <-ctx.Done():
	}
}
