package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"
)

// ErrPortNotFound is returned when no port matches a name or index
var ErrPortNotFound = errors.New("midi port not found")

// Source delivers every received message to its subscribers, once each.
type Source interface {
	Subscribe(fn func(msg gomidi.Message)) (unsubscribe func())
}

// Sink transmits one message now.
type Sink interface {
	Send(msg gomidi.Message) error
}

// SinkFunc adapts a plain send func (like the one gomidi.SendTo returns) to Sink
type SinkFunc func(msg gomidi.Message) error

// Send calls f(msg)
func (f SinkFunc) Send(msg gomidi.Message) error { return f(msg) }

// InPort is an input port opened through gomidi. All subscribers share one
// underlying listener.
type InPort struct {
	name string
	port drivers.In
	stop func()
	bus  Bus[gomidi.Message]
	log  *zap.Logger

	closeOnce sync.Once
}

// OpenInPort opens an input port by exact name, index, or case-insensitive
// substring, in that order of preference.
func OpenInPort(ref string, log *zap.Logger) (*InPort, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := resolvePort([]drivers.In(gomidi.GetInPorts()), ref)
	if err != nil {
		return nil, err
	}

	p := &InPort{name: port.String(), port: port, log: log}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		// the driver may reuse its buffer
		p.bus.Publish(Clone(msg))
	}, gomidi.UseSysEx())
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", p.name, err)
	}
	p.stop = stop
	log.Info("input port opened", zap.String("port", p.name))
	return p, nil
}

// Name returns the driver's port name
func (p *InPort) Name() string {
	return p.name
}

// Subscribe registers fn for every message received on the port
func (p *InPort) Subscribe(fn func(msg gomidi.Message)) func() {
	return p.bus.Subscribe(fn)
}

// Close stops listening and closes the port
func (p *InPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		err = p.port.Close()
		p.log.Info("input port closed", zap.String("port", p.name))
	})
	return err
}

// OutPort is an output port opened through gomidi. Sends are serialised.
type OutPort struct {
	name string
	port drivers.Out
	log  *zap.Logger

	mu   sync.Mutex
	send func(gomidi.Message) error

	closeOnce sync.Once
}

// OpenOutPort opens an output port, resolving ref like OpenInPort
func OpenOutPort(ref string, log *zap.Logger) (*OutPort, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := resolvePort([]drivers.Out(gomidi.GetOutPorts()), ref)
	if err != nil {
		return nil, err
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", port.String(), err)
	}
	log.Info("output port opened", zap.String("port", port.String()))
	return &OutPort{name: port.String(), port: port, send: send, log: log}, nil
}

// Name returns the driver's port name
func (p *OutPort) Name() string {
	return p.name
}

// Send transmits msg. Sends are serialised per port.
func (p *OutPort) Send(msg gomidi.Message) error {
	p.mu.Lock()
	err := p.send(msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("send to %q: %w", p.name, err)
	}
	return nil
}

// Close closes the port
func (p *OutPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		err = p.port.Close()
		p.log.Info("output port closed", zap.String("port", p.name))
	})
	return err
}

// ListPorts returns the names of all input and output ports
func ListPorts() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// CloseDriver releases the MIDI driver. Call once on exit.
func CloseDriver() {
	gomidi.CloseDriver()
}

func resolvePort[P fmt.Stringer](ports []P, ref string) (P, error) {
	var zero P
	if ref == "" {
		return zero, fmt.Errorf("%w: empty port reference", ErrPortNotFound)
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	idx, err := MatchPort(names, ref)
	if err != nil {
		return zero, err
	}
	return ports[idx], nil
}

// MatchPort picks a port from names by exact name, then index, then
// case-insensitive substring.
func MatchPort(names []string, ref string) (int, error) {
	for i, name := range names {
		if name == ref {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 0 && n < len(names) {
			return n, nil
		}
		return -1, fmt.Errorf("%w: index %d out of range (0-%d)", ErrPortNotFound, n, len(names)-1)
	}
	lower := strings.ToLower(ref)
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), lower) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in %v", ErrPortNotFound, ref, names)
}
