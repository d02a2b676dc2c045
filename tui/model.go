package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-recplay/engine"
	"go-recplay/midi"
	"go-recplay/rig"
	"go-recplay/theme"
	"go-recplay/widgets"
)

const (
	tickRate      = 100 * time.Millisecond
	noticeBacklog = 256
)

var keys = []widgets.KeyBinding{
	{Key: "r", Desc: "record"},
	{Key: "p", Desc: "play"},
	{Key: "l", Desc: "loop"},
	{Key: "s", Desc: "stop"},
	{Key: "i/o", Desc: "input/output"},
	{Key: "c", Desc: "channel"},
	{Key: "?", Desc: "help"},
	{Key: "q", Desc: "quit"},
}

var helpSections = []widgets.KeySection{
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "r", Desc: "start/stop recording"},
		{Key: "p", Desc: "play the take once"},
		{Key: "l", Desc: "loop the take"},
		{Key: "s", Desc: "stop playback and recording"},
	}},
	{Title: "Routing", Keys: []widgets.KeyBinding{
		{Key: "i", Desc: "next input port"},
		{Key: "o", Desc: "next output port"},
		{Key: "c", Desc: "cycle channel override (thru, 0-15)"},
	}},
	{Title: "General", Keys: []widgets.KeyBinding{
		{Key: "?", Desc: "toggle this help"},
		{Key: "q", Desc: "quit"},
	}},
}

const meterWidth = 24

// counters tallies notices since start
type counters struct {
	received, forwarded, dropped, failed, played int
}

type Model struct {
	Rig     *rig.Rig
	Watcher *midi.Watcher
	Theme   *theme.Theme

	notices     chan engine.Notice
	unsubscribe func()

	log      []string
	maxLog   int
	counts   counters
	strip    *widgets.ChannelStrip
	ins      []string
	outs     []string
	playPos  time.Duration // offset of the last played event
	looping  bool
	status   string
	showHelp bool
	quitting bool
}

type NoticeMsg engine.Notice

type PortsMsg midi.PortsEvent

type tickMsg time.Time

// NewModel subscribes to the rig's session. Notices that arrive faster than
// the UI drains them are dropped.
func NewModel(r *rig.Rig, watcher *midi.Watcher, th *theme.Theme, logLines int) Model {
	if logLines <= 0 {
		logLines = 12
	}
	ch := make(chan engine.Notice, noticeBacklog)
	unsub := r.Session().Subscribe(func(n engine.Notice) {
		select {
		case ch <- n:
		default:
		}
	})
	return Model{
		Rig:         r,
		Watcher:     watcher,
		Theme:       th,
		notices:     ch,
		unsubscribe: unsub,
		maxLog:      logLines,
		strip:       &widgets.ChannelStrip{},
	}
}

// WithStatus returns m showing msg on the status line
func (m Model) WithStatus(msg string) Model {
	m.status = msg
	return m
}

func ListenForNotices(ch <-chan engine.Notice) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg(<-ch)
	}
}

func ListenForPorts(w *midi.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return PortsMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForNotices(m.notices), tick()}
	if m.Watcher != nil {
		cmds = append(cmds, ListenForPorts(m.Watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case NoticeMsg:
		m.observe(engine.Notice(msg))
		return m, ListenForNotices(m.notices)

	case PortsMsg:
		m.ins, m.outs = msg.Ins, msg.Outs
		return m, ListenForPorts(m.Watcher)

	case tickMsg:
		m.strip.Decay(0.15)
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	s := m.Rig.Session()
	m.status = ""

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit

	case "r":
		if s.IsRecording() {
			rec := s.StopRecording()
			m.status = fmt.Sprintf("recorded %d events (%s)", rec.Len(), widgets.FormatOffset(rec.Duration()))
		} else {
			m.setErr(s.StartRecording())
		}

	case "p", "l":
		m.setErr(s.StartPlaying(nil, nil, key == "l"))

	case "s":
		s.StopPlaying()
		if s.IsRecording() {
			s.StopRecording()
		}

	case "i":
		if name, ok := rig.NextName(m.ins, m.currentIn()); ok {
			m.setErr(m.Rig.SetInput(name))
		} else {
			m.status = "no inputs"
		}

	case "o":
		if name, ok := rig.NextName(m.outs, m.currentOut()); ok {
			m.setErr(m.Rig.SetOutput(name))
		} else {
			m.status = "no outputs"
		}

	case "c":
		_, err := m.Rig.CycleOverride()
		m.setErr(err)

	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

func (m Model) currentIn() string {
	in, _ := m.Rig.Names()
	return in
}

func (m Model) currentOut() string {
	_, out := m.Rig.Names()
	return out
}

func (m *Model) observe(n engine.Notice) {
	switch n.Kind {
	case engine.EventReceived:
		m.counts.received++
		if ch, ok := midi.Channel(n.Msg); ok {
			m.strip.Hit(ch)
		}
		return // the forward/drop notice that follows carries the log line
	case engine.EventForwarded:
		m.counts.forwarded++
	case engine.EventDropped:
		m.counts.dropped++
	case engine.ForwardFailed, engine.PlaybackFailed:
		m.counts.failed++
	case engine.PlaybackStarted:
		m.playPos = 0
		m.looping = n.Loop
	case engine.PlaybackEvent:
		m.counts.played++
		m.playPos = n.Offset
		if ch, ok := midi.Channel(n.Msg); ok {
			m.strip.Hit(ch)
		}
	}
	m.log = append(m.log, m.formatNotice(n))
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
}

func (m Model) formatNotice(n engine.Notice) string {
	sym := m.Theme.Symbols
	ts := n.At.Format("15:04:05.000")
	switch n.Kind {
	case engine.EventForwarded:
		return fmt.Sprintf("%s %c%c %s", ts, sym.In, sym.Out, n.Msg)
	case engine.EventDropped:
		return fmt.Sprintf("%s %c  %s", ts, sym.In, n.Msg)
	case engine.PlaybackEvent:
		return fmt.Sprintf("%s %c %s %s", ts, sym.Out, widgets.FormatOffset(n.Offset), n.Msg)
	case engine.RecordingStopped:
		return fmt.Sprintf("%s %s: %d events", ts, n.Kind, n.Events)
	case engine.ForwardFailed, engine.PlaybackFailed:
		return fmt.Sprintf("%s %c %s: %v", ts, sym.Fault, n.Kind, n.Err)
	default:
		return fmt.Sprintf("%s %s", ts, n.Kind)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Rig.Session()
	th := m.Theme
	sym := th.Symbols

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(th.FG())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	// Transport lamps
	recording, playing := s.IsRecording(), s.IsPlaying()
	playSym, playLabel := sym.Play, "PLAY"
	if playing && m.looping {
		playSym, playLabel = sym.Loop, "LOOP"
	}
	lamps := strings.Join([]string{
		widgets.RenderLamp(sym.Record, "REC", recording, th.Active(), th.Muted()),
		widgets.RenderLamp(playSym, playLabel, playing, th.Success(), th.Muted()),
		widgets.RenderLamp(sym.Stop, "STOP", !recording && !playing, th.FG(), th.Muted()),
	}, "  ")
	header := headerStyle.Render("go-recplay") + "  " + lamps

	// Ports and routing
	inName, outName := m.Rig.Names()
	override := "thru"
	if ch := m.Rig.Override(); ch != nil {
		override = fmt.Sprintf("ch %d", *ch)
	}
	ports := fgStyle.Render(fmt.Sprintf("in: %s  out: %s  channel: %s",
		orNone(inName), orNone(outName), override))

	// Recording summary
	rec := s.Recording()
	take := fmt.Sprintf("take: %d events %s", rec.Len(), widgets.FormatOffset(rec.Duration()))
	if recording {
		take = fmt.Sprintf("capturing: %d events", s.CapturedLen())
	} else if playing {
		take += " " + widgets.RenderMeter(int(m.playPos.Milliseconds()), int(rec.Duration().Milliseconds()), meterWidth)
	}
	counts := dimStyle.Render(fmt.Sprintf("rx %d  fwd %d  drop %d  play %d  err %d",
		m.counts.received, m.counts.forwarded, m.counts.dropped, m.counts.played, m.counts.failed))

	strip := m.strip.Render(func(heat float64) [3]uint8 {
		return th.RGB(0.2 + 0.8*heat)
	}, sym.Solid, sym.Empty)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(ports)
	out.WriteString("\n")
	out.WriteString(fgStyle.Render(take))
	out.WriteString("\n")
	out.WriteString(counts)
	out.WriteString("\n\n")
	out.WriteString(strip)
	out.WriteString("\n\n")
	if m.showHelp {
		out.WriteString(fgStyle.Render(widgets.RenderKeyHelp(helpSections)))
		out.WriteString("\n\n")
		out.WriteString(widgets.RenderLegendItem(th.RGB(0.2), sym.Empty, "idle", "no traffic on the channel"))
		out.WriteString("\n")
		out.WriteString(widgets.RenderLegendItem(th.RGB(1), sym.Solid, "active", "fades after each event"))
		out.WriteString("\n")
		if m.status != "" {
			out.WriteString(warnStyle.Render(m.status))
		}
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))
		return out.String()
	}
	for _, line := range m.log {
		out.WriteString(dimStyle.Render(line))
		out.WriteString("\n")
	}
	for i, n := 0, m.maxLog-len(m.log); i < n; i++ {
		out.WriteString("\n")
	}
	if m.status != "" {
		out.WriteString(warnStyle.Render(m.status))
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))

	return out.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
