package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Transport lamps
	Record rune // ● capturing
	Play   rune // ▶ playing once
	Loop   rune // ↻ playing in a loop
	Stop   rune // ■ idle

	// Activity pads
	Solid rune // ■ channel seen recently
	Empty rune // □ channel quiet

	// Notice log
	In    rune // ← received
	Out   rune // → sent
	Fault rune // ✗ failure
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Record: '●',
			Play:   '▶',
			Loop:   '↻',
			Stop:   '■',

			Solid: '■',
			Empty: '□',

			In:    '←',
			Out:   '→',
			Fault: '✗',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) FG() lipgloss.Color {
	return t.Color(RoleFG)
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Color(RoleAccent)
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Color(RoleMuted)
}

func (t *Theme) Active() lipgloss.Color {
	return t.Color(RoleActive)
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Color(RoleWarning)
}

func (t *Theme) Success() lipgloss.Color {
	return t.Color(RoleSuccess)
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

// RGB returns raw RGB for any normalized value (for pads)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}
