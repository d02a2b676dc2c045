package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderLamp renders a state lamp and its label. An unlit lamp uses off.
func RenderLamp(symbol rune, label string, lit bool, on, off lipgloss.Color) string {
	color := off
	if lit {
		color = on
	}
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%c %s", symbol, label))
}

// RenderMeter renders a bar of width cells filled to n/max
func RenderMeter(n, max, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if max > 0 {
		filled = n * width / max
	}
	filled = min(max0(filled), width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// FormatOffset renders an offset as m:ss.mmm
func FormatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}
