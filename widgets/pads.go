package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8, symbol rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(symbol))
}

// ChannelStrip shows recent activity on the 16 MIDI channels
type ChannelStrip struct {
	Heat [16]float64 // 0 quiet .. 1 just active
}

// Hit marks a channel as just active
func (s *ChannelStrip) Hit(ch uint8) {
	if ch < 16 {
		s.Heat[ch] = 1
	}
}

// Decay fades every channel by f (0-1)
func (s *ChannelStrip) Decay(f float64) {
	for i := range s.Heat {
		s.Heat[i] *= 1 - f
		if s.Heat[i] < 0.05 {
			s.Heat[i] = 0
		}
	}
}

// Render draws the strip with a numbered ruler underneath. color maps heat
// to a pad color.
func (s *ChannelStrip) Render(color func(heat float64) [3]uint8, solid, empty rune) string {
	var pads, ruler strings.Builder
	for ch, heat := range s.Heat {
		if ch > 0 {
			pads.WriteString(" ")
			ruler.WriteString(" ")
		}
		sym := empty
		if heat > 0 {
			sym = solid
		}
		pads.WriteString(RenderPad(color(heat), sym))
		ruler.WriteString(fmt.Sprintf("%x", ch))
	}
	return pads.String() + "\n" + ruler.String()
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, symbol rune, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color, symbol), name, desc)
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
