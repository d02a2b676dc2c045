package midi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// noteNumA0 is the note number of A0, usually the lowest key on a device
const noteNumA0 = 21

var noteOffsets = map[string]int{
	"Ab": 11, "A": 0, "A#": 1,
	"Bb": 1, "B": 2,
	"C": 3, "C#": 4,
	"Db": 4, "D": 5, "D#": 6,
	"Eb": 6, "E": 7,
	"F": 8, "F#": 9,
	"Gb": 9, "G": 10, "G#": 11,
}

var noteNameRe = regexp.MustCompile(`^([A-Ga-g][#b]?)(-?\d)$`)

// NoteNumber converts a name like "C3" or "F#-1" to a MIDI note number.
// Octaves count from A, matching the A0 = 21 convention.
func NoteNumber(name string) (uint8, error) {
	m := noteNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("unable to parse note name %q", name)
	}
	letter := strings.ToUpper(m[1][:1]) + m[1][1:]
	offset, ok := noteOffsets[letter]
	if !ok {
		return 0, fmt.Errorf("unknown note letter %q", m[1])
	}
	octave, _ := strconv.Atoi(m[2])
	n := noteNumA0 + offset + 12*octave
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q out of range (%d)", name, n)
	}
	return uint8(n), nil
}

// PlayNote sends a note-on now and the matching note-off after dur.
// It doesn't block; the note-off is still sent if ctx is cancelled first.
func PlayNote(ctx context.Context, sink Sink, channel, note, velocity uint8, dur time.Duration) error {
	if err := sink.Send(gomidi.NoteOn(channel, note, velocity)); err != nil {
		return err
	}
	go func() {
		timer := time.NewTimer(dur)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		sink.Send(gomidi.NoteOff(channel, note))
	}()
	return nil
}

// SelectPatch sends the bank-select-high, bank-select-low, program triple
func SelectPatch(sink Sink, channel, msb, lsb, program uint8) error {
	msgs := []gomidi.Message{
		gomidi.ControlChange(channel, CCBankSelectMSB, msb),
		gomidi.ControlChange(channel, CCBankSelectLSB, lsb),
		gomidi.ProgramChange(channel, program),
	}
	for _, msg := range msgs {
		if err := sink.Send(msg); err != nil {
			return fmt.Errorf("select patch %d/%d/%d on ch %d: %w", msb, lsb, program, channel+1, err)
		}
	}
	return nil
}
