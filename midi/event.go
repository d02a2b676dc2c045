package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Channel-voice status nibbles
const (
	NoteOff       uint8 = 0x80
	NoteOn        uint8 = 0x90
	CC            uint8 = 0xB0
	ProgramChange uint8 = 0xC0
)

// Controller numbers used by the engine and device utilities
const (
	CCBankSelectMSB uint8 = 0
	CCBankSelectLSB uint8 = 32
	CCAllNotesOff   uint8 = 123
)

// NumChannels is the number of MIDI channels (0-15 on the wire)
const NumChannels = 16

// HasChannel reports whether msg is a channel-voice message (status 0x80-0xEF)
func HasChannel(msg gomidi.Message) bool {
	return len(msg) > 0 && msg[0] >= 0x80 && msg[0] <= 0xEF
}

// Channel returns the 0-based channel of msg, or false for system messages
func Channel(msg gomidi.Message) (uint8, bool) {
	if !HasChannel(msg) {
		return 0, false
	}
	return msg[0] & 0x0F, true
}

// WithChannel returns a copy of msg with its channel replaced.
// Messages without a channel are returned unchanged.
func WithChannel(msg gomidi.Message, channel uint8) gomidi.Message {
	if !HasChannel(msg) {
		return msg
	}
	out := make(gomidi.Message, len(msg))
	copy(out, msg)
	out[0] = (out[0] & 0xF0) | (channel & 0x0F)
	return out
}

// AllNotesOff builds the CC 123 message for a channel
func AllNotesOff(channel uint8) gomidi.Message {
	return gomidi.ControlChange(channel, CCAllNotesOff, 0)
}

// IsAllNotesOff reports whether msg is an all-notes-off control change
func IsAllNotesOff(msg gomidi.Message) bool {
	var ch, cc, val uint8
	return msg.GetControlChange(&ch, &cc, &val) && cc == CCAllNotesOff
}

// Clone copies a message so later rewrites can't alias it
func Clone(msg gomidi.Message) gomidi.Message {
	out := make(gomidi.Message, len(msg))
	copy(out, msg)
	return out
}
