package httpapi

import (
	"encoding/hex"
	"time"

	"go-recplay/engine"
)

// NoticeDTO is the wire form of an engine notice
type NoticeDTO struct {
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
	Msg      string    `json:"msg,omitempty"`
	Desc     string    `json:"desc,omitempty"`
	OffsetMS int64     `json:"offset_ms,omitempty"`
	Loop     bool      `json:"loop,omitempty"`
	Events   int       `json:"events,omitempty"`
	Captured bool      `json:"captured,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func newNoticeDTO(n engine.Notice) NoticeDTO {
	dto := NoticeDTO{
		Kind:     n.Kind.String(),
		At:       n.At,
		OffsetMS: n.Offset.Milliseconds(),
		Loop:     n.Loop,
		Events:   n.Events,
		Captured: n.Captured,
	}
	if len(n.Msg) > 0 {
		dto.Msg = hex.EncodeToString(n.Msg)
		dto.Desc = n.Msg.String()
	}
	if n.Err != nil {
		dto.Error = n.Err.Error()
	}
	return dto
}

// EventDTO is one timed event of a recording
type EventDTO struct {
	OffsetMS float64 `json:"offset_ms"`
	Msg      string  `json:"msg"`
	Desc     string  `json:"desc"`
}

// RecordingDTO is the wire form of a recording
type RecordingDTO struct {
	Events     []EventDTO `json:"events"`
	DurationMS float64    `json:"duration_ms"`
}

func newRecordingDTO(rec engine.Recording) RecordingDTO {
	dto := RecordingDTO{
		Events:     make([]EventDTO, 0, len(rec)),
		DurationMS: ms(rec.Duration()),
	}
	for _, ev := range rec {
		dto.Events = append(dto.Events, EventDTO{
			OffsetMS: ms(ev.Offset),
			Msg:      hex.EncodeToString(ev.Msg),
			Desc:     ev.Msg.String(),
		})
	}
	return dto
}

// StatusDTO reports session state
type StatusDTO struct {
	Recording bool   `json:"recording"`
	Playing   bool   `json:"playing"`
	Captured  int    `json:"captured"`
	Events    int    `json:"events"`
	Override  *uint8 `json:"override"`
	Input     string `json:"input,omitempty"`
	Output    string `json:"output,omitempty"`
	Clients   int    `json:"ws_clients"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
