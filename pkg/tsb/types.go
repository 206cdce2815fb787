// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package tsb implements the time-shift buffer fragment index and the
// per-media-type reader that walks it for playback.
package tsb

// MediaType tags a fragment or init segment by track kind.
type MediaType int

const (
	Video MediaType = iota
	Audio
	Subtitle
	AuxAudio
	InitVideo
	InitAudio
	InitSubtitle
	InitAuxAudio
)

func (m MediaType) String() string {
	switch m {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitle"
	case AuxAudio:
		return "aux-audio"
	case InitVideo:
		return "init-video"
	case InitAudio:
		return "init-audio"
	case InitSubtitle:
		return "init-subtitle"
	case InitAuxAudio:
		return "init-aux-audio"
	default:
		return "unknown"
	}
}

// StreamInfo describes the representation an init segment belongs to, the
// way the teacher's asset.go derives bandwidth and media timescale from a
// decoded mp4.InitSegment.
type StreamInfo struct {
	BandwidthBitsPerSecond int64
	Width                  int
	Height                 int
	FrameRate              float64
}

// WriteData carries everything needed to record one media fragment, mirroring
// the TSBWriteData aggregate passed from the fetch loop.
type WriteData struct {
	URL            string
	AbsPosition    float64
	Duration       float64
	PTS            float64
	PeriodID       string
	TimeScale      uint32
	PTSOffsetSec   float64
}
