// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import "github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/aamptime"

// Segment holds the fields common to an init header and a media fragment.
type Segment struct {
	url              string
	mediaType        MediaType
	absolutePosition aamptime.Time
	periodID         string
}

// URL returns the fragment or init segment's URL.
func (s *Segment) URL() string { return s.url }

// MediaType returns the track kind this segment belongs to.
func (s *Segment) MediaType() MediaType { return s.mediaType }

// PeriodID returns the period id of the segment.
func (s *Segment) PeriodID() string { return s.periodID }

// AbsolutePosition returns the absolute position, in seconds since the Unix
// epoch, of this segment's earliest presentation point.
func (s *Segment) AbsolutePosition() aamptime.Time { return s.absolutePosition }

// InitData is a codec-configuration blob shared by every media fragment of a
// representation. Its users refcount governs its lifetime: it is removed
// from the data manager's init list the instant the count reaches zero.
type InitData struct {
	Segment
	streamInfo   StreamInfo
	profileIndex int
	users        uint64
}

func newInitData(url string, media MediaType, pos aamptime.Time, streamInfo StreamInfo, periodID string, profileIndex int) *InitData {
	return &InitData{
		Segment: Segment{
			url:              url,
			mediaType:        media,
			absolutePosition: pos,
			periodID:         periodID,
		},
		streamInfo:   streamInfo,
		profileIndex: profileIndex,
	}
}

// IncrementUser bumps the refcount when a fragment starts referencing this init.
func (i *InitData) IncrementUser() { i.users++ }

// DecrementUser drops the refcount when a fragment referencing this init is evicted.
func (i *InitData) DecrementUser() {
	if i.users > 0 {
		i.users--
	}
}

// Users returns the number of live fragments referencing this init.
func (i *InitData) Users() uint64 { return i.users }

// BandWidth returns the representation's bandwidth in bits per second.
func (i *InitData) BandWidth() int64 { return i.streamInfo.BandwidthBitsPerSecond }

// StreamInfo returns the cached representation stream info.
func (i *InitData) StreamInfo() StreamInfo { return i.streamInfo }

// ProfileIndex returns the ABR profile index this init belongs to.
func (i *InitData) ProfileIndex() int { return i.profileIndex }

// Fragment is one cached media fragment. Immutable after construction except
// for its next/prev links, which the data manager maintains as fragments are
// appended and evicted.
type Fragment struct {
	Segment
	duration       aamptime.Time
	pts            aamptime.Time
	discontinuous  bool
	initFragData   *InitData
	timeScale      uint32
	ptsOffset      aamptime.Time

	// Next and Prev form the insertion-ordered doubly-linked list within a
	// media type's index. Init data carries only a refcount, never a
	// back-pointer to fragments, so this graph cannot cycle.
	Next *Fragment
	Prev *Fragment
}

func newFragment(url string, media MediaType, pos, duration, pts aamptime.Time, discontinuous bool, periodID string, initData *InitData, timeScale uint32, ptsOffset aamptime.Time) *Fragment {
	return &Fragment{
		Segment: Segment{
			url:              url,
			mediaType:        media,
			absolutePosition: pos,
			periodID:         periodID,
		},
		duration:      duration,
		pts:           pts,
		discontinuous: discontinuous,
		initFragData:  initData,
		timeScale:     timeScale,
		ptsOffset:     ptsOffset,
	}
}

// InitFragData returns the init header this fragment was built against.
func (f *Fragment) InitFragData() *InitData { return f.initFragData }

// PTS returns the fragment's raw presentation timestamp, before PTSOffset.
func (f *Fragment) PTS() aamptime.Time { return f.pts }

// Duration returns the fragment's duration.
func (f *Fragment) Duration() aamptime.Time { return f.duration }

// IsDiscontinuous reports whether a period or PTS discontinuity starts at
// this fragment.
func (f *Fragment) IsDiscontinuous() bool { return f.discontinuous }

// TimeScale returns the fragment's ISO-BMFF timescale.
func (f *Fragment) TimeScale() uint32 { return f.timeScale }

// PTSOffset returns the offset applied to PTS before presentation.
func (f *Fragment) PTSOffset() aamptime.Time { return f.ptsOffset }
