// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package cdai implements a client-side dynamic ad insertion manager: it
// tracks ad breaks discovered in a source manifest, fulfills each ad's own
// manifest asynchronously, places resolved ads across the source period
// timeline, and drives the playing/not-playing state machine a player uses
// to decide whether a given period offset should be served from an ad or
// from the underlying content.
package cdai

import (
	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/aamptime"

	m "github.com/Eyevinn/dash-mpd/mpd"
)

// OffsetAlignFactorMS is the observed slack in declared ad/period durations.
// Placement treats a remaining gap no larger than this as "ad exhausted" so
// minor authoring drift doesn't leave a dangling sliver of source content
// wedged between two ads.
const OffsetAlignFactorMS = 2000

// State is one of the five nodes of the ad-state machine.
type State int

const (
	StateOutsideAdBreak State = iota
	StateOutsideAdBreakWait4Ads
	StateInAdBreakPlaying
	StateInAdBreakNotPlaying
	StateInAdBreakWait2Catchup
)

func (s State) String() string {
	switch s {
	case StateOutsideAdBreak:
		return "OUTSIDE_ADBREAK"
	case StateOutsideAdBreakWait4Ads:
		return "OUTSIDE_ADBREAK_WAIT4ADS"
	case StateInAdBreakPlaying:
		return "IN_ADBREAK_AD_PLAYING"
	case StateInAdBreakNotPlaying:
		return "IN_ADBREAK_AD_NOT_PLAYING"
	case StateInAdBreakWait2Catchup:
		return "IN_ADBREAK_WAIT2CATCHUP"
	default:
		return "UNKNOWN"
	}
}

// Event drives a transition of the ad-state machine.
type Event int

const (
	EventInit Event = iota
	EventBaseOffsetChange
	EventAdFinished
	EventAdFailed
	EventPeriodChange
	EventDefault = EventPeriodChange
)

// Reservation/placement event kinds passed to EventSink.
const (
	KindReservationStart = "AD_RESERVATION_START"
	KindReservationEnd   = "AD_RESERVATION_END"
	KindPlacementStart   = "AD_PLACEMENT_START"
	KindPlacementEnd     = "AD_PLACEMENT_END"
	KindPlacementError   = "AD_PLACEMENT_ERROR"
)

// AdNode is one ad's metadata, from the moment its URL is known through
// fulfillment and placement.
type AdNode struct {
	Invalid            bool
	Placed             bool
	Resolved           bool
	AdID               string
	URL                string
	DurationMS         uint64
	BasePeriodID       string
	BasePeriodOffsetMS int
	Manifest           *AdManifest
}

// AdBreak is the metadata for one adbreak: its total declared duration, the
// ads that fill it in sequential order, and where the base content resumes
// once the break is fully placed.
type AdBreak struct {
	ID                    string
	BreakDurationMS       uint32
	Ads                   []*AdNode
	EndPeriodID           string
	EndPeriodOffsetMS     uint64
	AdsDurationMS         uint32
	AdjustEndPeriodOffset bool
	Placed                bool
	Failed                bool
	SplitPeriod           bool
	Invalid               bool
	Resolved              bool
	AbsoluteStartTime     aamptime.Time
}

// AdOnPeriod records that ad index AdIdx begins at a given offset inside a
// source period, having itself already played AdStartOffsetMS milliseconds.
type AdOnPeriod struct {
	AdIdx         int
	AdStartOffsetMS uint32
}

// Period2AdData is the per-source-period view of ad placement: which break
// owns this period, and the offset-to-ad map built by PlaceAds.
type Period2AdData struct {
	Filled    bool
	AdBreakID string
	DurationMS uint64
	Offset2Ad map[int]AdOnPeriod
}

// FulfillRequest is queued by SetAlternateContents for the fulfillment
// worker to resolve.
type FulfillRequest struct {
	PeriodID string
	AdID     string
	URL      string
}

// Placement is the progress cursor for one adbreak's walk across the source
// period timeline. A break that runs out of periods before it is fully
// placed is parked here until PlaceAds is called again with a longer period
// list.
type Placement struct {
	PendingAdBreakID  string
	OpenPeriodID      string
	// PeriodsConsumed is how many leading entries of the periods slice
	// passed to PlaceAds have already been fully attributed to this break;
	// resuming skips straight to this index rather than re-matching
	// OpenPeriodID, so an already-consumed period never gets re-walked.
	PeriodsConsumed     int
	CurOffsetInPeriodMS uint64
	CurAdIdx            int
	AdNextOffsetMS       uint32
	AdStartOffsetMS      uint32
	WaitForNextPeriod    bool
}

// PeriodInfo is the minimal view of a source period PlaceAds needs: its id,
// play-order position, and declared duration.
type PeriodInfo struct {
	ID         string
	DurationMS uint64
}

// AdManifest is the parsed result of fetching one ad's own manifest.
type AdManifest struct {
	DurationMS uint64
	MPD        *m.MPD
}
