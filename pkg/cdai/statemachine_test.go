// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutsideAdBreakToPlayingEmitsReservationThenPlacement(t *testing.T) {
	m, sink := newTestManagerWithSink()
	m.mu.Lock()
	m.adBreaks["p1"] = &AdBreak{ID: "p1", Ads: []*AdNode{{AdID: "ad1", Resolved: true, DurationMS: 30000}}}
	m.periodMap["p1"] = &Period2AdData{Filled: true, AdBreakID: "p1", Offset2Ad: map[int]AdOnPeriod{0: {AdIdx: 0}}}
	m.mu.Unlock()

	state := m.OnEvent(EventDefault, "p1", 0.0)

	assert.Equal(t, StateInAdBreakPlaying, state)
	require.Len(t, sink.events, 2)
	assert.Equal(t, KindReservationStart, sink.events[0].kind)
	assert.Equal(t, KindPlacementStart, sink.events[1].kind)
	assert.Equal(t, "ad1", sink.events[1].id)
}

func TestOutsideAdBreakWithNoAdsGoesToWait4Ads(t *testing.T) {
	m, _ := newTestManagerWithSink()
	m.mu.Lock()
	m.adBreaks["p1"] = &AdBreak{ID: "p1"}
	m.periodMap["p1"] = &Period2AdData{Filled: false, AdBreakID: "p1"}
	m.mu.Unlock()

	state := m.OnEvent(EventDefault, "p1", 0.0)
	assert.Equal(t, StateOutsideAdBreakWait4Ads, state)

	state = m.OnEvent(EventDefault, "p1", 0.0)
	assert.Equal(t, StateOutsideAdBreak, state)
}

func TestOutsideAdBreakAllAdsInvalidGoesToNotPlaying(t *testing.T) {
	m, sink := newTestManagerWithSink()
	m.mu.Lock()
	m.adBreaks["p1"] = &AdBreak{ID: "p1", Ads: []*AdNode{{AdID: "ad1", Resolved: true, Invalid: true}}}
	m.periodMap["p1"] = &Period2AdData{Filled: true, AdBreakID: "p1"}
	m.mu.Unlock()

	state := m.OnEvent(EventDefault, "p1", 0.0)
	assert.Equal(t, StateInAdBreakNotPlaying, state)
	require.Len(t, sink.events, 1)
	assert.Equal(t, KindReservationStart, sink.events[0].kind)
}

func TestPlayingAdFailedEmitsErrorThenEnd(t *testing.T) {
	m, sink := newTestManagerWithSink()
	ad := &AdNode{AdID: "ad1", Resolved: true, DurationMS: 15000}
	m.mu.Lock()
	m.state = StateInAdBreakPlaying
	m.curAds = []*AdNode{ad}
	m.curAdIdx = 0
	m.mu.Unlock()

	state := m.OnEvent(EventAdFailed, "p1", 0.0)

	assert.Equal(t, StateInAdBreakNotPlaying, state)
	require.Len(t, sink.events, 2)
	assert.Equal(t, KindPlacementError, sink.events[0].kind)
	assert.Equal(t, KindPlacementEnd, sink.events[1].kind)
}

func TestAdStateFinishThenCatchUp(t *testing.T) {
	m, sink := newTestManagerWithSink()
	ad := &AdNode{AdID: "ad1", Resolved: true, DurationMS: 30000}
	brk := &AdBreak{ID: "p1", Ads: []*AdNode{ad}, Placed: true, EndPeriodID: "p2", EndPeriodOffsetMS: 10000}
	m.mu.Lock()
	m.adBreaks["p1"] = brk
	m.state = StateInAdBreakPlaying
	m.curPlayingBreakID = "p1"
	m.curAds = brk.Ads
	m.curAdIdx = 0
	m.mu.Unlock()

	state := m.OnEvent(EventAdFinished, "p1", 0.0)
	assert.Equal(t, StateInAdBreakWait2Catchup, state)
	require.Len(t, sink.events, 1)
	assert.Equal(t, KindPlacementEnd, sink.events[0].kind)

	state = m.OnEvent(EventDefault, "p2", 0.0)
	assert.Equal(t, StateOutsideAdBreak, state)
	require.Len(t, sink.events, 2)
	assert.Equal(t, KindReservationEnd, sink.events[1].kind)
	assert.Equal(t, int64(10000), m.ContentSeekOffsetMS())
}

func TestFulfillmentTimeoutFallThrough(t *testing.T) {
	m, sink := newTestManagerWithSink()
	m.adBreaks["p1"] = &AdBreak{ID: "p1", Ads: []*AdNode{{AdID: "ad1", URL: "http://unreachable/ad1.mpd"}}}
	m.periodMap["p1"] = &Period2AdData{Filled: true, AdBreakID: "p1"}

	resolved := m.WaitForNextAdResolved(50)
	assert.False(t, resolved, "fulfillment never completes, so the wait must time out")

	m.mu.Lock()
	m.adBreaks["p1"].Ads[0].Invalid = true
	m.adBreaks["p1"].Ads[0].Resolved = true
	m.mu.Unlock()

	state := m.OnEvent(EventDefault, "p1", 0.0)
	assert.Equal(t, StateInAdBreakNotPlaying, state)
	require.Len(t, sink.events, 1)
	assert.Equal(t, KindReservationStart, sink.events[0].kind)
}
