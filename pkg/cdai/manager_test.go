// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	kind       string
	id         string
	durationMS int64
	errCode    int
}

type fakeSink struct {
	events []recordedEvent
}

func (s *fakeSink) EmitReservation(kind, breakID string, positionMS int64) {
	s.events = append(s.events, recordedEvent{kind: kind, id: breakID})
}

func (s *fakeSink) EmitPlacement(kind, adID string, positionMS, absoluteMS, offsetMS, durationMS int64, errCode int) {
	s.events = append(s.events, recordedEvent{kind: kind, id: adID, durationMS: durationMS, errCode: errCode})
}

type fakeClock struct{ ms int64 }

func (c *fakeClock) NowMS() int64 { return c.ms }

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.body, 200, nil
}

type fakeParser struct {
	manifest *AdManifest
	err      error
}

func (p *fakeParser) Parse(data []byte) (*AdManifest, error) {
	return p.manifest, p.err
}

func newTestManagerWithSink() (*Manager, *fakeSink) {
	sink := &fakeSink{}
	m := NewManager(nil, nil, sink, &fakeClock{}, nil)
	return m, sink
}

func TestSetAlternateContentsIdempotent(t *testing.T) {
	m := NewManager(&fakeFetcher{err: errors.New("unused")}, nil, nil, nil, nil)
	m.SetAlternateContents("p1", "ad1", "http://ads/1.mpd", 0, 30000)
	m.SetAlternateContents("p1", "ad1", "http://ads/1-other.mpd", 0, 30000)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.adBreaks["p1"].Ads, 1)
	assert.Equal(t, "http://ads/1.mpd", m.adBreaks["p1"].Ads[0].URL)
	assert.Len(t, m.fulfillQueue, 1, "second SetAlternateContents with the same adId must not re-enqueue")
}

func TestFulfillOneResolvesAndNotifies(t *testing.T) {
	m := NewManager(&fakeFetcher{body: []byte("ignored")}, &fakeParser{manifest: &AdManifest{DurationMS: 30000}}, nil, nil, nil)
	m.SetAlternateContents("p1", "ad1", "http://ads/1.mpd", 0, 30000)

	done := make(chan struct{})
	go func() {
		m.WaitForNextAdResolved(2000)
		close(done)
	}()

	m.StartFulfillAdLoop()
	defer m.StopFulfillAdLoop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForNextAdResolved did not unblock after fulfillment")
	}

	m.mu.Lock()
	ad := m.adBreaks["p1"].Ads[0]
	m.mu.Unlock()
	assert.True(t, ad.Resolved)
	assert.False(t, ad.Invalid)
	assert.Equal(t, uint64(30000), ad.DurationMS)
}

func TestFulfillmentFetchFailureMarksAdInvalidButResolved(t *testing.T) {
	m := NewManager(&fakeFetcher{err: errors.New("dial tcp: no route to host")}, &fakeParser{}, nil, nil, nil)
	m.SetAlternateContents("p1", "ad1", "http://unreachable/1.mpd", 0, 30000)

	m.StartFulfillAdLoop()
	ok := m.WaitForNextAdResolved(2000)
	m.StopFulfillAdLoop()

	require.True(t, ok, "fulfillment must notify even on failure")
	m.mu.Lock()
	ad := m.adBreaks["p1"].Ads[0]
	m.mu.Unlock()
	assert.True(t, ad.Resolved)
	assert.True(t, ad.Invalid)
}

func TestWaitForNextAdResolvedTimesOutWithoutFulfillment(t *testing.T) {
	m, _ := newTestManagerWithSink()
	start := time.Now()
	ok := m.WaitForNextAdResolved(50)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAbortWaitForNextAdResolvedUnblocksImmediately(t *testing.T) {
	m, _ := newTestManagerWithSink()
	done := make(chan bool)
	go func() {
		done <- m.WaitForNextAdResolved(5000)
	}()
	m.AbortWaitForNextAdResolved()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("abort did not unblock waiter")
	}
}

func TestCheckForAdStartAndTerminate(t *testing.T) {
	m, _ := newTestManagerWithSink()
	m.mu.Lock()
	m.adBreaks["p1"] = &AdBreak{ID: "p1", Ads: []*AdNode{{AdID: "ad1", Resolved: true, DurationMS: 10000}}}
	m.periodMap["p1"] = &Period2AdData{Filled: true, AdBreakID: "p1", Offset2Ad: map[int]AdOnPeriod{0: {AdIdx: 0, AdStartOffsetMS: 0}}}
	m.mu.Unlock()

	idx, breakID, adOffset := m.CheckForAdStart("p1", 3.0)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "p1", breakID)
	assert.Equal(t, 3.0, adOffset)

	idx, _, _ = m.CheckForAdStart("nope", 0.0)
	assert.Equal(t, -1, idx)

	m.mu.Lock()
	m.state = StateInAdBreakPlaying
	m.curPlayingBreakID = "p1"
	m.curAdIdx = 0
	m.curAds = m.adBreaks["p1"].Ads
	m.mu.Unlock()

	assert.False(t, m.CheckForAdTerminate(9.999))
	assert.True(t, m.CheckForAdTerminate(10.0))
}
