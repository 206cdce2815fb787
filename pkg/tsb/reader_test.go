// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderInitNegativePositionIsSeekRangeError(t *testing.T) {
	m := newTestManager()
	r := NewReader(m, Video, nil)

	_, err := r.Init(-1.0, 2.0, TuneTypeNewNormal, nil)
	require.Error(t, err)
	var seekErr SeekRangeError
	assert.ErrorAs(t, err, &seekErr)
	assert.Equal(t, 2.0, r.GetPlaybackRate(), "rate must be recorded even on a failing Init")
}

func TestReaderInitEmptyIndexDisablesTrack(t *testing.T) {
	m := newTestManager()
	r := NewReader(m, Video, nil)

	_, err := r.Init(0.0, 1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)
	assert.False(t, r.TrackEnabled())
}

func TestReaderFirstDownloadIdempotent(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("i1", InitVideo, StreamInfo{}, "p1", 1000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f1", AbsPosition: 1000.0, Duration: 5.0}, Video, false))

	r := NewReader(m, Video, nil)
	_, err := r.Init(1000.0, 1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	first := r.FindNext()
	second := r.FindNext()
	assert.Same(t, first, second)
}

func TestDiscontinuousPeriodBoundaryWithPTSRebasement(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("i1", InitVideo, StreamInfo{}, "p1", 1000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f1", AbsPosition: 1000.0, Duration: 5.0, PTS: 250.0, PeriodID: "p1"}, Video, false))

	require.True(t, m.AddInitFragment("i2", InitVideo, StreamInfo{}, "p2", 1005.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f2", AbsPosition: 1005.0, Duration: 5.0, PTS: 500.0, PeriodID: "p2"}, Video, true))

	r := NewReader(m, Video, nil)
	_, err := r.Init(1000.0, 1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	f1 := r.FindNext()
	r.ReadNext(f1)
	assert.False(t, r.IsDiscontinuous())

	f2 := r.FindNext()
	r.ReadNext(f2)
	assert.True(t, r.IsPeriodBoundary())
	assert.True(t, r.IsDiscontinuous())
	assert.Equal(t, 500.0, r.GetFirstPTS())
}

func TestReverseAtHead(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("i1", InitVideo, StreamInfo{}, "p1", 2000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f1", AbsPosition: 2000.0, Duration: 5.0}, Video, false))

	r := NewReader(m, Video, nil)
	_, err := r.Init(2000.0, -1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	first := r.FindNext()
	require.NotNil(t, first)
	r.ReadNext(first)

	next := r.FindNext()
	assert.Nil(t, next)
	assert.True(t, r.IsEos())
}

func TestEosForwardSetOnlyByReadNextOfLastFragment(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("i1", InitVideo, StreamInfo{}, "p1", 1000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f1", AbsPosition: 1000.0, Duration: 5.0}, Video, false))
	require.True(t, m.AddFragment(WriteData{URL: "f2", AbsPosition: 1005.0, Duration: 5.0}, Video, false))

	r := NewReader(m, Video, nil)
	_, err := r.Init(1000.0, 1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	f1 := r.FindNext()
	r.ReadNext(f1)
	assert.False(t, r.IsEos(), "eos must not be set until the last fragment is read")

	f2 := r.FindNext()
	r.ReadNext(f2)
	assert.True(t, r.IsEos(), "eos must be set exactly when ReadNext(lastFragment) is called")

	assert.Nil(t, r.FindNext())
}

func TestSecondaryReaderAlignsToVideoFirstPTS(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("iv", InitVideo, StreamInfo{}, "p1", 1000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "v1", AbsPosition: 1000.0, Duration: 5.0, PTS: 300.0, PeriodID: "p1"}, Video, false))

	video := NewReader(m, Video, nil)
	_, err := video.Init(1000.0, 1.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	a := newTestManager()
	require.True(t, a.AddInitFragment("ia", InitAudio, StreamInfo{}, "p1", 995.0, 0))
	require.True(t, a.AddFragment(WriteData{URL: "a1", AbsPosition: 995.0, Duration: 5.0, PTS: 295.0, PeriodID: "p1"}, Audio, false))
	require.True(t, a.AddFragment(WriteData{URL: "a2", AbsPosition: 1000.0, Duration: 5.0, PTS: 400.0, PeriodID: "p1"}, Audio, false))

	audio := NewReader(a, Audio, nil)
	_, err = audio.Init(1000.0, 1.0, TuneTypeNewNormal, video)
	require.NoError(t, err)

	assert.LessOrEqual(t, audio.GetFirstPTS(), video.GetFirstPTS())
}

func TestTermResetsState(t *testing.T) {
	m := newTestManager()
	require.True(t, m.AddInitFragment("i1", InitVideo, StreamInfo{}, "p1", 1000.0, 0))
	require.True(t, m.AddFragment(WriteData{URL: "f1", AbsPosition: 1000.0, Duration: 5.0}, Video, false))

	r := NewReader(m, Video, nil)
	_, err := r.Init(1000.0, 2.0, TuneTypeNewNormal, nil)
	require.NoError(t, err)

	r.Term()

	assert.Equal(t, NormalPlayRate, r.GetPlaybackRate())
	assert.False(t, r.IsEos())
	assert.False(t, r.TrackEnabled())
}

func TestAbortCheckForWaitIfReaderDoneUnblocks(t *testing.T) {
	m := newTestManager()
	r := NewReader(m, Video, nil)

	done := make(chan struct{})
	go func() {
		r.CheckForWaitIfReaderDone()
		close(done)
	}()

	r.AbortCheckForWaitIfReaderDone()
	<-done
	assert.True(t, r.IsEndFragmentInjected())
}
