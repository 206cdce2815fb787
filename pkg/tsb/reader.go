// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/aamptime"
)

// NormalPlayRate is the playback rate of ordinary forward playback.
const NormalPlayRate float64 = 1.0

// TuneType identifies why a reader was (re)initialized.
type TuneType int

const (
	TuneTypeNewNormal TuneType = iota
	TuneTypeSeek
	TuneTypeSeekToLive
)

// Reader is a position-, rate- and period-aware cursor over one media type's
// view of a DataManager. Constructed per media type, it is advanced by the
// injector to yield the next fragment to push into the pipeline.
type Reader struct {
	dataMgr   *DataManager
	mediaType MediaType
	log       *slog.Logger

	initialized bool
	startPos    aamptime.Time
	// upcoming is the next fetch anchor computed after each ReadNext.
	upcoming aamptime.Time
	rate     float64
	tuneType TuneType

	current          *Fragment
	lastInitFragData *InitData

	firstPTS       aamptime.Time
	firstPTSOffset aamptime.Time

	newInitWaiting bool
	nextFragDisc   bool
	periodBoundary bool
	trackEnabled   bool
	eosReached     bool

	// TrickModePositionEOS bounds forward trick play; owned by the player
	// and written through SetTrickModePositionEOS.
	trickModePositionEOS aamptime.Time

	endFragmentInjected atomic.Bool
	eosMu               sync.Mutex
	eosCond             *sync.Cond
}

// NewReader constructs a reader over dataMgr for mediaType. A nil logger
// falls back to slog.Default().
func NewReader(dataMgr *DataManager, mediaType MediaType, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	r := &Reader{
		dataMgr:   dataMgr,
		mediaType: mediaType,
		rate:      NormalPlayRate,
		log:       log,
	}
	r.eosCond = sync.NewCond(&r.eosMu)
	return r
}

// SetTrickModePositionEOS sets the forward trick-play EOS boundary.
func (r *Reader) SetTrickModePositionEOS(pos aamptime.Time) {
	r.trickModePositionEOS = pos
}

// Init selects the starting fragment for rate and tuneType, starting the
// search at startPosSec. It returns the position actually selected (which
// may differ from the request, e.g. clamped to the TSB end) and an error:
// a SeekRangeError for a negative start position, ErrNoDataManager when the
// reader has no DataManager, or ErrNoFragmentAvailable when no starting
// fragment can be resolved.
//
// other, when non-nil, is the video reader: a non-video reader walks its
// start back while its PTS is later than the video reader's first PTS. The
// walk stops at a period boundary or at the TSB head, so the start can still
// be later (in PTS) than video's when no earlier fragment of the same period
// exists.
func (r *Reader) Init(startPosSec float64, rate float64, tuneType TuneType, other *Reader) (selectedPosSec float64, err error) {
	r.log.Info("init", "media", r.mediaType, "rate", rate, "startPosSec", startPosSec)

	if r.initialized {
		return startPosSec, nil
	}

	// Rate must be recorded even on failure paths: external code reads it
	// during error handling.
	r.rate = rate

	if startPosSec < 0.0 {
		r.log.Error("negative position requested", "media", r.mediaType, "startPosSec", startPosSec)
		return startPosSec, newSeekRangeError(startPosSec)
	}

	if r.dataMgr == nil {
		r.log.Info("no data manager found", "media", r.mediaType)
		return startPosSec, ErrNoDataManager
	}

	r.tuneType = tuneType

	first := r.dataMgr.GetFirstFragment()
	last := r.dataMgr.GetLastFragment()
	if first == nil || last == nil {
		r.log.Warn("tsb is empty", "media", r.mediaType, "rate", r.rate)
		r.trackEnabled = false
		return startPosSec, nil
	}

	requested := startPosSec
	if last.AbsolutePosition().InSeconds() < startPosSec {
		r.log.Warn("seeking to tsb end", "media", r.mediaType, "requested", startPosSec, "end", last.AbsolutePosition().InSeconds())
		requested = last.AbsolutePosition().InSeconds()
	}

	chosen := r.dataMgr.GetNearestFragment(requested)
	if r.mediaType != Video && other != nil {
		videoFirstPTS := other.GetFirstPTS()
		for chosen != nil && chosen.PTS().InSeconds() > videoFirstPTS {
			if chosen.Prev == nil {
				break
			}
			if chosen.PeriodID() != chosen.Prev.PeriodID() {
				break
			}
			chosen = chosen.Prev
		}
	}

	if chosen == nil {
		r.log.Error("firstFragmentToFetch is nil", "media", r.mediaType)
		return startPosSec, ErrNoFragmentAvailable
	}

	r.startPos = chosen.AbsolutePosition()
	r.upcoming = r.startPos
	r.current = chosen

	if rate != NormalPlayRate && r.mediaType != Video {
		r.trackEnabled = false
	} else {
		r.trackEnabled = true
	}

	r.firstPTS = chosen.PTS()
	r.firstPTSOffset = chosen.PTSOffset()
	r.initialized = true

	r.log.Info("init done", "media", r.mediaType, "startPos", r.startPos.InSeconds(), "rate", r.rate, "pts", r.firstPTS.InSeconds())
	return chosen.AbsolutePosition().InSeconds(), nil
}

// FindNext returns the next fragment to inject without consuming it.
// Returns nil when no fragment is available yet; for reverse rates that also
// marks EOS immediately, since no more fragments will ever precede the TSB
// head.
func (r *Reader) FindNext() *Fragment {
	if !r.initialized {
		r.log.Error("reader not initialized", "media", r.mediaType)
		return nil
	}

	var next *Fragment
	if r.IsFirstDownload() && !r.eosReached {
		next = r.current
	} else if r.current != nil {
		if r.rate < 0.0 {
			next = r.current.Prev
		} else {
			next = r.current.Next
		}
	}

	if next == nil {
		r.log.Info("no next fragment available", "media", r.mediaType, "rate", r.rate)
		if r.rate < 0.0 {
			r.eosReached = true
		}
	}

	return next
}

// ReadNext advances the cursor to next, recomputing EOS, discontinuity,
// period-boundary and upcoming-position state. A nil next marks EOS.
func (r *Reader) ReadNext(next *Fragment) {
	if next == nil {
		r.log.Info("null fragment read, setting eos", "media", r.mediaType)
		r.eosReached = true
		return
	}

	r.current = next

	switch {
	case r.rate > NormalPlayRate:
		r.eosReached = next.AbsolutePosition().InSeconds() >= r.trickModePositionEOS.InSeconds()
	case r.rate < 0.0:
		r.eosReached = next.Prev == nil
	default:
		r.eosReached = next.Next == nil
	}

	// Forward: report the discontinuity of the fragment just consumed.
	// Reverse: the discontinuity marker at a period boundary belongs to the
	// successor in the timeline direction, i.e. next.Next.
	if r.rate >= 0.0 {
		r.nextFragDisc = next.IsDiscontinuous()
	} else {
		r.nextFragDisc = next.Next != nil && next.Next.IsDiscontinuous()
	}

	if !r.IsFirstDownload() {
		r.checkPeriodBoundary(next)
	}
	if next.InitFragData() != nil {
		r.lastInitFragData = next.InitFragData()
	}

	if r.rate >= 0.0 {
		if next.Next != nil {
			r.upcoming = next.Next.AbsolutePosition()
		} else {
			r.upcoming = next.AbsolutePosition().Add(next.Duration())
		}
	} else {
		if next.Prev != nil {
			r.upcoming = next.Prev.AbsolutePosition()
		} else {
			r.upcoming = next.AbsolutePosition()
		}
	}

	r.log.Info("read fragment", "media", r.mediaType, "absPos", next.AbsolutePosition().InSeconds(),
		"upcoming", r.upcoming.InSeconds(), "eos", r.eosReached, "disc", r.nextFragDisc, "periodBoundary", r.periodBoundary)
}

// checkPeriodBoundary detects a period change at curr and, on normal play
// rate only, a PTS discontinuity at that boundary — rebasing firstPTS when
// one is found. Trick-play period boundaries intentionally leave firstPTS
// stale; this mirrors the observed source and is not guessed at.
func (r *Reader) checkPeriodBoundary(curr *Fragment) {
	r.periodBoundary = false
	if curr == nil || curr.InitFragData() == nil || r.lastInitFragData == nil {
		return
	}

	if r.lastInitFragData.PeriodID() != curr.InitFragData().PeriodID() {
		r.periodBoundary = true
	}

	if r.periodBoundary && r.rate == NormalPlayRate {
		adj := curr.Prev
		if adj != nil {
			nextPTSCalc := adj.PTS().Add(adj.Duration())
			if !nextPTSCalc.Equal(curr.PTS()) {
				r.firstPTS = curr.PTS()
				r.firstPTSOffset = curr.PTSOffset()
				r.log.Info("discontinuity detected", "media", r.mediaType, "pts", r.firstPTS.InSeconds(), "ptsOffset", r.firstPTSOffset.InSeconds())
			}
		}
	}
}

// Term resets the reader to the state NewReader leaves it in (rate back to
// NormalPlayRate). The player-owned trick-mode EOS boundary is kept.
func (r *Reader) Term() {
	r.startPos = aamptime.Time{}
	r.upcoming = aamptime.Time{}
	r.rate = NormalPlayRate
	r.initialized = false
	r.eosReached = false
	r.trackEnabled = false
	r.firstPTS = aamptime.Time{}
	r.firstPTSOffset = aamptime.Time{}
	r.tuneType = TuneTypeNewNormal
	r.periodBoundary = false
	r.nextFragDisc = false
	r.newInitWaiting = false
	r.endFragmentInjected.Store(false)
	r.lastInitFragData = nil
	r.current = nil
	r.log.Info("term", "media", r.mediaType)
}

// IsEos reports whether end-of-stream has been reached.
func (r *Reader) IsEos() bool { return r.eosReached }

// ResetEos clears the end-of-stream flag.
func (r *Reader) ResetEos() { r.eosReached = false }

// SetNewInitWaiting marks that an unprocessed init header is pending.
func (r *Reader) SetNewInitWaiting(v bool) { r.newInitWaiting = v }

// IsFirstDownload reports whether no fragment has been consumed since Init.
func (r *Reader) IsFirstDownload() bool { return r.startPos.Equal(r.upcoming) }

// TrackEnabled reports whether this track should be fed into the pipeline.
func (r *Reader) TrackEnabled() bool { return !r.IsEos() && r.trackEnabled }

// GetFirstPTS returns the first PTS of the reader's current timeline.
func (r *Reader) GetFirstPTS() float64 { return r.firstPTS.InSeconds() }

// GetFirstPTSOffset returns the PTS offset paired with GetFirstPTS.
func (r *Reader) GetFirstPTSOffset() aamptime.Time { return r.firstPTSOffset }

// GetMediaType returns the media type this reader was built for.
func (r *Reader) GetMediaType() MediaType { return r.mediaType }

// GetPlaybackRate returns the rate recorded at Init.
func (r *Reader) GetPlaybackRate() float64 { return r.rate }

// IsDiscontinuous reports the discontinuity flag computed by the last ReadNext.
func (r *Reader) IsDiscontinuous() bool { return r.nextFragDisc }

// IsPeriodBoundary reports whether the last ReadNext crossed a period boundary.
func (r *Reader) IsPeriodBoundary() bool { return r.periodBoundary }

// GetStartPosition returns the position selected by Init.
func (r *Reader) GetStartPosition() aamptime.Time { return r.startPos }

// IsEndFragmentInjected reports whether the writer side has signaled shutdown.
func (r *Reader) IsEndFragmentInjected() bool { return r.endFragmentInjected.Load() }

// SetEndFragmentInjected marks that the final fragment has been injected.
func (r *Reader) SetEndFragmentInjected() { r.endFragmentInjected.Store(true) }

// CheckForWaitIfReaderDone blocks until the end fragment has been injected.
func (r *Reader) CheckForWaitIfReaderDone() {
	r.eosMu.Lock()
	defer r.eosMu.Unlock()
	for !r.endFragmentInjected.Load() {
		r.log.Info("waiting for last fragment injection update", "media", r.mediaType)
		r.eosCond.Wait()
	}
	r.log.Info("exiting", "media", r.mediaType)
}

// AbortCheckForWaitIfReaderDone forces the end-fragment flag and wakes any
// waiter in CheckForWaitIfReaderDone.
func (r *Reader) AbortCheckForWaitIfReaderDone() {
	r.eosMu.Lock()
	defer r.eosMu.Unlock()
	if !r.endFragmentInjected.Load() {
		r.endFragmentInjected.Store(true)
		r.eosCond.Broadcast()
	}
}
