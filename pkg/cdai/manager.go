// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager is the long-lived, player-owned CDAI ad manager. It owns the
// adbreak and per-period maps, a fulfillment worker goroutine, the current
// placement cursor(s), and the ad-state machine. Every mutation of shared
// state happens under mu, mirroring mDaiMtx in the original.
type Manager struct {
	mu sync.Mutex

	adBreaks  map[string]*AdBreak
	periodMap map[string]*Period2AdData

	curPlayingBreakID string
	curAdIdx          int
	curAds            []*AdNode

	contentSeekOffsetMS int64
	state               State

	pendingPlacements []Placement

	fulfillQueue chan FulfillRequest
	stopFulfill  chan struct{}
	fulfillWG    sync.WaitGroup
	running      bool

	resolveMu     sync.Mutex
	resolveSignal chan struct{}

	fetcher HTTPFetcher
	parser  ManifestParser
	sink    EventSink
	clock   Clock
	log     *slog.Logger
	metrics *Metrics
}

// SetMetrics attaches a Metrics collector; subsequent state transitions and
// fulfillment outcomes report through it. Passing nil detaches reporting.
func (m *Manager) SetMetrics(metrics *Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
	m.metrics.observeState(m.state)
}

// NewManager builds a Manager. Any of fetcher, parser, sink, clock, log may
// be nil; sink defaults to NopEventSink, clock to RealClock, log to
// slog.Default(). fetcher/parser have no default since fulfillment cannot
// proceed without them, but a nil fetcher/parser simply fails every
// fulfillment with invalid=true rather than panicking.
func NewManager(fetcher HTTPFetcher, parser ManifestParser, sink EventSink, clock Clock, log *slog.Logger) *Manager {
	if sink == nil {
		sink = NopEventSink{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		adBreaks:      make(map[string]*AdBreak),
		periodMap:     make(map[string]*Period2AdData),
		state:         StateOutsideAdBreak,
		fulfillQueue:  make(chan FulfillRequest, 64),
		resolveSignal: make(chan struct{}),
		fetcher:       fetcher,
		parser:        parser,
		sink:          sink,
		clock:         clock,
		log:           log,
	}
}

// State returns the current ad-state machine node.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetAlternateContents opens or updates the adbreak at periodID and
// enqueues adID@url for fulfillment. Idempotent across repeated invocations
// with the same adID: a second call is a no-op once the ad is already known.
func (m *Manager) SetAlternateContents(periodID, adID, url string, startMS uint64, breakDurationMS uint32) {
	m.mu.Lock()
	brk, ok := m.adBreaks[periodID]
	if !ok {
		brk = &AdBreak{ID: periodID, BreakDurationMS: breakDurationMS}
		m.adBreaks[periodID] = brk
	}
	for _, ad := range brk.Ads {
		if ad.AdID == adID {
			m.mu.Unlock()
			return
		}
	}
	brk.Ads = append(brk.Ads, &AdNode{
		AdID:               adID,
		URL:                url,
		BasePeriodID:        periodID,
		BasePeriodOffsetMS: int(startMS),
	})
	m.mu.Unlock()

	m.log.Info("queued ad for fulfillment", "periodId", periodID, "adId", adID, "url", url)
	select {
	case m.fulfillQueue <- FulfillRequest{PeriodID: periodID, AdID: adID, URL: url}:
	default:
		m.log.Warn("fulfillment queue full, dropping request", "adId", adID)
	}
}

// StartFulfillAdLoop starts the background worker that pops fulfillment
// requests and resolves them. Calling it twice without an intervening Stop
// is a no-op.
func (m *Manager) StartFulfillAdLoop() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopFulfill = make(chan struct{})
	stop := m.stopFulfill
	m.mu.Unlock()

	m.fulfillWG.Add(1)
	go m.fulfillAdLoop(stop)
}

// StopFulfillAdLoop signals the worker to exit and waits for it to drain.
func (m *Manager) StopFulfillAdLoop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopFulfill)
	m.mu.Unlock()

	m.fulfillWG.Wait()
}

func (m *Manager) fulfillAdLoop(stop chan struct{}) {
	defer m.fulfillWG.Done()
	for {
		select {
		case <-stop:
			return
		case req := <-m.fulfillQueue:
			m.fulfillOne(req)
		}
	}
}

// fulfillOne downloads and parses one ad's own manifest, mutating its
// AdNode under mu and notifying any WaitForNextAdResolved callers. HTTP or
// parse failure marks the ad invalid but still resolved, so placement can
// skip over it instead of blocking forever.
func (m *Manager) fulfillOne(req FulfillRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var manifest *AdManifest
	failed := false

	if m.fetcher == nil || m.parser == nil {
		failed = true
	} else {
		body, _, err := m.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			m.log.Warn("ad manifest fetch failed", "adId", req.AdID, "url", req.URL, "error", err)
			failed = true
		} else if manifest, err = m.parser.Parse(body); err != nil {
			m.log.Warn("ad manifest parse failed", "adId", req.AdID, "url", req.URL, "error", err)
			failed = true
		}
	}

	m.mu.Lock()
	brk := m.adBreaks[req.PeriodID]
	if brk != nil {
		for _, ad := range brk.Ads {
			if ad.AdID != req.AdID {
				continue
			}
			ad.Resolved = true
			if failed {
				ad.Invalid = true
			} else {
				ad.Manifest = manifest
				ad.DurationMS = manifest.DurationMS
			}
			break
		}
	}
	m.metrics.observeFulfilled(failed, failed)
	m.mu.Unlock()

	m.notifyResolved()
}

func (m *Manager) notifyResolved() {
	m.resolveMu.Lock()
	close(m.resolveSignal)
	m.resolveSignal = make(chan struct{})
	m.resolveMu.Unlock()
}

// WaitForNextAdResolved blocks up to timeoutMs for the next ad
// placement/resolution signal. Returns false on timeout; callers interpret
// that as "fall through to source content".
func (m *Manager) WaitForNextAdResolved(timeoutMs int) bool {
	m.resolveMu.Lock()
	ch := m.resolveSignal
	m.resolveMu.Unlock()

	select {
	case <-ch:
		return true
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return false
	}
}

// WaitForNextAdResolvedForPeriod is the periodId-qualified overload used
// when waiting on the very first ad placement for a period; the period id
// is carried only for logging, the wait mechanics are identical.
func (m *Manager) WaitForNextAdResolvedForPeriod(timeoutMs int, periodID string) bool {
	resolved := m.WaitForNextAdResolved(timeoutMs)
	if !resolved {
		m.log.Debug("timed out waiting for ad resolution", "periodId", periodID)
	}
	return resolved
}

// AbortWaitForNextAdResolved releases every WaitForNextAdResolved caller
// immediately, regardless of whether anything actually resolved.
func (m *Manager) AbortWaitForNextAdResolved() {
	m.notifyResolved()
}

// CheckForAdTerminate reports whether the currently playing ad's own
// timeline has reached or passed its duration.
func (m *Manager) CheckForAdTerminate(offsetSec float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInAdBreakPlaying || m.curAdIdx < 0 || m.curAdIdx >= len(m.curAds) {
		return false
	}
	ad := m.curAds[m.curAdIdx]
	return offsetSec*1000.0 >= float64(ad.DurationMS)
}

// CheckForAdStart returns the ad index placed at periodID/offsetSec, the
// owning break id and the ad-local offset in seconds, or -1 if that
// position isn't inside a placed ad.
func (m *Manager) CheckForAdStart(periodID string, offsetSec float64) (adIdx int, breakID string, adOffsetSec float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pd, ok := m.periodMap[periodID]
	if !ok {
		return -1, "", 0
	}
	idx, brkID, adOff, found := m.candidateAdLocked(pd, offsetSec)
	if !found {
		return -1, "", 0
	}
	return idx, brkID, adOff
}
