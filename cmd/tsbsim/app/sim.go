// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/cdai"
	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/tsb"
)

// Sim owns the DataManager, the readers tuned against it, and the CDAI
// manager, and runs a writer goroutine alongside an injector goroutine the
// way the teacher's cmaf-ingester/livesim2 pairing runs a receiver alongside
// a request-serving mux.
type Sim struct {
	cfg *Config
	log *slog.Logger

	DataMgr  *tsb.DataManager
	Video    *tsb.Reader
	Ads      *cdai.Manager
	Registry *prometheus.Registry

	position       float64
	periodIdx      int
	fragInPeriod   int
	periodsWritten int32

	mu            sync.Mutex
	lastInjected  *tsb.Fragment
	injectedCount int64
}

// NewSim builds a Sim from cfg. The ad manager's fulfillment fetcher/parser
// are left nil: the simulation never registers a real ad URL, so every
// fulfillment would fail anyway, and the manager already degrades
// gracefully to invalid=true in that case.
func NewSim(cfg *Config, log *slog.Logger) *Sim {
	dataMgr := tsb.NewDataManager(log)
	ads := cdai.NewManager(nil, nil, cdai.NopEventSink{}, cdai.RealClock{}, log)

	reg := prometheus.NewRegistry()
	dataMgr.SetMetrics(tsb.NewMetrics(reg))
	ads.SetMetrics(cdai.NewMetrics(reg))

	return &Sim{
		cfg:      cfg,
		log:      log,
		DataMgr:  dataMgr,
		Video:    tsb.NewReader(dataMgr, tsb.Video, log),
		Ads:      ads,
		Registry: reg,
	}
}

func (s *Sim) periodID() string {
	return fmt.Sprintf("period-%d", s.periodIdx)
}

// Run starts the writer and injector loops, blocking until ctx is
// cancelled.
func (s *Sim) Run(ctx context.Context) {
	s.Ads.StartFulfillAdLoop()
	defer s.Ads.StopFulfillAdLoop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.injectLoop(ctx)
	}()
	wg.Wait()
}

// writeLoop appends one fragment per tick, rolling over to a new period
// every PeriodFragmentCount fragments and, every AdBreakAfterPeriods
// periods, opening a simulated adbreak and placing it.
func (s *Sim) writeLoop(ctx context.Context) {
	tick := time.NewTicker(time.Duration(s.cfg.FragmentDurationMS) * time.Millisecond)
	defer tick.Stop()

	durSec := float64(s.cfg.FragmentDurationMS) / 1000.0

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if s.fragInPeriod == 0 {
				s.DataMgr.AddInitFragment(s.periodID()+"/init.mp4", tsb.Video, tsb.StreamInfo{BandwidthBitsPerSecond: 4_000_000}, s.periodID(), s.position, 0)
				s.onPeriodStart()
			}

			w := tsb.WriteData{
				URL:         fmt.Sprintf("%s/frag-%d.m4s", s.periodID(), s.fragInPeriod),
				AbsPosition: s.position,
				Duration:    durSec,
				PTS:         s.position,
				PeriodID:    s.periodID(),
				TimeScale:   90000,
			}
			s.DataMgr.AddFragment(w, tsb.Video, false)
			s.log.Debug("wrote fragment", "periodId", w.PeriodID, "position", w.AbsPosition)

			s.mu.Lock()
			s.position += durSec
			s.fragInPeriod++
			if s.fragInPeriod >= s.cfg.PeriodFragmentCount {
				s.fragInPeriod = 0
				s.periodIdx++
				atomic.AddInt32(&s.periodsWritten, 1)
			}
			s.mu.Unlock()
		}
	}
}

// onPeriodStart simulates discovering an adbreak signal at the start of a
// period, the way a player would after parsing event streams in a live
// manifest update.
func (s *Sim) onPeriodStart() {
	if s.cfg.AdBreakAfterPeriods <= 0 {
		return
	}
	if s.periodIdx == 0 || s.periodIdx%s.cfg.AdBreakAfterPeriods != 0 {
		return
	}
	breakID := s.periodID()
	breakDurationMS := uint32(s.cfg.PeriodFragmentCount * s.cfg.FragmentDurationMS)

	ptsTicks90k := uint64(s.position * 90000)
	signal := cdai.EncodeSpliceInsertSignal(uint32(s.periodIdx), ptsTicks90k, uint64(breakDurationMS)*90)

	s.Ads.SetAlternateContents(breakID, breakID+"-ad1", fmt.Sprintf("http://ads.invalid/%s/ad1.mpd", breakID), 0, breakDurationMS)
	s.Ads.BeginPlacement(breakID, breakID)
	s.log.Info("simulated adbreak signalled", "breakId", breakID, "scte35", signal)
}

// injectLoop periodically advances Video past whatever the writer has
// appended so far, mirroring the player's fragment-pump thread reading from
// AampTsbReader.
func (s *Sim) injectLoop(ctx context.Context) {
	tick := time.NewTicker(time.Duration(s.cfg.FragmentDurationMS) * time.Millisecond / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			// Reading the writer's current tail sets forward EOS; clear it
			// so fragments appended later are still picked up.
			if s.Video.IsEos() {
				s.Video.ResetEos()
			}
			if !s.Video.TrackEnabled() {
				// The writer hasn't produced anything yet, or the reader
				// hasn't picked up the first fragment; Init is a no-op once
				// it has already succeeded.
				if _, err := s.Video.Init(0, tsb.NormalPlayRate, tsb.TuneTypeNewNormal, nil); err != nil {
					s.log.Error("reader init failed", "error", err)
					continue
				}
				if !s.Video.TrackEnabled() {
					continue
				}
			}

			next := s.Video.FindNext()
			if next == nil {
				continue
			}
			s.Video.ReadNext(next)

			s.mu.Lock()
			s.lastInjected = next
			s.injectedCount++
			s.mu.Unlock()

			if s.Video.IsPeriodBoundary() {
				s.Ads.PlaceAds(s.knownPeriods())
			}
		}
	}
}

// knownPeriods reports every period the writer has completed so far, in
// play order, for cdai.Manager.PlaceAds to walk.
func (s *Sim) knownPeriods() []cdai.PeriodInfo {
	n := int(atomic.LoadInt32(&s.periodsWritten))
	periods := make([]cdai.PeriodInfo, 0, n)
	for i := 0; i < n; i++ {
		periods = append(periods, cdai.PeriodInfo{
			ID:         fmt.Sprintf("period-%d", i),
			DurationMS: uint64(s.cfg.PeriodFragmentCount * s.cfg.FragmentDurationMS),
		})
	}
	return periods
}

// Snapshot is the JSON-friendly diagnostic view served over /status.
type Snapshot struct {
	Position        float64 `json:"position"`
	PeriodIdx       int     `json:"periodIdx"`
	InjectedCount   int64   `json:"injectedCount"`
	LastInjectedURL string  `json:"lastInjectedUrl,omitempty"`
	AdState         string  `json:"adState"`
}

func (s *Sim) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Position:      s.position,
		PeriodIdx:     s.periodIdx,
		InjectedCount: s.injectedCount,
		AdState:       s.Ads.State().String(),
	}
	if s.lastInjected != nil {
		snap.LastInjectedURL = s.lastInjected.URL()
	}
	return snap
}
