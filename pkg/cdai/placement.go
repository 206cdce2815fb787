// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

// PlaceAds walks every pending placement across periods (given in play
// order, starting from the period the placement was parked at) attributing
// successive source milliseconds to the open adbreak's ads. A placement
// that runs off the end of periods before its break is fully placed is
// re-parked for the next call; one that exhausts its break sets
// AdBreak.Placed and records where source content resumes.
func (m *Manager) PlaceAds(periods []PeriodInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.pendingPlacements
	m.pendingPlacements = nil

	for _, p := range pending {
		m.advancePlacement(p, periods)
	}
}

// BeginPlacement queues a placement cursor for breakID, recording
// startPeriodID as its open period; it is a no-op if one is already parked
// for this break. The walk itself starts at the first entry of the periods
// slice passed to PlaceAds, not at a lookup of startPeriodID.
func (m *Manager) BeginPlacement(breakID, startPeriodID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pendingPlacements {
		if p.PendingAdBreakID == breakID {
			return
		}
	}
	m.pendingPlacements = append(m.pendingPlacements, Placement{
		PendingAdBreakID: breakID,
		OpenPeriodID:     startPeriodID,
	})
}

func (m *Manager) periodEntry(periodID, breakID string, durationMS uint64) *Period2AdData {
	pd, ok := m.periodMap[periodID]
	if !ok {
		pd = &Period2AdData{AdBreakID: breakID, DurationMS: durationMS, Offset2Ad: make(map[int]AdOnPeriod)}
		m.periodMap[periodID] = pd
	}
	return pd
}

// advancePlacement resumes one placement cursor. Held under m.mu by its one
// caller, PlaceAds. It resumes from PeriodsConsumed rather than matching
// OpenPeriodID, so a period this break already fully consumed is never
// re-walked just because the caller's period slice still includes it.
func (m *Manager) advancePlacement(p Placement, periods []PeriodInfo) {
	brk := m.adBreaks[p.PendingAdBreakID]
	if brk == nil {
		return
	}

	startIdx := p.PeriodsConsumed
	if startIdx >= len(periods) {
		// No new periods since this placement was parked; keep waiting.
		m.pendingPlacements = append(m.pendingPlacements, p)
		return
	}

	curAdIdx := p.CurAdIdx
	adNextOffsetMS := p.AdNextOffsetMS
	offsetInPeriodMS := p.CurOffsetInPeriodMS

	for i := startIdx; i < len(periods); i++ {
		period := periods[i]
		pd := m.periodEntry(period.ID, brk.ID, period.DurationMS)
		pd.Filled = true

		for offsetInPeriodMS < period.DurationMS {
			if curAdIdx >= len(brk.Ads) {
				brk.Placed = true
				brk.EndPeriodID = period.ID
				brk.EndPeriodOffsetMS = offsetInPeriodMS
				return
			}

			ad := brk.Ads[curAdIdx]
			if ad.Invalid {
				curAdIdx++
				adNextOffsetMS = 0
				continue
			}
			if !ad.Resolved {
				p.OpenPeriodID = period.ID
				p.PeriodsConsumed = i
				p.CurOffsetInPeriodMS = offsetInPeriodMS
				p.CurAdIdx = curAdIdx
				p.AdNextOffsetMS = adNextOffsetMS
				m.pendingPlacements = append(m.pendingPlacements, p)
				return
			}

			remainInAd := uint64(ad.DurationMS) - uint64(adNextOffsetMS)
			remainInPeriod := period.DurationMS - offsetInPeriodMS
			step := remainInAd
			if remainInPeriod < step {
				step = remainInPeriod
			}

			pd.Offset2Ad[int(offsetInPeriodMS)] = AdOnPeriod{AdIdx: curAdIdx, AdStartOffsetMS: adNextOffsetMS}
			offsetInPeriodMS += step
			adNextOffsetMS += uint32(step)

			if ad.DurationMS-uint64(adNextOffsetMS) <= OffsetAlignFactorMS {
				ad.Placed = true
				curAdIdx++
				adNextOffsetMS = 0
			}
		}

		// The break can also finish exactly on a period boundary, which the
		// while loop above never re-checks once its own condition goes false.
		if curAdIdx >= len(brk.Ads) {
			brk.Placed = true
			if i+1 < len(periods) {
				brk.EndPeriodID = periods[i+1].ID
				brk.EndPeriodOffsetMS = 0
			} else {
				p.OpenPeriodID = period.ID
				p.PeriodsConsumed = i + 1
				p.CurOffsetInPeriodMS = 0
				p.CurAdIdx = curAdIdx
				p.AdNextOffsetMS = adNextOffsetMS
				p.WaitForNextPeriod = true
				m.pendingPlacements = append(m.pendingPlacements, p)
			}
			return
		}
		offsetInPeriodMS = 0
	}

	// Ran out of periods before the break was fully placed; every period in
	// this call was fully consumed, so resume at the next one once it exists.
	p.OpenPeriodID = periods[len(periods)-1].ID
	p.PeriodsConsumed = len(periods)
	p.CurOffsetInPeriodMS = 0
	p.CurAdIdx = curAdIdx
	p.AdNextOffsetMS = adNextOffsetMS
	p.WaitForNextPeriod = true
	m.pendingPlacements = append(m.pendingPlacements, p)
}
