// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/aamptime"
)

// DataManager owns one media type's fragment index: a position-ordered map
// of fragments, the list of live init headers, and the current tail for O(1)
// linking. All operations serialize under one mutex and never block inside
// the critical section, mirroring AampTsbDataManager.
//
// Every public method here is exception-safe by construction: Go has no
// exceptions to catch, so the "absorbed and logged, neutral result" contract
// from the original collapses to simply returning a zero value.
type DataManager struct {
	mu sync.Mutex

	// positions is kept sorted ascending and mirrors the ordered map
	// std::map<double, TsbFragmentDataPtr> gave the original for free;
	// Go's builtin map has no order, so a sorted index plus a lookup map
	// stands in for it.
	positions []float64
	fragments map[float64]*Fragment

	initData        []*InitData
	currentInitData *InitData
	currHead        *Fragment

	log     *slog.Logger
	metrics *Metrics
}

// SetMetrics attaches a Metrics collector; subsequent Add/Remove/Flush calls
// report through it. Passing nil detaches metrics reporting.
func (m *DataManager) SetMetrics(metrics *Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// NewDataManager constructs an empty index. A nil logger falls back to
// slog.Default().
func NewDataManager(log *slog.Logger) *DataManager {
	if log == nil {
		log = slog.Default()
	}
	return &DataManager{
		fragments: make(map[float64]*Fragment),
		log:       log,
	}
}

// AddInitFragment creates a new init header, appends it to the init list and
// makes it the current init that subsequent AddFragment calls attach to.
func (m *DataManager) AddInitFragment(url string, media MediaType, streamInfo StreamInfo, periodID string, absPosition float64, profileIdx int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	init := newInitData(url, media, aamptime.FromSeconds(absPosition), streamInfo, periodID, profileIdx)
	m.initData = append(m.initData, init)
	m.currentInitData = init
	m.log.Info("added init fragment", "media", media, "position", absPosition, "url", url)
	return true
}

// AddFragment links writeData to the current init, appends it to the tail of
// the doubly-linked list and indexes it by absolute position. Fails if no
// init has been written yet.
func (m *DataManager) AddFragment(w WriteData, media MediaType, discont bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentInitData == nil {
		m.log.Warn("inserting fragment but init header information is missing", "position", w.AbsPosition)
		return false
	}

	m.currentInitData.IncrementUser()
	frag := newFragment(
		w.URL, media,
		aamptime.FromSeconds(w.AbsPosition), aamptime.FromSeconds(w.Duration), aamptime.FromSeconds(w.PTS),
		discont, w.PeriodID, m.currentInitData, w.TimeScale, aamptime.FromSeconds(w.PTSOffsetSec),
	)

	if m.currHead != nil {
		frag.Prev = m.currHead
		m.currHead.Next = frag
	}
	m.currHead = frag

	m.insertPosition(w.AbsPosition, frag)
	m.log.Info("added fragment", "media", media, "position", w.AbsPosition, "discontinuous", discont)
	m.metrics.observeAdd(media)
	return true
}

// insertPosition indexes frag at position, preserving ascending sort order.
// A position already present is overwritten in place rather than
// duplicated — this matches the observed `mTsbFragmentData[position] =
// mCurrHead` behavior of the original rather than adding new validation for
// an open question the source left unresolved.
func (m *DataManager) insertPosition(position float64, frag *Fragment) {
	idx := sort.SearchFloat64s(m.positions, position)
	if idx < len(m.positions) && m.positions[idx] == position {
		m.fragments[position] = frag
		return
	}
	m.positions = append(m.positions, 0)
	copy(m.positions[idx+1:], m.positions[idx:])
	m.positions[idx] = position
	m.fragments[position] = frag
}

// GetFragment returns the fragment at an exact position match, or nil. eos
// is true iff that fragment is the last one in the index.
func (m *DataManager) GetFragment(position float64) (frag *Fragment, eos bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return nil, false
	}
	f, ok := m.fragments[position]
	if !ok {
		return nil, false
	}
	eos = m.positions[len(m.positions)-1] == position
	return f, eos
}

// GetNearestFragment returns the fragment whose position is closest to
// position, ties resolved to the later one. Returns nil on an empty index.
func (m *DataManager) GetNearestFragment(position float64) *Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return nil
	}

	idx := sort.SearchFloat64s(m.positions, position)
	if idx == 0 {
		return m.fragments[m.positions[0]]
	}
	if idx == len(m.positions) {
		return m.fragments[m.positions[idx-1]]
	}

	lowerPos := m.positions[idx]
	prevPos := m.positions[idx-1]
	if lowerPos-position <= position-prevPos {
		return m.fragments[lowerPos]
	}
	return m.fragments[prevPos]
}

// IsFragmentPresent reports whether position lies within [firstPos, lastPos].
func (m *DataManager) IsFragmentPresent(position float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return false
	}
	return m.positions[0] <= position && m.positions[len(m.positions)-1] >= position
}

// GetFirstFragment returns the oldest fragment, or nil if the index is empty.
func (m *DataManager) GetFirstFragment() *Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return nil
	}
	return m.fragments[m.positions[0]]
}

// GetLastFragment returns the newest fragment, or nil if the index is empty.
func (m *DataManager) GetLastFragment() *Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return nil
	}
	return m.fragments[m.positions[len(m.positions)-1]]
}

// GetFirstFragmentPosition returns the absolute position of the oldest
// fragment, or 0 if the index is empty.
func (m *DataManager) GetFirstFragmentPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return 0.0
	}
	return m.positions[0]
}

// GetLastFragmentPosition returns the absolute position of the newest
// fragment, or 0 if the index is empty.
func (m *DataManager) GetLastFragmentPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return 0.0
	}
	return m.positions[len(m.positions)-1]
}

// RemoveFragment pops the oldest fragment. deleteInit reports whether the
// init it referenced was also removed, because its refcount reached zero.
func (m *DataManager) RemoveFragment() (removed *Fragment, deleteInit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) == 0 {
		return nil, false
	}

	pos := m.positions[0]
	frag := m.fragments[pos]

	init := frag.InitFragData()
	init.DecrementUser()
	if init.Users() == 0 {
		m.log.Info("removing init fragment", "bandwidth", init.BandWidth())
		deleteInit = true
		m.removeInit(init)
	}

	if frag.Next != nil {
		frag.Next.Prev = nil
	}

	m.positions = m.positions[1:]
	delete(m.fragments, pos)
	m.metrics.observeEvict(frag.MediaType(), deleteInit)

	return frag, deleteInit
}

// RemoveFragments removes every fragment whose position is strictly less
// than position, returning them in ascending order.
func (m *DataManager) RemoveFragments(position float64) []*Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []*Fragment
	n := 0
	for n < len(m.positions) && m.positions[n] < position {
		pos := m.positions[n]
		frag := m.fragments[pos]

		init := frag.InitFragData()
		init.DecrementUser()
		initDropped := false
		if init.Users() == 0 {
			m.log.Info("removing init fragment, no more fragments reference it", "bandwidth", init.BandWidth())
			initDropped = true
			m.removeInit(init)
		}

		if frag.Next != nil {
			frag.Next.Prev = nil
		}

		removed = append(removed, frag)
		delete(m.fragments, pos)
		m.metrics.observeEvict(frag.MediaType(), initDropped)
		n++
	}
	m.positions = m.positions[n:]

	return removed
}

func (m *DataManager) removeInit(init *InitData) {
	for i, cand := range m.initData {
		if cand == init {
			m.initData = append(m.initData[:i], m.initData[i+1:]...)
			return
		}
	}
}

// GetNextDiscFragment scans from the lower-bound of position toward
// increasing (or, if backward is true, decreasing) positions for the first
// fragment with IsDiscontinuous set. Returns nil if none is found.
func (m *DataManager) GetNextDiscFragment(position float64, backward bool) *Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := sort.SearchFloat64s(m.positions, position)

	if !backward {
		for i := idx; i < len(m.positions); i++ {
			f := m.fragments[m.positions[i]]
			if f.IsDiscontinuous() {
				return f
			}
		}
		return nil
	}

	// idx from SearchFloat64s is the lower bound: if position matches an
	// indexed key exactly, start the backward scan there instead of at
	// idx-1, so that exact match is itself eligible (pos <= position).
	start := idx - 1
	if idx < len(m.positions) && m.positions[idx] == position {
		start = idx
	}

	for i := start; i >= 0; i-- {
		f := m.fragments[m.positions[i]]
		if f.IsDiscontinuous() {
			return f
		}
	}
	return nil
}

// Flush clears the index, the init list and the current-init pointer.
func (m *DataManager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info("flush tsb data")
	if m.metrics != nil {
		byMedia := make(map[MediaType]int)
		for _, f := range m.fragments {
			byMedia[f.MediaType()]++
		}
		for media, count := range byMedia {
			m.metrics.observeFlush(media, count)
		}
	}
	m.positions = nil
	m.fragments = make(map[float64]*Fragment)
	m.initData = nil
	m.currentInitData = nil
	m.currHead = nil
}
