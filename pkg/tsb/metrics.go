// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauges a DataManager reports, mirroring the
// way the teacher's cmd/livesim2/app/prometheus.go builds a small struct of
// CounterVec/GaugeVec fields and registers them once at construction time.
// Unlike the teacher's package-global prometheusMW, a DataManager takes its
// Metrics by injection (see §9 "Global singletons": the data manager is a
// per-media-type collaborator, not a process-wide instance, so its metrics
// must not be process-wide either).
type Metrics struct {
	fragmentsAdded   *prometheus.CounterVec
	fragmentsEvicted *prometheus.CounterVec
	initsEvicted     *prometheus.CounterVec
	fragmentsCached  *prometheus.GaugeVec
}

// NewMetrics builds and registers a Metrics against reg. Passing the same
// *prometheus.Registry to multiple packages lets a single /metrics endpoint
// serve both the tsb and cdai collectors, as cmd/tsbsim does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fragmentsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aamp_tsb_fragments_added_total",
			Help: "Media fragments written into the time-shift buffer index, by media type.",
		}, []string{"media"}),
		fragmentsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aamp_tsb_fragments_evicted_total",
			Help: "Media fragments evicted from the time-shift buffer index, by media type.",
		}, []string{"media"}),
		initsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aamp_tsb_inits_evicted_total",
			Help: "Init headers dropped once their last referencing fragment was evicted, by media type.",
		}, []string{"media"}),
		fragmentsCached: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aamp_tsb_fragments_cached",
			Help: "Fragments currently resident in the time-shift buffer index, by media type.",
		}, []string{"media"}),
	}
	if reg != nil {
		reg.MustRegister(m.fragmentsAdded, m.fragmentsEvicted, m.initsEvicted, m.fragmentsCached)
	}
	return m
}

func (m *Metrics) observeAdd(media MediaType) {
	if m == nil {
		return
	}
	label := media.String()
	m.fragmentsAdded.WithLabelValues(label).Inc()
	m.fragmentsCached.WithLabelValues(label).Inc()
}

func (m *Metrics) observeEvict(media MediaType, initDropped bool) {
	if m == nil {
		return
	}
	label := media.String()
	m.fragmentsEvicted.WithLabelValues(label).Inc()
	m.fragmentsCached.WithLabelValues(label).Dec()
	if initDropped {
		m.initsEvicted.WithLabelValues(label).Inc()
	}
}

func (m *Metrics) observeFlush(media MediaType, count int) {
	if m == nil || count == 0 {
		return
	}
	m.fragmentsCached.WithLabelValues(media.String()).Sub(float64(count))
}
