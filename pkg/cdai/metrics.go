// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauge a Manager reports, built the same way
// as pkg/tsb.Metrics and the teacher's cmd/livesim2/app/prometheus.go: a
// small struct of CounterVec/GaugeVec fields registered once against a
// caller-supplied registry, never a package-global.
type Metrics struct {
	adsResolved   *prometheus.CounterVec
	fulfillErrors prometheus.Counter
	state         *prometheus.GaugeVec
}

// NewMetrics builds and registers a Metrics against reg. reg may be nil, in
// which case the collectors are created but never exposed.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		adsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aamp_cdai_ads_resolved_total",
			Help: "Ad fulfillment outcomes, partitioned by whether the ad resolved valid or invalid.",
		}, []string{"outcome"}),
		fulfillErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aamp_cdai_fulfill_errors_total",
			Help: "Ad manifest fetch or parse failures during fulfillment.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aamp_cdai_state",
			Help: "1 for the ad-state machine's current state, 0 for all others.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(m.adsResolved, m.fulfillErrors, m.state)
	}
	return m
}

func (m *Metrics) observeFulfilled(invalid bool, hadError bool) {
	if m == nil {
		return
	}
	if invalid {
		m.adsResolved.WithLabelValues("invalid").Inc()
	} else {
		m.adsResolved.WithLabelValues("valid").Inc()
	}
	if hadError {
		m.fulfillErrors.Inc()
	}
}

func (m *Metrics) observeState(s State) {
	if m == nil {
		return
	}
	for _, candidate := range []State{
		StateOutsideAdBreak, StateOutsideAdBreakWait4Ads, StateInAdBreakPlaying,
		StateInAdBreakNotPlaying, StateInAdBreakWait2Catchup,
	} {
		if candidate == s {
			m.state.WithLabelValues(candidate.String()).Set(1)
		} else {
			m.state.WithLabelValues(candidate.String()).Set(0)
		}
	}
}
