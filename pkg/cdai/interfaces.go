// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"context"
	"time"
)

// HTTPFetcher abstracts the player's HTTP facility used to download an ad's
// own manifest. Tests supply a fake; production wiring uses NewHTTPFetcher.
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, int, error)
}

// ManifestParser turns a downloaded ad manifest into an AdManifest.
// Production wiring is DashManifestParser, over Eyevinn/dash-mpd.
type ManifestParser interface {
	Parse(data []byte) (*AdManifest, error)
}

// EventSink receives the reservation/placement notifications the state
// machine emits on each transition. A player wires this to its own event
// bus; tests record calls in a slice.
type EventSink interface {
	EmitReservation(kind, breakID string, positionMS int64)
	EmitPlacement(kind, adID string, positionMS, absoluteMS int64, offsetMS, durationMS int64, errCode int)
}

// Clock abstracts wall-clock time so tests can control it.
type Clock interface {
	NowMS() int64
}

// NopEventSink discards every event. Useful when a caller only cares about
// state and placement results, not the notification stream.
type NopEventSink struct{}

func (NopEventSink) EmitReservation(kind, breakID string, positionMS int64) {}
func (NopEventSink) EmitPlacement(kind, adID string, positionMS, absoluteMS, offsetMS, durationMS int64, errCode int) {
}

// RealClock wraps time.Now for production use.
type RealClock struct{}

func (RealClock) NowMS() int64 {
	return time.Now().UnixMilli()
}
