// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"fmt"

	m "github.com/Eyevinn/dash-mpd/mpd"
)

// DashManifestParser is the production ManifestParser: it reads an ad's own
// MPD and sums its periods' declared durations the same way
// cmd/dashfetcher/app/fetcher.go reads the source MPD to walk its periods.
type DashManifestParser struct{}

// NewDashManifestParser returns a ready-to-use DashManifestParser.
func NewDashManifestParser() *DashManifestParser {
	return &DashManifestParser{}
}

func (p *DashManifestParser) Parse(data []byte) (*AdManifest, error) {
	mpd, err := m.ReadFromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse ad manifest: %w", err)
	}

	var totalDurMS uint64
	for _, period := range mpd.Periods {
		d, err := period.GetDuration()
		if err != nil {
			continue
		}
		totalDurMS += uint64(d / 1_000_000)
	}

	return &AdManifest{DurationMS: totalDurMS, MPD: mpd}, nil
}
