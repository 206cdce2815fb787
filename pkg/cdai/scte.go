// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cdai

import (
	"encoding/base64"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/scte35"
)

// EncodeSpliceInsertSignal builds the base64 SCTE-35 splice_insert payload
// a source MPD's EventStream carries at an adbreak boundary, reusing
// pkg/scte35's splice_insert encoder. A source simulator (cmd/tsbsim) uses
// this to synthesize the signal that would normally drive
// Manager.SetAlternateContents once a player's SCTE-35 listener decodes it.
func EncodeSpliceInsertSignal(eventID uint32, ptsTime90k, durationTicks90k uint64) string {
	payload := scte35.CreateSpliceInsertPayload(scte35.SpliceInsertParams{
		PtsTime:               ptsTime90k,
		Duration:              durationTicks90k,
		SpliceEventID:         eventID,
		Tier:                  4095,
		OutOfNetworkIndicator: true,
		AutoReturn:            true,
	})
	return base64.StdEncoding.EncodeToString(payload)
}
