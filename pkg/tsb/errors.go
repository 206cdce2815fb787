// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package tsb

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataManager is returned by Init when the reader has no backing
	// DataManager to query.
	ErrNoDataManager = errors.New("no data manager for this media type")

	// ErrNoFragmentAvailable is returned by Init when a nearest fragment
	// could not be resolved even though the index is non-empty.
	ErrNoFragmentAvailable = errors.New("no fragment available at requested position")
)

// SeekRangeError reports a negative start position passed to Reader.Init,
// the one method in this package that returns a status instead of a
// null/empty/false neutral result.
type SeekRangeError struct {
	requestedSec float64
}

func newSeekRangeError(requestedSec float64) SeekRangeError {
	return SeekRangeError{requestedSec: requestedSec}
}

func (e SeekRangeError) Error() string {
	return fmt.Sprintf("seek range error: negative position requested %fs", e.requestedSec)
}
