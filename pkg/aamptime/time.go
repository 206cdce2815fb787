// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package aamptime provides an integer-nanosecond-backed time value used
// throughout the TSB and CDAI packages for absolute wall-clock positions.
//
// A plain float64 seconds value accumulates epsilon error once enough
// arithmetic has been done on it, which is fatal when two positions that
// should compare equal (because they were derived from the same
// (ticks, timescale) pair) are instead off by a few nanoseconds. Time
// keeps its state as an integer in a fixed ns base and only converts to
// float64 at API boundaries.
package aamptime

import (
	"math"
	"strconv"
)

// Base is the internal timescale Time is stored in.
const Base int64 = 1_000_000_000 // nanoseconds

// Ticks is a (ticks, timescale) pair as found in ISO-BMFF boxes such as
// tfdt. Converting it to a Time is lossy: the original ticks cannot be
// recovered from the resulting Time.
type Ticks struct {
	Ticks     int64
	Timescale uint32
}

// Milliseconds returns the tick value converted to whole milliseconds.
func (t Ticks) Milliseconds() int64 {
	return (t.Ticks * 1000) / int64(t.Timescale)
}

// Time is a scalar time value with an integer nanosecond base.
type Time struct {
	baseTime int64
}

// FromSeconds constructs a Time from a float64 number of seconds.
func FromSeconds(seconds float64) Time {
	return Time{baseTime: int64(seconds * float64(Base))}
}

// FromTicks constructs a Time from a (ticks, timescale) pair. Lossy and
// one-way: the original ticks cannot be recovered from the result.
func FromTicks(t Ticks) Time {
	return Time{baseTime: (t.Ticks * Base) / int64(t.Timescale)}
}

// Seconds returns the stored time truncated to whole seconds.
func (t Time) Seconds() int64 {
	return t.baseTime / Base
}

// Milliseconds returns the stored time truncated to whole milliseconds.
func (t Time) Milliseconds() int64 {
	return t.baseTime / (Base / 1000)
}

// InSeconds returns the stored time as a float64 number of seconds.
func (t Time) InSeconds() float64 {
	return float64(t.baseTime) / float64(Base)
}

// NearestSecond rounds the stored time to the nearest second, halves
// rounding up (0.5 -> 1, not banker's rounding).
func (t Time) NearestSecond() int64 {
	whole := t.Seconds()
	frac := t.baseTime - whole*Base
	if frac >= Base/2 {
		whole++
	}
	return whole
}

// Equal reports exact equality on the integer base.
func (t Time) Equal(o Time) bool {
	return t.baseTime == o.baseTime
}

// EqualSeconds reports exact equality against a float64 seconds value,
// after truncating the double side to the base timescale. No epsilon.
func (t Time) EqualSeconds(seconds float64) bool {
	return t.baseTime == int64(seconds*float64(Base))
}

func (t Time) Before(o Time) bool {
	return t.baseTime < o.baseTime
}

func (t Time) After(o Time) bool {
	return t.baseTime > o.baseTime
}

func (t Time) BeforeOrEqual(o Time) bool {
	return t.baseTime <= o.baseTime
}

func (t Time) AfterOrEqual(o Time) bool {
	return t.baseTime >= o.baseTime
}

func (t Time) BeforeSeconds(seconds float64) bool {
	return t.baseTime < int64(seconds*float64(Base))
}

func (t Time) AfterSeconds(seconds float64) bool {
	return t.baseTime > int64(seconds*float64(Base))
}

// Neg returns the unary negation of t.
func (t Time) Neg() Time {
	return Time{baseTime: -t.baseTime}
}

// Add returns t+o.
func (t Time) Add(o Time) Time {
	return Time{baseTime: t.baseTime + o.baseTime}
}

// AddSeconds returns t plus a float64 number of seconds.
func (t Time) AddSeconds(seconds float64) Time {
	return Time{baseTime: t.baseTime + int64(seconds*float64(Base))}
}

// Sub returns t-o.
func (t Time) Sub(o Time) Time {
	return Time{baseTime: t.baseTime - o.baseTime}
}

// SubSeconds returns t minus a float64 number of seconds.
func (t Time) SubSeconds(seconds float64) Time {
	return Time{baseTime: t.baseTime - int64(seconds*float64(Base))}
}

// Mul returns t scaled by a float64 factor.
func (t Time) Mul(factor float64) Time {
	return Time{baseTime: int64(float64(t.baseTime) * factor)}
}

// Div returns t divided by a float64 factor.
func (t Time) Div(factor float64) Time {
	return Time{baseTime: int64(float64(t.baseTime) / factor)}
}

// String prints the stored time as seconds, matching the original's
// stream-insertion operator which prints InSeconds().
func (t Time) String() string {
	return strconv.FormatFloat(t.InSeconds(), 'f', -1, 64)
}

// Abs mirrors the free function abs(AampTime) from the original, which
// delegates to the double analogue of the seconds-as-double value.
func Abs(t Time) float64 {
	return math.Abs(t.InSeconds())
}

// Fabs mirrors fabs(AampTime).
func Fabs(t Time) float64 {
	return math.Abs(t.InSeconds())
}

// Round mirrors round(AampTime).
func Round(t Time) float64 {
	return math.Round(t.InSeconds())
}

// Floor mirrors floor(AampTime).
func Floor(t Time) float64 {
	return math.Floor(t.InSeconds())
}
