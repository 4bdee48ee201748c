// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package types

import "math"

// Path is one ray-traced propagation path between a tx/rx pair (§6 channel
// server RPC: "paths:[{complex_gain_re, complex_gain_im, delay_s, ...}]").
type Path struct {
	GainRe, GainIm float64
	DelaySec       float64
}

// PathSet is the full channel-server response for one directed tx->rx query.
type PathSet struct {
	Paths []Path
}

// CoherentSum returns |sum(a_i)|^2, the combined-power magnitude-squared
// used by the PHY model's link budget (§4.1 "Path aggregation").
func (ps PathSet) CoherentSum() float64 {
	var re, im float64
	for _, p := range ps.Paths {
		re += p.GainRe
		im += p.GainIm
	}
	return re*re + im*im
}

// MinDelaySec returns the one-way propagation delay (§4.1: "min_i tau_i").
// Returns 0 if there are no paths.
func (ps PathSet) MinDelaySec() float64 {
	if len(ps.Paths) == 0 {
		return 0
	}
	min := ps.Paths[0].DelaySec
	for _, p := range ps.Paths[1:] {
		if p.DelaySec < min {
			min = p.DelaySec
		}
	}
	return min
}

// DelaySpreadSec returns max(tau_i) - min(tau_i), the raw jitter span
// before the configured cap is applied (§4.1).
func (ps PathSet) DelaySpreadSec() float64 {
	if len(ps.Paths) == 0 {
		return 0
	}
	min, max := ps.Paths[0].DelaySec, ps.Paths[0].DelaySec
	for _, p := range ps.Paths[1:] {
		if p.DelaySec < min {
			min = p.DelaySec
		}
		if p.DelaySec > max {
			max = p.DelaySec
		}
	}
	return max - min
}

// NegInf is the sentinel for "no propagation path" signal/SINR values (§3
// invariants: "signal_dbm = -inf, sinr_db = -inf").
var NegInf = math.Inf(-1)

// LinkParams are the derived, netem-facing outputs of one directed link
// (§3 Link "Netem outputs").
type LinkParams struct {
	SignalDbm       DbValue
	InterferenceDbm DbValue
	SNRDb           DbValue
	SINRDb          DbValue
	MCSIndex        int
	PER             float64
	DelayMs         float64
	JitterMs        float64
	LossPct         float64
	RateMbps        float64
}

// IsDown reports whether the link has no usable MCS (§4.2: sentinel -1).
func (lp LinkParams) IsDown() bool {
	return lp.MCSIndex == DownIndex
}

// DownLinkParams returns the canonical "no propagation / below threshold"
// parameter set (§3 invariants, §4.4 point 6).
func DownLinkParams(delayMs, jitterMs, fallbackRateMbps DbValue) LinkParams {
	return LinkParams{
		SignalDbm:       NegInf,
		InterferenceDbm: NegInf,
		SNRDb:           NegInf,
		SINRDb:          NegInf,
		MCSIndex:        DownIndex,
		PER:             1,
		DelayMs:         delayMs,
		JitterMs:        jitterMs,
		LossPct:         100,
		RateMbps:        fallbackRateMbps,
	}
}

// NearlyEqual reports whether two LinkParams differ by no more than eps in
// every netem-relevant field (§4.6 recompute: "differ ... by more than a
// configurable epsilon per field").
func (lp LinkParams) NearlyEqual(o LinkParams, eps LinkParams) bool {
	if lp.MCSIndex != o.MCSIndex {
		return false
	}
	return absDiff(lp.DelayMs, o.DelayMs) <= eps.DelayMs &&
		absDiff(lp.JitterMs, o.JitterMs) <= eps.JitterMs &&
		absDiff(lp.LossPct, o.LossPct) <= eps.LossPct &&
		absDiff(lp.RateMbps, o.RateMbps) <= eps.RateMbps
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// DefaultEpsilon is the default per-field tolerance for change detection.
func DefaultEpsilon() LinkParams {
	return LinkParams{
		DelayMs:  0.01,
		JitterMs: 0.01,
		LossPct:  0.1,
		RateMbps: 0.1,
	}
}
