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

// Package phy implements the noise-floor, link-budget and PER computations
// of the physical layer model (spec component C1).
package phy

import (
	"math"

	"github.com/openthread/sine/types"
)

// Config holds the PHY-level knobs that are not per-node radio parameters.
type Config struct {
	GainMode      types.GainMode
	PacketBits    float64 // L_bits, default 12000
	MaxJitterMs   float64 // cap on raw delay spread
	FallbackRateM float64 // rate_mbps used when a link is down
}

// DefaultConfig matches the defaults named throughout §4.1/§4.2.
func DefaultConfig() Config {
	return Config{
		GainMode:      types.GainModeSelectionOnly,
		PacketBits:    12000,
		MaxJitterMs:   50,
		FallbackRateM: 0.1,
	}
}

const (
	boltzmannDbmHzBase = -174.0 // 10*log10(k*T0) term folded into the constant, T0=290K
)

// NoiseFloorDbm computes N_dBm = -174 + 10*log10(B_Hz) + NF_dB (§4.1).
// Two radios with identical bandwidth and noise figure share the same N,
// independent of any other configuration (§3 invariant).
func NoiseFloorDbm(bandwidthHz float64, noiseFigureDb types.DbValue) types.DbValue {
	if bandwidthHz <= 0 {
		return types.NegInf
	}
	return boltzmannDbmHzBase + 10*math.Log10(bandwidthHz) + noiseFigureDb
}

// ReceivedPowerDbm computes P_rx_dBm from a path set and the tx/rx radio
// configuration, per the Path aggregation rule in §4.1.
//
// When cfg.GainMode is GainModeAdditive, antenna gains at both ends are
// added into the link budget; under GainModeSelectionOnly (the default)
// gains are assumed to have already gated which paths were returned by the
// channel server, and are not added again here.
func ReceivedPowerDbm(cfg Config, txPowerDbm types.DbValue, tx, rx types.RadioConfig, paths types.PathSet) types.DbValue {
	mag2 := paths.CoherentSum()
	if mag2 <= 0 {
		return types.NegInf
	}
	p := txPowerDbm + 10*math.Log10(mag2)
	if cfg.GainMode == types.GainModeAdditive {
		p += tx.Antenna.GainDbi + rx.Antenna.GainDbi
	}
	return p
}

// OneWayDelayMs returns min_i tau_i in milliseconds (§4.1).
func OneWayDelayMs(paths types.PathSet) float64 {
	if len(paths.Paths) == 0 {
		return 0
	}
	return paths.MinDelaySec() * 1000
}

// JitterMs returns the delay spread bounded at cfg.MaxJitterMs (§4.1).
func JitterMs(cfg Config, paths types.PathSet) float64 {
	spread := paths.DelaySpreadSec() * 1000
	if spread > cfg.MaxJitterMs {
		return cfg.MaxJitterMs
	}
	return spread
}

// PER maps SINR through the MCS row's BER model and returns the packet
// error rate for cfg.PacketBits bits (§4.1: "PER from SINR").
//
// The BER approximation used is the standard AWGN expression for coherent
// M-ary QAM/PSK, parameterized by bits-per-symbol from the MCS row; this is
// the "precomputed or approximated with a standard expression per
// modulation" escape hatch the spec explicitly allows.
func PER(sinrDb types.DbValue, row types.MCSRow, packetBits float64) float64 {
	if math.IsInf(sinrDb, -1) || math.IsNaN(sinrDb) {
		return 1
	}
	ber := berApprox(sinrDb, row.BitsPerSymbol, row.CodeRate)
	if ber <= 0 {
		return 0
	}
	if ber >= 1 {
		return 1
	}
	per := 1 - math.Pow(1-ber, packetBits)
	if math.IsNaN(per) {
		return 1
	}
	return clamp01(per)
}

// berApprox gives the uncoded BER of M-ary QAM under AWGN via the standard
// high-SNR approximation, then applies an effective code-rate gain.
func berApprox(sinrDb types.DbValue, bitsPerSymbol, codeRate float64) float64 {
	if bitsPerSymbol <= 0 {
		bitsPerSymbol = 1
	}
	if codeRate <= 0 {
		codeRate = 1
	}
	sinrLinear := math.Pow(10, sinrDb/10)
	// Effective SINR after coding gain: a simple, monotone mapping that
	// rewards lower code rates (more redundancy) with a higher effective
	// SINR, consistent with "apply code-rate gain" in §4.1.
	effSinr := sinrLinear * (1.0 / codeRate)
	m := math.Pow(2, bitsPerSymbol)
	if m <= 2 {
		// BPSK: Q(sqrt(2*SINR))
		return qFunc(math.Sqrt(2 * effSinr))
	}
	// M-QAM approximation: BER ~ (4/log2(M)) * (1-1/sqrt(M)) * Q(sqrt(3*SINR/(M-1)))
	arg := math.Sqrt(3 * effSinr / (m - 1))
	return (4 / bitsPerSymbol) * (1 - 1/math.Sqrt(m)) * qFunc(arg)
}

// qFunc is the Gaussian tail function Q(x) = 0.5*erfc(x/sqrt2).
func qFunc(x float64) float64 {
	if x < 0 {
		return 1 - qFunc(-x)
	}
	return 0.5 * math.Erfc(x/math.Sqrt2)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MwToDbm / DbmToMw are the usual linear<->log power conversions used
// throughout the interference engine.
func MwToDbm(mw float64) types.DbValue {
	if mw <= 0 {
		return types.NegInf
	}
	return 10 * math.Log10(mw)
}

func DbmToMw(dbm types.DbValue) float64 {
	if math.IsInf(dbm, -1) {
		return 0
	}
	return math.Pow(10, dbm/10)
}
