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

// AntennaConfig describes a radio's antenna pattern and gain (§3 Node).
type AntennaConfig struct {
	Pattern string  // "omni", "sector", ... (selection-only; no directional math modeled)
	GainDbi DbValue
}

// RadioConfig holds the immutable wireless parameters of a node's radio (§3 Node).
type RadioConfig struct {
	FrequencyHz  float64
	BandwidthHz  float64
	TxPowerDbm   DbValue
	Antenna      AntennaConfig
	NoiseFigureDb DbValue
}

// CSMAConfig parameterizes the CSMA-CA MAC overlay (§4.3).
type CSMAConfig struct {
	// CommRangeSnrThresholdDb is the SNR at which a reference link just
	// meets "communication range" R_c.
	CommRangeSnrThresholdDb DbValue
	// CarrierSenseMultiplier is m in R_cs = m * R_c (default ~2.5).
	CarrierSenseMultiplier float64
	// TrafficLoad is Pr[transmit] for an interferer outside carrier-sense
	// range (default 0.3). Single global scalar per spec §9 Open Question.
	TrafficLoad float64
}

func DefaultCSMAConfig() CSMAConfig {
	return CSMAConfig{
		CommRangeSnrThresholdDb: 40.4,
		CarrierSenseMultiplier:  2.5,
		TrafficLoad:             0.3,
	}
}

// TDMAConfig parameterizes the TDMA MAC overlay (§4.3).
type TDMAConfig struct {
	Slots int
	// Owner maps slot index -> node name ("" for unowned).
	Owner []NodeId
}

// SlotsOwned returns how many of the frame's slots belong to node.
func (c TDMAConfig) SlotsOwned(node NodeId) int {
	n := 0
	for _, owner := range c.Owner {
		if owner == node {
			n++
		}
	}
	return n
}

// OwnsAnySlot reports whether node owns at least one slot (used to decide
// the orthogonality overlay applies at all).
func (c TDMAConfig) OwnsAnySlot(node NodeId) bool {
	return c.SlotsOwned(node) > 0
}

// MACConfig is the sum type over MAC overlay variants (Design Note §9).
// Exactly one of the typed fields is meaningful, selected by Kind.
type MACConfig struct {
	Kind MACKind
	CSMA CSMAConfig
	TDMA TDMAConfig
}

func DefaultMACConfig() MACConfig {
	return MACConfig{Kind: MACNone}
}

// MCSRow is one row of the modulation/coding-scheme threshold table (§4.2, §6).
type MCSRow struct {
	Index        int
	Modulation   string
	BitsPerSymbol float64
	CodeRate     float64
	MinSNRDb     DbValue
	FECType      string
	BandwidthMHz float64
}

// MCSTable is the process-wide, read-only-after-load MCS table (Design Note §9).
// Rows are sorted ascending by MinSNRDb.
type MCSTable struct {
	Rows []MCSRow
}

// DownIndex is the sentinel MCS index meaning "link down" (§4.2).
const DownIndex = -1
