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

// Package mac implements the statistical MAC overlays (CSMA-CA carrier
// sense, TDMA orthogonal slots) used to discount interference and airtime
// before the SINR computation (spec component C3).
//
// Variants share one small capability (Design Note §9) rather than a
// shared base type: TxProbability and AirtimeFraction.
package mac

import "github.com/openthread/sine/types"

// Overlay is the capability every MAC variant implements.
type Overlay interface {
	// TxProbability returns Pr[interferer TX | transmitter tx], i.e. the
	// probability that node interferer is transmitting concurrently with
	// tx, conditioned on tx's own slot/carrier-sense context.
	TxProbability(topo *types.Topology, tx, interferer types.NodeId) float64
	// AirtimeFraction returns the share of channel time tx is entitled to.
	AirtimeFraction(tx types.NodeId) float64
}

// NoneOverlay is the "no MAC" variant: every other node is assumed to
// always be transmitting (worst case), per §4.3 "none" variant.
type NoneOverlay struct{}

func (NoneOverlay) TxProbability(_ *types.Topology, _, _ types.NodeId) float64 { return 1 }
func (NoneOverlay) AirtimeFraction(_ types.NodeId) float64                    { return 1 }

// CSMAOverlay implements the statistical carrier-sense deferral rule of
// §4.3. CarrierSenseMetres is R_cs for a reference link, already derived
// by the caller from the CSMA config's SNR threshold, so this package
// never has to re-derive a "reference link" itself.
type CSMAOverlay struct {
	Cfg              types.CSMAConfig
	CarrierSenseMetres float64 // R_cs, precomputed by the caller (interference engine)
	Positions        map[types.NodeId]types.Position
}

// TxProbability defers to 0 if interferer is within carrier-sense range of
// the transmitter (it would hear tx and back off); otherwise the
// configured background traffic load.
func (c CSMAOverlay) TxProbability(_ *types.Topology, tx, interferer types.NodeId) float64 {
	if interferer == tx {
		return 0
	}
	txPos, ok1 := c.Positions[tx]
	iPos, ok2 := c.Positions[interferer]
	if !ok1 || !ok2 {
		return c.Cfg.TrafficLoad
	}
	if txPos.Distance(iPos) < c.CarrierSenseMetres {
		return 0
	}
	return c.Cfg.TrafficLoad
}

func (c CSMAOverlay) AirtimeFraction(_ types.NodeId) float64 { return 1 }

// TDMAOverlay implements fixed/round-robin slot assignment with the
// orthogonality invariant of §4.3: during tx's own slots, every other
// node's TxProbability is forced to zero.
type TDMAOverlay struct {
	Cfg types.TDMAConfig
}

func (t TDMAOverlay) TxProbability(_ *types.Topology, tx, interferer types.NodeId) float64 {
	if interferer == tx {
		return 0
	}
	if t.Cfg.OwnsAnySlot(tx) {
		// Orthogonality invariant: during tx's own slot(s), no other
		// transmitter shares the channel.
		return 0
	}
	if t.Cfg.Slots <= 0 {
		return 0
	}
	return float64(t.Cfg.SlotsOwned(interferer)) / float64(t.Cfg.Slots)
}

func (t TDMAOverlay) AirtimeFraction(tx types.NodeId) float64 {
	if t.Cfg.Slots <= 0 {
		return 0
	}
	return float64(t.Cfg.SlotsOwned(tx)) / float64(t.Cfg.Slots)
}

// CarrierSenseRangeMetres returns R_cs = m * R_c. Callers pass the
// already-computed commRangeMetres (the distance at which the reference
// link's SNR equals Cfg.CommRangeSnrThresholdDb) and this helper only
// applies the carrier-sense multiplier (2.5 when unset).
func CarrierSenseRangeMetres(cfg types.CSMAConfig, commRangeMetres float64) float64 {
	m := cfg.CarrierSenseMultiplier
	if m <= 0 {
		m = 2.5
	}
	return m * commRangeMetres
}

// NewOverlay builds the Overlay for a MACConfig sum-type value (§9
// "Dynamic configuration objects -> enumerated structs").
func NewOverlay(cfg types.MACConfig, positions map[types.NodeId]types.Position, carrierSenseMetres float64) Overlay {
	switch cfg.Kind {
	case types.MACCSMA:
		return CSMAOverlay{Cfg: cfg.CSMA, CarrierSenseMetres: carrierSenseMetres, Positions: positions}
	case types.MACTDMA:
		return TDMAOverlay{Cfg: cfg.TDMA}
	default:
		return NoneOverlay{}
	}
}
