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

// Package interference computes, for each directed link, the combined
// signal and interference power, SINR, MCS selection and resulting netem
// parameters (spec component C4). It is the point where C1 (phy), C2
// (mcs) and C3 (mac) are composed.
package interference

import (
	"context"
	"math"

	"github.com/openthread/sine/mac"
	"github.com/openthread/sine/mcs"
	"github.com/openthread/sine/phy"
	"github.com/openthread/sine/types"
)

// PathSource abstracts the channel-server RPC so this package stays a pure
// function of its inputs in tests (§8 testable properties).
type PathSource interface {
	Paths(ctx context.Context, tx, rx types.RadioConfig, txPos, rxPos types.Position) (types.PathSet, error)
}

// Engine evaluates C4 for a topology, given a PathSource and per-link MCS
// memory owned by the caller (the orchestrator; Design Note §9: "do not
// smuggle [MCS memory] through recursive channel-server calls").
type Engine struct {
	Phy    phy.Config
	Source PathSource
}

func NewEngine(phyCfg phy.Config, source PathSource) *Engine {
	return &Engine{Phy: phyCfg, Source: source}
}

// Evaluate implements the seven steps of §4.4 for one directed link
// tx->rx within topo. prevMCS is the sticky previous index (-1 if none).
func (e *Engine) Evaluate(ctx context.Context, topo *types.Topology, selector *mcs.Selector, tx, rx types.NodeId, prevMCS int) (types.LinkParams, error) {
	txNode, rxNode := topo.Nodes[tx], topo.Nodes[rx]
	if txNode == nil || rxNode == nil || !txNode.HasWireless() || !rxNode.HasWireless() {
		return types.DownLinkParams(0, 0, e.Phy.FallbackRateM), nil
	}

	sigPaths, err := e.Source.Paths(ctx, txNode.Link.Radio, rxNode.Link.Radio, txNode.Position, rxNode.Position)
	if err != nil {
		return types.LinkParams{}, err
	}
	signalDbm := phy.ReceivedPowerDbm(e.Phy, txNode.Link.Radio.TxPowerDbm, txNode.Link.Radio, rxNode.Link.Radio, sigPaths)
	noiseDbm := phy.NoiseFloorDbm(rxNode.Link.Radio.BandwidthHz, rxNode.Link.Radio.NoiseFigureDb)

	commRangeM := referenceRangeMetres(txNode.Link.Radio, rxNode.Link.Radio, txNode.Link.MAC)
	positions := positionsOf(topo)
	var csMetres float64
	if txNode.Link.MAC.Kind == types.MACCSMA {
		csMetres = mac.CarrierSenseRangeMetres(txNode.Link.MAC.CSMA, commRangeM)
	}
	overlay := mac.NewOverlay(txNode.Link.MAC, positions, csMetres)

	interferenceMw := 0.0
	for _, name := range topo.OrderedNodeNames() {
		if name == tx || name == rx {
			continue
		}
		iNode := topo.Nodes[name]
		if iNode == nil || !iNode.HasWireless() {
			continue
		}
		pr := overlay.TxProbability(topo, tx, name)
		if pr <= 0 {
			continue
		}
		iPaths, err := e.Source.Paths(ctx, iNode.Link.Radio, rxNode.Link.Radio, iNode.Position, rxNode.Position)
		if err != nil {
			return types.LinkParams{}, err
		}
		iDbm := phy.ReceivedPowerDbm(e.Phy, iNode.Link.Radio.TxPowerDbm, iNode.Link.Radio, rxNode.Link.Radio, iPaths)
		interferenceMw += pr * phy.DbmToMw(iDbm)
	}

	signalMw := phy.DbmToMw(signalDbm)
	noiseMw := phy.DbmToMw(noiseDbm)
	sinrDb := sinrDbOf(signalMw, noiseMw, interferenceMw)
	snrDb := sinrDbOf(signalMw, noiseMw, 0)

	newIdx := selector.Select(sinrDb, prevMCS)
	delayMs := phy.OneWayDelayMs(sigPaths)
	jitterMs := phy.JitterMs(e.Phy, sigPaths)

	if newIdx == types.DownIndex {
		lp := types.DownLinkParams(delayMs, jitterMs, e.Phy.FallbackRateM)
		lp.SignalDbm, lp.InterferenceDbm, lp.SNRDb, lp.SINRDb = signalDbm, phy.MwToDbm(interferenceMw), snrDb, sinrDb
		return lp, nil
	}

	row, _ := selector.RowForIndex(newIdx)
	airtime := overlay.AirtimeFraction(tx)
	rate := selector.RateMbps(row, txNode.Link.Radio.BandwidthHz/1e6) * airtime
	per := phy.PER(sinrDb, row, e.Phy.PacketBits)

	return types.LinkParams{
		SignalDbm:       signalDbm,
		InterferenceDbm: phy.MwToDbm(interferenceMw),
		SNRDb:           snrDb,
		SINRDb:          sinrDb,
		MCSIndex:        newIdx,
		PER:             per,
		DelayMs:         delayMs,
		JitterMs:        jitterMs,
		LossPct:         100 * per,
		RateMbps:        rate,
	}, nil
}

// sinrDbOf implements step 4 of §4.4, clamping NaN/Inf to the "down"
// sentinel per the tie-break rule in §4.4.
func sinrDbOf(signalMw, noiseMw, interferenceMw float64) types.DbValue {
	denom := noiseMw + interferenceMw
	if denom <= 0 || signalMw <= 0 {
		return types.NegInf
	}
	v := 10 * math.Log10(signalMw/denom)
	if math.IsNaN(v) {
		return types.NegInf
	}
	return v
}

// referenceRangeMetres derives R_c, the distance at which a reference link
// of this radio configuration just meets the configured
// communication_range_snr_threshold_db (§4.3), via the standard
// log-distance path-loss relation solved for distance. A 1-metre
// reference loss of 40 dB (reasonable for indoor 2.4-5 GHz) and path-loss
// exponent 2 (free space) are assumed; the same approximation is used
// symmetrically for tx and rx radios so relative range comparisons within
// one topology remain consistent.
func referenceRangeMetres(tx, rx types.RadioConfig, macCfg types.MACConfig) float64 {
	if macCfg.Kind != types.MACCSMA {
		return 0
	}
	threshold := macCfg.CSMA.CommRangeSnrThresholdDb
	noiseDbm := phy.NoiseFloorDbm(rx.BandwidthHz, rx.NoiseFigureDb)
	targetSignalDbm := noiseDbm + threshold
	budgetDb := tx.TxPowerDbm - targetSignalDbm
	const refLossDb = 40.0
	const pathLossExponent = 2.0
	exponent := (budgetDb - refLossDb) / (10 * pathLossExponent)
	return math.Pow(10, exponent)
}

func positionsOf(topo *types.Topology) map[types.NodeId]types.Position {
	m := make(map[types.NodeId]types.Position, len(topo.Nodes))
	for name, n := range topo.Nodes {
		m[name] = n.Position
	}
	return m
}
