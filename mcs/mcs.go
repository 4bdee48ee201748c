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

// Package mcs implements the modulation/coding-scheme threshold table and
// its per-link hysteresis selection rule (spec component C2).
package mcs

import "github.com/openthread/sine/types"

// Selector wraps a read-only MCSTable (process-wide, immutable after load
// per Design Note §9) with the hysteresis band used for every selection.
type Selector struct {
	table      types.MCSTable
	hysteresis types.DbValue
	overhead   float64 // eta_overhead, default 0.8
}

const (
	// DefaultHysteresisDb is h in §4.2.
	DefaultHysteresisDb = 2.0
	// DefaultOverhead is eta_overhead in §4.2.
	DefaultOverhead = 0.8
)

// DefaultTable returns a representative 802.11-style MCS ladder, used when
// no wireless node in the topology names an `mcs_table`: BPSK through
// 256-QAM at code rates from 1/2 to 5/6. A per-node `modulation` key is not
// read by the topology loader, so it does not replace this table.
func DefaultTable() types.MCSTable {
	return types.MCSTable{Rows: []types.MCSRow{
		{Index: 0, Modulation: "BPSK", CodeRate: 0.5, MinSNRDb: 2.0, BitsPerSymbol: 1},
		{Index: 1, Modulation: "QPSK", CodeRate: 0.5, MinSNRDb: 5.0, BitsPerSymbol: 2},
		{Index: 2, Modulation: "QPSK", CodeRate: 0.75, MinSNRDb: 9.0, BitsPerSymbol: 2},
		{Index: 3, Modulation: "16-QAM", CodeRate: 0.5, MinSNRDb: 11.0, BitsPerSymbol: 4},
		{Index: 4, Modulation: "16-QAM", CodeRate: 0.75, MinSNRDb: 15.0, BitsPerSymbol: 4},
		{Index: 5, Modulation: "64-QAM", CodeRate: 0.667, MinSNRDb: 18.0, BitsPerSymbol: 6},
		{Index: 6, Modulation: "64-QAM", CodeRate: 0.75, MinSNRDb: 20.0, BitsPerSymbol: 6},
		{Index: 7, Modulation: "64-QAM", CodeRate: 0.833, MinSNRDb: 25.0, BitsPerSymbol: 6},
		{Index: 8, Modulation: "256-QAM", CodeRate: 0.75, MinSNRDb: 29.0, BitsPerSymbol: 8},
		{Index: 9, Modulation: "256-QAM", CodeRate: 0.833, MinSNRDb: 33.0, BitsPerSymbol: 8},
	}}
}

// NewSelector builds a Selector from a table already sorted ascending by
// MinSNRDb (the config loader is responsible for sorting on load).
func NewSelector(table types.MCSTable, hysteresisDb types.DbValue, overhead float64) *Selector {
	if hysteresisDb <= 0 {
		hysteresisDb = DefaultHysteresisDb
	}
	if overhead <= 0 {
		overhead = DefaultOverhead
	}
	return &Selector{table: table, hysteresis: hysteresisDb, overhead: overhead}
}

// Select applies the hysteresis rule of §4.2 and returns the new index
// (types.DownIndex if no row's threshold is met).
//
//	k_up = largest index with min_snr_db <= S - h
//	k_dn = largest index with min_snr_db <= S          (no hysteresis on downgrade)
//	prev == -1            -> k_dn
//	S < table[prev].min   -> k_dn (strict downgrade)
//	otherwise             -> max(prev, k_up)
func (s *Selector) Select(sinrDb types.DbValue, prev int) int {
	rows := s.table.Rows
	if len(rows) == 0 {
		return types.DownIndex
	}
	kDn := largestIndexAtOrBelow(rows, sinrDb)
	if kDn < 0 {
		return types.DownIndex
	}
	if prev == types.DownIndex {
		return rows[kDn].Index
	}
	prevRow, ok := s.rowForIndex(prev)
	if !ok {
		return rows[kDn].Index
	}
	if sinrDb < prevRow.MinSNRDb {
		return rows[kDn].Index
	}
	kUp := largestIndexAtOrBelow(rows, sinrDb-s.hysteresis)
	if kUp < 0 {
		return prev
	}
	upRow := rows[kUp]
	if rankOf(rows, upRow.Index) > rankOf(rows, prev) {
		return upRow.Index
	}
	return prev
}

// RateMbps computes rate_mbps = B_MHz * bits_per_symbol * code_rate * eta (§4.2).
// When the row's own BandwidthMHz is zero, linkBandwidthMHz (the link's
// globally configured RF bandwidth) is used instead, per SPEC_FULL.md §4.2.
func (s *Selector) RateMbps(row types.MCSRow, linkBandwidthMHz float64) float64 {
	bw := row.BandwidthMHz
	if bw <= 0 {
		bw = linkBandwidthMHz
	}
	return bw * row.BitsPerSymbol * row.CodeRate * s.overhead
}

// RowForIndex exposes the table row for a chosen MCS index.
func (s *Selector) RowForIndex(index int) (types.MCSRow, bool) {
	return s.rowForIndex(index)
}

func (s *Selector) rowForIndex(index int) (types.MCSRow, bool) {
	for _, r := range s.table.Rows {
		if r.Index == index {
			return r, true
		}
	}
	return types.MCSRow{}, false
}

// largestIndexAtOrBelow returns the position (in rows) of the
// highest-threshold row whose MinSNRDb <= s, or -1 if none qualifies.
// Rows must already be sorted ascending by MinSNRDb.
func largestIndexAtOrBelow(rows []types.MCSRow, s types.DbValue) int {
	best := -1
	for i, r := range rows {
		if r.MinSNRDb <= s {
			best = i
		} else {
			break
		}
	}
	return best
}

// rankOf returns the ascending-SNR rank of an MCS index within rows, used
// to compare "which index is the better/higher one" without assuming
// indices are contiguous. Returns -1 for an index not present in rows.
func rankOf(rows []types.MCSRow, index int) int {
	for i, r := range rows {
		if r.Index == index {
			return i
		}
	}
	return -1
}
