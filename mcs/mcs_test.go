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

package mcs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/sine/types"
)

func TestSelectDownWhenBelowLowestThreshold(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	idx := s.Select(-10, types.DownIndex)
	assert.Equal(t, types.DownIndex, idx)
}

func TestSelectInitialPicksHighestMetThreshold(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	idx := s.Select(20, types.DownIndex)
	assert.Equal(t, 6, idx) // row 6 has MinSNRDb 20, row 7 needs 25
}

func TestSelectUpgradeRequiresHysteresis(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	prev := s.Select(20, types.DownIndex) // index 6, threshold 20
	assert.Equal(t, 6, prev)

	// Row 7 needs min_snr_db=25; with hysteresis=2 the selector should not
	// upgrade until SINR reaches 25+2=27 at or above the upgrade row's own
	// threshold minus h, i.e. sinr - h >= 25.
	same := s.Select(26.5, prev) // 26.5 - 2 = 24.5 < 25, no upgrade
	assert.Equal(t, prev, same)

	upgraded := s.Select(27, prev) // 27 - 2 = 25 >= 25, upgrade allowed
	assert.Equal(t, 7, upgraded)
}

func TestSelectDowngradeIsImmediate(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	prev := s.Select(20, types.DownIndex) // index 6
	down := s.Select(15, prev)            // below row 6's own 20dB threshold
	assert.Less(t, down, prev)
}

func TestSelectUpgradeNeverRanksBelowPrev(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	prev := s.Select(9, types.DownIndex) // row 2, threshold 9
	next := s.Select(40, prev)           // large SINR jump
	assert.GreaterOrEqual(t, next, prev)
}

func TestRateMbpsUsesLinkBandwidthWhenRowBandwidthUnset(t *testing.T) {
	s := NewSelector(DefaultTable(), DefaultHysteresisDb, DefaultOverhead)
	row, ok := s.RowForIndex(2)
	assert.True(t, ok)
	rate := s.RateMbps(row, 20) // 20 MHz link bandwidth
	assert.InDelta(t, 20*2*0.75*DefaultOverhead, rate, 1e-9)
}

func TestEmptyTableAlwaysDown(t *testing.T) {
	s := NewSelector(types.MCSTable{}, DefaultHysteresisDb, DefaultOverhead)
	assert.Equal(t, types.DownIndex, s.Select(100, types.DownIndex))
}
