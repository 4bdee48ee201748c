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

package config

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/openthread/sine/sineerr"
	"github.com/openthread/sine/types"
)

// mcsColumns is the required CSV header prefix (§6); fec_type and
// bandwidth_mhz are optional trailing columns (SPEC_FULL.md §4.2).
var mcsColumns = []string{"mcs_index", "modulation", "code_rate", "min_snr_db"}

// LoadMCSTable parses the CSV table described in §6 and returns it sorted
// ascending by MinSNRDb, duplicates preserved in file order.
func LoadMCSTable(path string) (types.MCSTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.MCSTable{}, sineerr.Wrap(sineerr.KindConfiguration, err, "open mcs table %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return types.MCSTable{}, sineerr.Wrap(sineerr.KindConfiguration, err, "read mcs table header")
	}
	cols := indexColumns(header)
	for _, required := range mcsColumns {
		if _, ok := cols[required]; !ok {
			return types.MCSTable{}, sineerr.New(sineerr.KindConfiguration, "mcs table missing required column %q", required)
		}
	}

	var rows []types.MCSRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.MCSTable{}, sineerr.Wrap(sineerr.KindConfiguration, err, "read mcs table row")
		}
		row, err := parseRow(cols, rec)
		if err != nil {
			return types.MCSTable{}, sineerr.Wrap(sineerr.KindConfiguration, err, "parse mcs table row")
		}
		rows = append(rows, row)
	}
	sortMCSRows(rows)
	return types.MCSTable{Rows: rows}, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[h] = i
	}
	return m
}

func parseRow(cols map[string]int, rec []string) (types.MCSRow, error) {
	get := func(name string) (string, bool) {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return "", false
		}
		return rec[idx], true
	}
	idxStr, _ := get("mcs_index")
	index, err := strconv.Atoi(idxStr)
	if err != nil {
		return types.MCSRow{}, err
	}
	modulation, _ := get("modulation")
	codeRateStr, _ := get("code_rate")
	codeRate, err := strconv.ParseFloat(codeRateStr, 64)
	if err != nil {
		return types.MCSRow{}, err
	}
	minSNRStr, _ := get("min_snr_db")
	minSNR, err := strconv.ParseFloat(minSNRStr, 64)
	if err != nil {
		return types.MCSRow{}, err
	}
	row := types.MCSRow{
		Index:         index,
		Modulation:    modulation,
		CodeRate:      codeRate,
		MinSNRDb:      minSNR,
		BitsPerSymbol: bitsPerSymbolOf(modulation),
	}
	if fec, ok := get("fec_type"); ok {
		row.FECType = fec
	}
	if bwStr, ok := get("bandwidth_mhz"); ok && bwStr != "" {
		if bw, err := strconv.ParseFloat(bwStr, 64); err == nil {
			row.BandwidthMHz = bw
		}
	}
	return row, nil
}

// bitsPerSymbolOf maps common modulation names to bits/symbol, used when
// the CSV doesn't carry the value explicitly (it only names the scheme).
func bitsPerSymbolOf(modulation string) float64 {
	switch modulation {
	case "BPSK":
		return 1
	case "QPSK":
		return 2
	case "16-QAM", "16QAM":
		return 4
	case "64-QAM", "64QAM":
		return 6
	case "256-QAM", "256QAM":
		return 8
	case "1024-QAM", "1024QAM":
		return 10
	default:
		return 2
	}
}
