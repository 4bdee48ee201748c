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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadMCSTableSortsByThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcs.csv")
	csv := "mcs_index,modulation,code_rate,min_snr_db\n" +
		"1,QPSK,0.5,9\n" +
		"0,BPSK,0.5,2\n" +
		"2,16-QAM,0.75,15\n"
	assert.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	table, err := LoadMCSTable(path)
	assert.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, 0, table.Rows[0].Index)
	assert.Equal(t, 1, table.Rows[1].Index)
	assert.Equal(t, 2, table.Rows[2].Index)
	assert.Equal(t, 2.0, table.Rows[1].BitsPerSymbol) // QPSK -> 2 bits/symbol
}

func TestLoadMCSTableMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcs.csv")
	csv := "mcs_index,modulation,code_rate\n0,BPSK,0.5\n"
	assert.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	_, err := LoadMCSTable(path)
	assert.Error(t, err)
}

func TestLoadMCSTableMissingFile(t *testing.T) {
	_, err := LoadMCSTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestBitsPerSymbolOfKnownModulations(t *testing.T) {
	assert.Equal(t, 1.0, bitsPerSymbolOf("BPSK"))
	assert.Equal(t, 2.0, bitsPerSymbolOf("QPSK"))
	assert.Equal(t, 4.0, bitsPerSymbolOf("16-QAM"))
	assert.Equal(t, 6.0, bitsPerSymbolOf("64QAM"))
	assert.Equal(t, 2.0, bitsPerSymbolOf("unknown-scheme"))
}
