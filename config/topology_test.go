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

	"github.com/openthread/sine/types"
)

func writeTopology(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "topo.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const validTopology = `
topology:
  shared_bridge:
    enabled: true
    name: br0
    interface_name: br0
    nodes: [n1, n2]
  nodes:
    n1:
      interfaces:
        eth0:
          ip_address: 10.0.0.1
          wireless:
            position: {x: 0, y: 0, z: 0}
            frequency: 2400000000
            bandwidth: 20000000
            tx_power_dbm: 20
            noise_figure_db: 6
            mcs_table: table.csv
            mac:
              csma:
                communication_range_snr_threshold_db: 40
                carrier_sense_multiplier: 2.5
                traffic_load: 0.3
    n2:
      interfaces:
        eth0:
          ip_address: 10.0.0.2
          wireless:
            position: {x: 10, y: 0, z: 0}
            frequency: 2400000000
            bandwidth: 20000000
            tx_power_dbm: 20
            noise_figure_db: 6
            mcs_table: table.csv
            mac:
              csma:
                communication_range_snr_threshold_db: 40
                carrier_sense_multiplier: 2.5
                traffic_load: 0.3
`

func TestLoadTopologyValid(t *testing.T) {
	path := writeTopology(t, validTopology)
	topo, mcsPath, err := LoadTopology(path)
	assert.NoError(t, err)
	assert.Equal(t, "table.csv", mcsPath)
	assert.Len(t, topo.Nodes, 2)
	assert.True(t, topo.Nodes["n1"].Wireless)
	assert.Equal(t, types.MACCSMA, topo.Nodes["n1"].Link.MAC.Kind)
}

const mixedMACTopology = `
topology:
  shared_bridge:
    name: br0
    interface_name: br0
    nodes: [n1, n2]
  nodes:
    n1:
      interfaces:
        eth0:
          ip_address: 10.0.0.1
          wireless:
            position: {x: 0, y: 0, z: 0}
            frequency: 2400000000
            bandwidth: 20000000
            tx_power_dbm: 20
            mac:
              csma: {}
    n2:
      interfaces:
        eth0:
          ip_address: 10.0.0.2
          wireless:
            position: {x: 10, y: 0, z: 0}
            frequency: 2400000000
            bandwidth: 20000000
            tx_power_dbm: 20
            mac:
              tdma:
                slots: 4
`

func TestLoadTopologyRejectsMixedMAC(t *testing.T) {
	path := writeTopology(t, mixedMACTopology)
	_, _, err := LoadTopology(path)
	assert.Error(t, err)
}

func TestLoadTopologyMissingFile(t *testing.T) {
	_, _, err := LoadTopology("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestConvertMACDefaultsWhenAbsent(t *testing.T) {
	cfg, err := convertMAC(yamlMAC{})
	assert.NoError(t, err)
	assert.Equal(t, types.MACNone, cfg.Kind)
}

func TestConvertMACRejectsZeroSlotTDMA(t *testing.T) {
	_, err := convertMAC(yamlMAC{TDMA: &yamlTDMA{Slots: 0}})
	assert.Error(t, err)
}

const fixedNetemTopology = `
topology:
  shared_bridge:
    enabled: true
    name: br0
    interface_name: br0
    nodes: [n1, n2]
  nodes:
    n1:
      interfaces:
        eth0:
          ip_address: 10.0.0.1
          wireless:
            position: {x: 0, y: 0, z: 0}
            frequency: 2400000000
            bandwidth: 20000000
            tx_power_dbm: 20
            noise_figure_db: 6
            mcs_table: table.csv
    n2:
      interfaces:
        eth0:
          ip_address: 10.0.0.2
          fixed_netem:
            delay_ms: 15
            jitter_ms: 2
            loss_percent: 1.5
            rate_mbps: 50
            correlation_percent: 10
`

func TestLoadTopologyParsesFixedNetem(t *testing.T) {
	path := writeTopology(t, fixedNetemTopology)
	topo, _, err := LoadTopology(path)
	assert.NoError(t, err)
	n2 := topo.Nodes["n2"]
	assert.False(t, n2.Wireless)
	assert.Equal(t, types.LinkConfigFixed, n2.Link.Kind)
	assert.Equal(t, 15.0, n2.Link.Fixed.DelayMs)
	assert.Equal(t, 2.0, n2.Link.Fixed.JitterMs)
	assert.Equal(t, 1.5, n2.Link.Fixed.LossPercent)
	assert.Equal(t, 50.0, n2.Link.Fixed.RateMbps)
	assert.Equal(t, 10.0, n2.Link.Fixed.CorrelationPercent)
}

func TestSortMCSRowsStable(t *testing.T) {
	rows := []types.MCSRow{
		{Index: 2, MinSNRDb: 10},
		{Index: 0, MinSNRDb: 5},
		{Index: 1, MinSNRDb: 5},
	}
	sortMCSRows(rows)
	assert.Equal(t, 0, rows[0].Index) // stable: index 0 stays before index 1 at equal threshold
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, 2, rows[2].Index)
}
