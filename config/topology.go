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

// Package config loads the YAML topology document and MCS CSV table into
// the closed sum-type model in package types (§6, Design Note §9).
package config

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/sine/sineerr"
	"github.com/openthread/sine/types"
)

type yamlRoot struct {
	Topology yamlTopology `yaml:"topology"`
}

type yamlTopology struct {
	SharedBridge yamlSharedBridge        `yaml:"shared_bridge"`
	Nodes        map[string]yamlNode     `yaml:"nodes"`
}

type yamlSharedBridge struct {
	Enabled       bool     `yaml:"enabled"`
	Name          string   `yaml:"name"`
	Nodes         []string `yaml:"nodes"`
	InterfaceName string   `yaml:"interface_name"`
}

type yamlNode struct {
	Interfaces map[string]yamlInterface `yaml:"interfaces"`
}

type yamlInterface struct {
	IPAddress   string           `yaml:"ip_address"`
	Wireless    *yamlWireless    `yaml:"wireless,omitempty"`
	FixedNetem  *yamlFixedNetem  `yaml:"fixed_netem,omitempty"`
}

type yamlWireless struct {
	Position     yamlPosition `yaml:"position"`
	FrequencyHz  float64      `yaml:"frequency"`
	BandwidthHz  float64      `yaml:"bandwidth"`
	TxPowerDbm   float64      `yaml:"tx_power_dbm"`
	Antenna      yamlAntenna  `yaml:"antenna"`
	NoiseFigureDb float64     `yaml:"noise_figure_db"`
	MCSTablePath string       `yaml:"mcs_table"`
	MAC          *yamlMAC     `yaml:"mac,omitempty"`
}

type yamlPosition struct {
	X, Y, Z float64
}

type yamlAntenna struct {
	Pattern string  `yaml:"pattern"`
	GainDbi float64 `yaml:"gain_dbi"`
}

type yamlMAC struct {
	CSMA *yamlCSMA `yaml:"csma,omitempty"`
	TDMA *yamlTDMA `yaml:"tdma,omitempty"`
}

type yamlCSMA struct {
	CommRangeSnrThresholdDb float64 `yaml:"communication_range_snr_threshold_db"`
	CarrierSenseMultiplier  float64 `yaml:"carrier_sense_multiplier"`
	TrafficLoad             float64 `yaml:"traffic_load"`
}

type yamlTDMA struct {
	Slots int               `yaml:"slots"`
	Owner map[int]string    `yaml:"owner"`
}

type yamlFixedNetem struct {
	DelayMs            float64 `yaml:"delay_ms"`
	JitterMs           float64 `yaml:"jitter_ms"`
	LossPercent        float64 `yaml:"loss_percent"`
	RateMbps           float64 `yaml:"rate_mbps"`
	CorrelationPercent float64 `yaml:"correlation_percent"`
}

// LoadTopology parses a YAML topology document into the closed
// types.Topology model, rejecting shared-bridge groups that mix MAC kinds
// (§9 Open Question, resolved per SPEC_FULL.md §4.3). It also returns the
// MCS table path declared on the wireless nodes: the table is process-wide
// read-only-after-load state (Design Note §9), so the schema's per-node
// "mcs_table" field is required to agree across every wireless node in a
// bridge group.
func LoadTopology(path string) (*types.Topology, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", sineerr.Wrap(sineerr.KindConfiguration, err, "read topology file %s", path)
	}
	var root yamlRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, "", sineerr.Wrap(sineerr.KindConfiguration, err, "parse topology yaml")
	}

	topo := &types.Topology{
		Bridge: types.SharedBridge{
			Name:          root.Topology.SharedBridge.Name,
			InterfaceName: root.Topology.SharedBridge.InterfaceName,
			Nodes:         root.Topology.SharedBridge.Nodes,
		},
		Nodes: make(map[types.NodeId]*types.Node, len(root.Topology.Nodes)),
	}

	var seenMAC *types.MACKind
	var mcsTablePath string
	for name, yn := range root.Topology.Nodes {
		node, err := convertNode(name, yn)
		if err != nil {
			return nil, "", err
		}
		if node.Wireless && node.Link.MAC.Kind != types.MACNone {
			if seenMAC == nil {
				k := node.Link.MAC.Kind
				seenMAC = &k
			} else if *seenMAC != node.Link.MAC.Kind {
				return nil, "", sineerr.New(sineerr.KindConfiguration,
					"node %s declares MAC kind %s but bridge group already uses %s: mixed-MAC channels are rejected",
					name, node.Link.MAC.Kind, *seenMAC)
			}
		}
		if p := wirelessMCSTablePath(yn); p != "" {
			if mcsTablePath == "" {
				mcsTablePath = p
			} else if mcsTablePath != p {
				return nil, "", sineerr.New(sineerr.KindConfiguration,
					"node %s declares mcs_table %q but bridge group already uses %q: the table is process-wide",
					name, p, mcsTablePath)
			}
		}
		topo.Nodes[name] = node
	}
	return topo, mcsTablePath, nil
}

func wirelessMCSTablePath(yn yamlNode) string {
	for _, iface := range yn.Interfaces {
		if iface.Wireless != nil && iface.Wireless.MCSTablePath != "" {
			return iface.Wireless.MCSTablePath
		}
	}
	return ""
}

func convertNode(name string, yn yamlNode) (*types.Node, error) {
	node := &types.Node{Name: name, Kind: types.NodeKindContainer, Link: types.LinkConfig{Kind: types.LinkConfigFixed}}
	for _, iface := range yn.Interfaces {
		node.BridgeIP = iface.IPAddress
		if iface.Wireless != nil {
			w := iface.Wireless
			node.Wireless = true
			node.Position = types.Position{X: w.Position.X, Y: w.Position.Y, Z: w.Position.Z}
			macCfg := types.DefaultMACConfig()
			if w.MAC != nil {
				var err error
				macCfg, err = convertMAC(*w.MAC)
				if err != nil {
					return nil, errors.Wrapf(err, "node %s", name)
				}
			}
			node.Link = types.LinkConfig{
				Kind: types.LinkConfigWireless,
				Radio: types.RadioConfig{
					FrequencyHz:   w.FrequencyHz,
					BandwidthHz:   w.BandwidthHz,
					TxPowerDbm:    w.TxPowerDbm,
					Antenna:       types.AntennaConfig{Pattern: w.Antenna.Pattern, GainDbi: w.Antenna.GainDbi},
					NoiseFigureDb: w.NoiseFigureDb,
				},
				MAC: macCfg,
			}
		} else if iface.FixedNetem != nil {
			f := iface.FixedNetem
			node.Link = types.LinkConfig{
				Kind: types.LinkConfigFixed,
				Fixed: types.FixedNetemParams{
					DelayMs: f.DelayMs, JitterMs: f.JitterMs, LossPercent: f.LossPercent,
					RateMbps: f.RateMbps, CorrelationPercent: f.CorrelationPercent,
				},
			}
		}
	}
	return node, nil
}

func convertMAC(y yamlMAC) (types.MACConfig, error) {
	switch {
	case y.CSMA != nil:
		cfg := types.DefaultCSMAConfig()
		if y.CSMA.CommRangeSnrThresholdDb != 0 {
			cfg.CommRangeSnrThresholdDb = y.CSMA.CommRangeSnrThresholdDb
		}
		if y.CSMA.CarrierSenseMultiplier != 0 {
			cfg.CarrierSenseMultiplier = y.CSMA.CarrierSenseMultiplier
		}
		if y.CSMA.TrafficLoad != 0 {
			cfg.TrafficLoad = y.CSMA.TrafficLoad
		}
		return types.MACConfig{Kind: types.MACCSMA, CSMA: cfg}, nil
	case y.TDMA != nil:
		if y.TDMA.Slots <= 0 {
			return types.MACConfig{}, sineerr.New(sineerr.KindConfiguration, "tdma requires slots > 0")
		}
		owners := make([]types.NodeId, y.TDMA.Slots)
		for slot, owner := range y.TDMA.Owner {
			if slot < 0 || slot >= y.TDMA.Slots {
				return types.MACConfig{}, sineerr.New(sineerr.KindConfiguration, "tdma slot %d out of range [0,%d)", slot, y.TDMA.Slots)
			}
			owners[slot] = owner
		}
		return types.MACConfig{Kind: types.MACTDMA, TDMA: types.TDMAConfig{Slots: y.TDMA.Slots, Owner: owners}}, nil
	default:
		return types.DefaultMACConfig(), nil
	}
}

// sortMCSRows sorts rows ascending by MinSNRDb, stable so duplicate
// thresholds keep file order as the tie-break (§6: "selector uses table
// order for tie-breaks").
func sortMCSRows(rows []types.MCSRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MinSNRDb < rows[j].MinSNRDb })
}
