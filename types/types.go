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

// Package types defines the common domain types shared across SiNE's
// channel-to-link translation pipeline.
package types

import (
	"fmt"
	"math"
)

// NodeId identifies a node by its topology name (container-lab node name).
type NodeId = string

// DbValue is a value expressed in decibels or dBm.
type DbValue = float64

// Position is a node's location in metres.
type Position struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance in metres to another position.
func (p Position) Distance(o Position) float64 {
	dx := o.X - p.X
	dy := o.Y - p.Y
	dz := o.Z - p.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LinkKey identifies a directed link between two nodes.
type LinkKey struct {
	Tx, Rx NodeId
}

func (k LinkKey) String() string {
	return fmt.Sprintf("%s->%s", k.Tx, k.Rx)
}

// Less gives the deterministic ordering used for tc-push sequencing
// (§4.6: "sorted by (tx, rx) index pair").
func (k LinkKey) Less(o LinkKey) bool {
	if k.Tx != o.Tx {
		return k.Tx < o.Tx
	}
	return k.Rx < o.Rx
}

// MACKind enumerates the supported MAC overlay variants (§4.3).
type MACKind int

const (
	MACNone MACKind = iota
	MACCSMA
	MACTDMA
)

func (k MACKind) String() string {
	switch k {
	case MACNone:
		return "none"
	case MACCSMA:
		return "csma"
	case MACTDMA:
		return "tdma"
	default:
		return "unknown"
	}
}

// GainMode resolves the antenna-gain Open Question in spec §4.1/§9.
type GainMode int

const (
	// GainModeSelectionOnly treats antenna gain as affecting only which
	// paths are reachable, never the link budget. This is the default.
	GainModeSelectionOnly GainMode = iota
	// GainModeAdditive adds antenna gain into the received power.
	GainModeAdditive
)

// NodeKind distinguishes container-lab traffic endpoints from the bridge host.
type NodeKind int

const (
	NodeKindContainer NodeKind = iota
	NodeKindBridgeHost
)
