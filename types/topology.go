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

// FixedNetemParams are user-specified constant link parameters that bypass
// C1-C4 entirely (§4.5 "Fixed-netem links").
type FixedNetemParams struct {
	DelayMs          float64
	JitterMs         float64
	LossPercent      float64
	RateMbps         float64
	CorrelationPercent float64
}

// LinkConfigKind distinguishes the two LinkConfig sum-type arms.
type LinkConfigKind int

const (
	LinkConfigWireless LinkConfigKind = iota
	LinkConfigFixed
)

// LinkConfig is the sum type over how a node's channel is modeled
// (Design Note §9: "Dynamic configuration objects -> enumerated structs").
type LinkConfig struct {
	Kind    LinkConfigKind
	Radio   RadioConfig
	MAC     MACConfig
	Fixed   FixedNetemParams
}

// Node is a topology participant (§3 Node).
type Node struct {
	Name     NodeId
	Kind     NodeKind
	Position Position // mutable after deploy
	Link     LinkConfig
	Wireless bool // true if Link.Kind == LinkConfigWireless
	BridgeIP string
}

// HasWireless reports whether this node participates in the RF model at all.
func (n *Node) HasWireless() bool {
	return n.Wireless
}

// SharedBridge describes the single L2 broadcast domain that all
// traffic-bearing nodes attach to (§6 "shared_bridge").
type SharedBridge struct {
	Name          string
	InterfaceName string
	Nodes         []NodeId
}

// Topology is the immutable-after-deploy configuration of the whole network
// (§3 Lifecycle: "Nodes and links are created at deploy time").
type Topology struct {
	Bridge SharedBridge
	Nodes  map[NodeId]*Node
}

// OrderedNodeNames returns bridge-group node names in deterministic order,
// matching the classid-assignment rule of §4.5.
func (t *Topology) OrderedNodeNames() []NodeId {
	names := make([]NodeId, 0, len(t.Bridge.Nodes))
	for _, n := range t.Bridge.Nodes {
		if _, ok := t.Nodes[n]; ok {
			names = append(names, n)
		}
	}
	return names
}
