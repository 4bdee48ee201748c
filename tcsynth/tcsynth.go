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

// Package tcsynth synthesizes the per-node tc program (HTB class hierarchy
// + netem + tbf + flower filters) from per-destination link parameters
// (spec component C5). The synthesizer is a pure function of its inputs;
// Applier is the separate boundary that actually invokes `tc`.
package tcsynth

import (
	"fmt"
	"sort"

	"github.com/openthread/sine/types"
)

// DefaultClassID is the HTB classid reserved for broadcast/multicast/
// unknown-destination traffic (§4.5).
const DefaultClassID = 99

// DefaultCorrelationPercent is netem's burst-loss correlation default (§4.5).
const DefaultCorrelationPercent = 25.0

// Command is one tc invocation, expressed as argv (excluding the "tc"
// binary itself, added by the Applier).
type Command struct {
	Args []string
}

// Program is the ordered, deterministic list of tc commands for one node's
// shared-bridge interface.
type Program struct {
	Iface    string
	Commands []Command
}

// Applier executes a Program inside a node's network namespace. Kept
// separate from synthesis so the synthesizer stays a pure, testable
// function (§8 tc-determinism property); production implementations wrap
// `ip netns exec <ns> tc ...` or a direct netlink client.
type Applier interface {
	Apply(node types.NodeId, prog Program) error
}

// classIDOf assigns the deterministic classid for destination index k.
// Classid 1:1 is the ceiling class created once in BuildDeployProgram, so
// destination classes start at 1:2 (skipping the reserved DefaultClassID),
// matching §4.5.
func classIDOf(k int) int {
	id := k + 2
	if id >= DefaultClassID {
		id++
	}
	return id
}

func netemHandle(k int) string { return fmt.Sprintf("%x", 0x1000+k) }
func tbfHandle(k int) string   { return fmt.Sprintf("%x", 0x2000+k) }

// DestParams is the per-destination input to synthesis: the netem-facing
// fields of a LinkParams plus the destination's bridge IP.
type DestParams struct {
	Dest               types.NodeId
	DestIP             string
	DelayMs, JitterMs  float64
	LossPct            float64
	RateMbps           float64
	CorrelationPercent float64
}

// BuildDeployProgram synthesizes the full base program for one node: the
// HTB hierarchy with one class per destination plus a default class, one
// netem+tbf qdisc per destination, and the flower filters steering traffic
// into each class (§4.5).
//
// dests must be in the deterministic order established by
// types.Topology.OrderedNodeNames (minus the node itself) so that classid
// assignment is stable across deploy and recompute.
func BuildDeployProgram(iface string, ceilingMbps float64, defaultRateMbps float64, dests []DestParams) Program {
	var cmds []Command
	cmds = append(cmds, Command{Args: []string{"qdisc", "add", "dev", iface, "root", "handle", "1:", "htb", "default", itoa(DefaultClassID)}})
	cmds = append(cmds, Command{Args: []string{"class", "add", "dev", iface, "parent", "1:", "classid", "1:1", "htb", "rate", rateArg(ceilingMbps)}})

	for k, d := range dests {
		classID := classIDOf(k)
		cmds = append(cmds, destClassCommands(iface, classID, d)...)
	}

	cmds = append(cmds, Command{Args: []string{"class", "add", "dev", iface, "parent", "1:1", "classid", fmt.Sprintf("1:%d", DefaultClassID), "htb", "rate", rateArg(defaultRateMbps)}})

	for k, d := range dests {
		classID := classIDOf(k)
		cmds = append(cmds, Command{Args: []string{
			"filter", "add", "dev", iface, "protocol", "ip", "parent", "1:", "prio", "1",
			"flower", "dst_ip", d.DestIP, "classid", fmt.Sprintf("1:%d", classID),
		}})
	}

	return Program{Iface: iface, Commands: cmds}
}

func destClassCommands(iface string, classID int, d DestParams) []Command {
	corr := d.CorrelationPercent
	if corr <= 0 {
		corr = DefaultCorrelationPercent
	}
	k := classID
	nh := netemHandle(k)
	th := tbfHandle(k)
	return []Command{
		{Args: []string{"class", "add", "dev", iface, "parent", "1:1", "classid", fmt.Sprintf("1:%d", classID),
			"htb", "rate", rateArg(d.RateMbps), "ceil", rateArg(d.RateMbps)}},
		{Args: []string{"qdisc", "add", "dev", iface, "parent", fmt.Sprintf("1:%d", classID), "handle", nh + ":",
			"netem", "delay", msArg(d.DelayMs), msArg(d.JitterMs), "loss", pctArg(d.LossPct), pctArg(corr)}},
		{Args: []string{"qdisc", "add", "dev", iface, "parent", nh + ":1", "handle", th + ":",
			"tbf", "rate", rateArg(d.RateMbps), "burst", "32kbit", "latency", "50ms"}},
	}
}

// BuildUpdateProgram replaces only the netem parameters, the class rate and
// the tbf rate for one destination, matching §4.5: "filters and class
// topology are created once at deploy and never deleted while the topology
// is stable."
func BuildUpdateProgram(iface string, classIndex int, d DestParams) Program {
	classID := classIDOf(classIndex)
	nh := netemHandle(classID)
	th := tbfHandle(classID)
	corr := d.CorrelationPercent
	if corr <= 0 {
		corr = DefaultCorrelationPercent
	}
	return Program{Iface: iface, Commands: []Command{
		{Args: []string{"class", "change", "dev", iface, "parent", "1:1", "classid", fmt.Sprintf("1:%d", classID),
			"htb", "rate", rateArg(d.RateMbps), "ceil", rateArg(d.RateMbps)}},
		{Args: []string{"qdisc", "change", "dev", iface, "parent", fmt.Sprintf("1:%d", classID), "handle", nh + ":",
			"netem", "delay", msArg(d.DelayMs), msArg(d.JitterMs), "loss", pctArg(d.LossPct), pctArg(corr)}},
		{Args: []string{"qdisc", "change", "dev", iface, "parent", nh + ":1", "handle", th + ":",
			"tbf", "rate", rateArg(d.RateMbps), "burst", "32kbit", "latency", "50ms"}},
	}}
}

// SortedDestParams orders dests deterministically by destination name,
// matching the (tx,rx) ordering rule used for tc-push sequencing (§4.6).
func SortedDestParams(dests []DestParams) []DestParams {
	out := make([]DestParams, len(dests))
	copy(out, dests)
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out
}

func itoa(v int) string { return fmt.Sprintf("%d", v) }
func rateArg(mbps float64) string {
	if mbps <= 0 {
		mbps = 0.1
	}
	return fmt.Sprintf("%.3fmbit", mbps)
}
func msArg(ms float64) string  { return fmt.Sprintf("%.3fms", ms) }
func pctArg(p float64) string  { return fmt.Sprintf("%.2f%%", p) }
