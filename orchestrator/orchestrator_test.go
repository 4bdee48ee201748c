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

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/sine/channelclient"
	"github.com/openthread/sine/interference"
	"github.com/openthread/sine/mcs"
	"github.com/openthread/sine/phy"
	"github.com/openthread/sine/progctx"
	"github.com/openthread/sine/tcsynth"
	"github.com/openthread/sine/types"
)

func threeNodeTopology() *types.Topology {
	mk := func(name types.NodeId, x float64) *types.Node {
		return &types.Node{
			Name: name, Wireless: true, Position: types.Position{X: x},
			Link: types.LinkConfig{
				Kind:  types.LinkConfigWireless,
				Radio: types.RadioConfig{FrequencyHz: 2.4e9, BandwidthHz: 20e6, TxPowerDbm: 20, NoiseFigureDb: 6},
			},
		}
	}
	return &types.Topology{
		Bridge: types.SharedBridge{InterfaceName: "br0", Nodes: []types.NodeId{"n1", "n2", "n3"}},
		Nodes: map[types.NodeId]*types.Node{
			"n1": mk("n1", 0),
			"n2": mk("n2", 10),
			"n3": mk("n3", 20),
		},
	}
}

func mixedFixedTopology() *types.Topology {
	n1 := &types.Node{
		Name: "n1", Wireless: true, Position: types.Position{X: 0},
		Link: types.LinkConfig{
			Kind:  types.LinkConfigWireless,
			Radio: types.RadioConfig{FrequencyHz: 2.4e9, BandwidthHz: 20e6, TxPowerDbm: 20, NoiseFigureDb: 6},
		},
	}
	n2 := &types.Node{
		Name: "n2",
		Link: types.LinkConfig{
			Kind: types.LinkConfigFixed,
			Fixed: types.FixedNetemParams{
				DelayMs: 15, JitterMs: 2, LossPercent: 1.5, RateMbps: 50, CorrelationPercent: 10,
			},
		},
	}
	return &types.Topology{
		Bridge: types.SharedBridge{InterfaceName: "br0", Nodes: []types.NodeId{"n1", "n2"}},
		Nodes:  map[types.NodeId]*types.Node{"n1": n1, "n2": n2},
	}
}

func TestDeployWiresFixedNetemDestinationVerbatim(t *testing.T) {
	orch, _ := newOrchestrator()
	_, err := orch.Deploy(context.Background(), mixedFixedTopology())
	assert.NoError(t, err)

	lp, ok := orch.LinkParams("n1", "n2")
	assert.True(t, ok)
	assert.Equal(t, 15.0, lp.DelayMs)
	assert.Equal(t, 2.0, lp.JitterMs)
	assert.Equal(t, 1.5, lp.LossPct)
	assert.Equal(t, 50.0, lp.RateMbps)

	// A fixed-netem node also transmits: its own outgoing link uses its
	// verbatim configuration rather than the interference engine.
	lp2, ok := orch.LinkParams("n2", "n1")
	assert.True(t, ok)
	assert.Equal(t, 15.0, lp2.DelayMs)
	assert.Equal(t, 50.0, lp2.RateMbps)
}

func TestDeployInstallsBaseProgramForFixedNetemNode(t *testing.T) {
	orch, applier := newOrchestrator()
	_, err := orch.Deploy(context.Background(), mixedFixedTopology())
	assert.NoError(t, err)

	var sawFixedRate bool
	for _, prog := range applier.Applied {
		for _, c := range prog.Commands {
			if len(c.Args) > 1 && c.Args[0] == "class" && c.Args[1] == "add" {
				for _, a := range c.Args {
					if a == "50.000mbit" {
						sawFixedRate = true
					}
				}
			}
		}
	}
	assert.True(t, sawFixedRate, "expected a deploy-time class using the fixed-netem rate")
}

func newOrchestrator() (*Orchestrator, *tcsynth.NullApplier) {
	applier := &tcsynth.NullApplier{}
	engine := interference.NewEngine(phy.DefaultConfig(), channelclient.DirectSource{Model: channelclient.FreeSpaceModel{}})
	pctx := progctx.New(context.Background())
	orch := New(pctx, engine, applier, mcs.DefaultTable(), DefaultConfig())
	return orch, applier
}

func TestDeploySummaryCountsNodesAndLinks(t *testing.T) {
	orch, applier := newOrchestrator()
	summary, err := orch.Deploy(context.Background(), threeNodeTopology())
	assert.NoError(t, err)
	assert.Equal(t, 3, summary.Nodes)
	assert.Equal(t, 6, summary.Links) // 3 nodes * 2 other nodes each
	assert.Empty(t, summary.Failed)
	assert.Equal(t, StateUp, orch.State())
	assert.NotEmpty(t, applier.Applied) // base programs installed per node
}

func TestDeployRejectsWhenNotInInitState(t *testing.T) {
	orch, _ := newOrchestrator()
	topo := threeNodeTopology()
	_, err := orch.Deploy(context.Background(), topo)
	assert.NoError(t, err)

	_, err = orch.Deploy(context.Background(), topo)
	assert.Error(t, err)
}

func TestDeployRecordsLinkStateForEveryDirectedLink(t *testing.T) {
	orch, _ := newOrchestrator()
	_, err := orch.Deploy(context.Background(), threeNodeTopology())
	assert.NoError(t, err)

	for _, tx := range []types.NodeId{"n1", "n2", "n3"} {
		for _, rx := range []types.NodeId{"n1", "n2", "n3"} {
			if tx == rx {
				continue
			}
			_, ok := orch.LinkParams(tx, rx)
			assert.True(t, ok, "expected link state for %s->%s", tx, rx)
		}
	}
}

func TestUpdatePositionRejectedAfterDestroy(t *testing.T) {
	orch, _ := newOrchestrator()
	_, err := orch.Deploy(context.Background(), threeNodeTopology())
	assert.NoError(t, err)

	orch.Destroy()
	err = orch.UpdatePosition("n1", types.Position{X: 1})
	assert.Error(t, err)
}

func TestDestroyIsIdempotentAndClearsState(t *testing.T) {
	orch, _ := newOrchestrator()
	_, err := orch.Deploy(context.Background(), threeNodeTopology())
	assert.NoError(t, err)

	orch.Destroy()
	orch.Destroy() // must not panic or error

	assert.Equal(t, StateTeardown, orch.State())
	assert.Nil(t, orch.Topology())
	_, ok := orch.LinkParams("n1", "n2")
	assert.False(t, ok)
}

func TestRunRecomputesOnPositionUpdate(t *testing.T) {
	orch, _ := newOrchestrator()
	topo := threeNodeTopology()
	_, err := orch.Deploy(context.Background(), topo)
	assert.NoError(t, err)

	before, ok := orch.LinkParams("n1", "n2")
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	assert.NoError(t, orch.UpdatePosition("n2", types.Position{X: 10000}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		after, ok := orch.LinkParams("n1", "n2")
		if ok && !after.NearlyEqual(before, types.LinkParams{}) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("recompute did not update link state for n1->n2 within deadline")
}
