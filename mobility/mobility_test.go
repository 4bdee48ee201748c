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

package mobility

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/sine/channelclient"
	"github.com/openthread/sine/interference"
	"github.com/openthread/sine/mcs"
	"github.com/openthread/sine/orchestrator"
	"github.com/openthread/sine/phy"
	"github.com/openthread/sine/progctx"
	"github.com/openthread/sine/tcsynth"
	"github.com/openthread/sine/types"
)

func testTopology() *types.Topology {
	wireless := &types.Node{
		Name: "n1", Wireless: true,
		Link: types.LinkConfig{Kind: types.LinkConfigWireless, Radio: types.RadioConfig{FrequencyHz: 2.4e9, BandwidthHz: 20e6}},
	}
	wired := &types.Node{Name: "n2"}
	return &types.Topology{
		Bridge: types.SharedBridge{Nodes: []types.NodeId{"n1", "n2"}, InterfaceName: "br0"},
		Nodes:  map[types.NodeId]*types.Node{"n1": wireless, "n2": wired},
	}
}

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	engine := interference.NewEngine(phy.DefaultConfig(), channelclient.DirectSource{Model: channelclient.FreeSpaceModel{}})
	pctx := progctx.New(context.Background())
	orch := orchestrator.New(pctx, engine, &tcsynth.NullApplier{}, mcs.DefaultTable(), orchestrator.DefaultConfig())
	_, err := orch.Deploy(context.Background(), testTopology())
	assert.NoError(t, err)
	return orch
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	assert.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	return resp
}

func TestHandleUpdateUnknownNode(t *testing.T) {
	srv := NewServer(newTestOrchestrator(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/mobility/update", updateRequest{Node: "ghost", X: 1})
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleUpdateRejectsWiredNode(t *testing.T) {
	srv := NewServer(newTestOrchestrator(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/mobility/update", updateRequest{Node: "n2", X: 1})
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleUpdateAccepted(t *testing.T) {
	srv := NewServer(newTestOrchestrator(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/mobility/update", updateRequest{Node: "n1", X: 5})
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleHealthReflectsTeardown(t *testing.T) {
	orch := newTestOrchestrator(t)
	srv := NewServer(orch)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	orch.Destroy()
	resp, err = http.Get(ts.URL + "/health")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 503, resp.StatusCode)
}

func TestHandleNodesListsOrdered(t *testing.T) {
	srv := NewServer(newTestOrchestrator(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/nodes")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	var nodes []nodeSummary
	assert.NoError(t, json.Unmarshal(data, &nodes))
	assert.Len(t, nodes, 2)
	assert.NotNil(t, nodes[0].Wireless)
}
