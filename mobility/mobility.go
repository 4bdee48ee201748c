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

// Package mobility implements the REST API that accepts live position
// updates and enqueues them into the orchestrator (spec component C7).
package mobility

import (
	"encoding/json"
	"net/http"

	"github.com/openthread/sine/logger"
	"github.com/openthread/sine/orchestrator"
	"github.com/openthread/sine/sineerr"
	"github.com/openthread/sine/types"
)

// Server is the mobility HTTP API (§6, port 8001 by default).
type Server struct {
	Orch *orchestrator.Orchestrator
}

func NewServer(orch *orchestrator.Orchestrator) *Server {
	return &Server{Orch: orch}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/mobility/update", s.handleUpdate)
	mux.HandleFunc("GET /api/mobility/position/{node}", s.handlePosition)
	mux.HandleFunc("GET /api/nodes", s.handleNodes)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

type updateRequest struct {
	Node types.NodeId `json:"node"`
	X    float64      `json:"x"`
	Y    float64      `json:"y"`
	Z    float64      `json:"z"`
}

// handleUpdate validates the node, enqueues the position, and responds
// 200 as soon as enqueued — fire-and-forget per §4.7.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	topo := s.Orch.Topology()
	if topo == nil {
		http.Error(w, "orchestrator is shutting down", http.StatusServiceUnavailable)
		return
	}
	node, ok := topo.Nodes[req.Node]
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}
	if !node.HasWireless() {
		http.Error(w, "node has no wireless capability", http.StatusBadRequest)
		return
	}

	pos := types.Position{X: req.X, Y: req.Y, Z: req.Z}
	if err := s.Orch.UpdatePosition(req.Node, pos); err != nil {
		if kind, ok := sineerr.KindOf(err); ok && kind == sineerr.KindShutdown {
			http.Error(w, "orchestrator is tearing down", http.StatusServiceUnavailable)
			return
		}
		logger.Errorf("enqueue position update for %s: %v", req.Node, err)
		http.Error(w, "failed to enqueue update", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("node")
	topo := s.Orch.Topology()
	if topo == nil {
		http.Error(w, "orchestrator is shutting down", http.StatusServiceUnavailable)
		return
	}
	node, ok := topo.Nodes[name]
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"node": name, "x": node.Position.X, "y": node.Position.Y, "z": node.Position.Z,
	})
}

type nodeSummary struct {
	Node     types.NodeId    `json:"node"`
	Position types.Position  `json:"position"`
	Wireless *wirelessSummary `json:"wireless,omitempty"`
}

type wirelessSummary struct {
	FrequencyHz float64 `json:"freq"`
	BandwidthHz float64 `json:"bw"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	topo := s.Orch.Topology()
	if topo == nil {
		writeJSON(w, http.StatusOK, []nodeSummary{})
		return
	}
	out := make([]nodeSummary, 0, len(topo.Nodes))
	for _, name := range topo.OrderedNodeNames() {
		n := topo.Nodes[name]
		summary := nodeSummary{Node: name, Position: n.Position}
		if n.HasWireless() {
			summary.Wireless = &wirelessSummary{FrequencyHz: n.Link.Radio.FrequencyHz, BandwidthHz: n.Link.Radio.BandwidthHz}
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Orch.State() == orchestrator.StateTeardown {
		http.Error(w, "teardown", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
