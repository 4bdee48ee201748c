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

// Package channelclient implements the RPC client the interference engine
// uses to obtain propagation paths from the (out-of-scope) ray-tracing
// channel server, plus a companion in-process Server for local testing and
// the `channel-server` CLI subcommand (§6).
package channelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/sine/sineerr"
	"github.com/openthread/sine/types"
)

// DefaultTimeout is the per-request channel-server timeout (§5: "default 5s").
const DefaultTimeout = 5 * time.Second

type wirePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type wireAntenna struct {
	Pattern string  `json:"pattern"`
	GainDbi float64 `json:"gain_dbi"`
}

type pathsRequest struct {
	TxPosition  wirePosition `json:"tx_position"`
	RxPosition  wirePosition `json:"rx_position"`
	FrequencyHz float64      `json:"frequency_hz"`
	BandwidthHz float64      `json:"bandwidth_hz"`
	Antenna     wireAntenna  `json:"antenna"`
}

type wirePath struct {
	ComplexGainRe    float64  `json:"complex_gain_re"`
	ComplexGainIm    float64  `json:"complex_gain_im"`
	DelaySec         float64  `json:"delay_s"`
	InteractionTypes []string `json:"interaction_types"`
}

type pathsResponse struct {
	Paths    []wirePath `json:"paths"`
	NumPaths int        `json:"num_paths"`
}

// Client calls a remote channel server's POST /paths endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

// NewClient builds a Client with the spec-default timeout and a plain
// http.Client (no third-party HTTP client library appears anywhere in the
// example pack, so this follows the teacher's own reach for net/http).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
		Timeout: DefaultTimeout,
	}
}

// Paths implements interference.PathSource against a remote channel server.
func (c *Client) Paths(ctx context.Context, tx, rx types.RadioConfig, txPos, rxPos types.Position) (types.PathSet, error) {
	req := pathsRequest{
		TxPosition:  wirePosition{txPos.X, txPos.Y, txPos.Z},
		RxPosition:  wirePosition{rxPos.X, rxPos.Y, rxPos.Z},
		FrequencyHz: tx.FrequencyHz,
		BandwidthHz: tx.BandwidthHz,
		Antenna:     wireAntenna{tx.Antenna.Pattern, tx.Antenna.GainDbi},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return types.PathSet{}, errors.Wrap(err, "marshal paths request")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+"/paths", bytes.NewReader(body))
	if err != nil {
		return types.PathSet{}, errors.Wrap(err, "build paths request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return types.PathSet{}, sineerr.Wrap(sineerr.KindExternalUnavailable, err, "channel server unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.PathSet{}, sineerr.New(sineerr.KindExternalUnavailable, "channel server returned status %d", resp.StatusCode)
	}

	var out pathsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.PathSet{}, errors.Wrap(err, "decode paths response")
	}
	ps := types.PathSet{Paths: make([]types.Path, len(out.Paths))}
	for i, p := range out.Paths {
		ps.Paths[i] = types.Path{GainRe: p.ComplexGainRe, GainIm: p.ComplexGainIm, DelaySec: p.DelaySec}
	}
	return ps, nil
}

// PropagationModel computes a PathSet for a tx/rx pair without a network
// round trip. FreeSpaceModel and FixedModel are the implementations shipped
// (the real ray-tracer is explicitly out of scope per §1).
type PropagationModel interface {
	Paths(tx, rx types.RadioConfig, txPos, rxPos types.Position) types.PathSet
}

// FreeSpaceModel returns a single line-of-sight path whose gain follows
// the Friis free-space equation; used by the companion Server below and
// directly by tests that don't want to stand up an HTTP server.
type FreeSpaceModel struct{}

func (FreeSpaceModel) Paths(tx, rx types.RadioConfig, txPos, rxPos types.Position) types.PathSet {
	d := txPos.Distance(rxPos)
	if d <= 0 {
		d = 0.01
	}
	lambda := speedOfLight / tx.FrequencyHz
	// Friis: gain (linear, amplitude) = lambda / (4*pi*d)
	gain := lambda / (4 * math.Pi * d)
	delaySec := d / speedOfLight
	return types.PathSet{Paths: []types.Path{{GainRe: gain, GainIm: 0, DelaySec: delaySec}}}
}

// FixedModel always returns the same PathSet, useful for deterministic
// unit tests of components downstream of the channel client.
type FixedModel struct {
	Paths_ types.PathSet
}

func (f FixedModel) Paths(_, _ types.RadioConfig, _, _ types.Position) types.PathSet {
	return f.Paths_
}

const speedOfLight = 299792458.0

// DirectSource adapts a PropagationModel to the interference engine's
// PathSource interface, for running without a separate channel-server
// process (e.g. `deploy` with no -channel-server flag, or `render`).
type DirectSource struct {
	Model PropagationModel
}

func (s DirectSource) Paths(_ context.Context, tx, rx types.RadioConfig, txPos, rxPos types.Position) (types.PathSet, error) {
	return s.Model.Paths(tx, rx, txPos, rxPos), nil
}

// Server is a companion in-process implementation of the /paths contract,
// used by the `channel-server` CLI subcommand so SiNE is runnable
// end-to-end without a real ray tracer.
type Server struct {
	Model PropagationModel
}

func NewServer(model PropagationModel) *Server {
	if model == nil {
		model = FreeSpaceModel{}
	}
	return &Server{Model: model}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /paths", s.handlePaths)
	return mux
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	tx := types.RadioConfig{FrequencyHz: req.FrequencyHz, BandwidthHz: req.BandwidthHz,
		Antenna: types.AntennaConfig{Pattern: req.Antenna.Pattern, GainDbi: req.Antenna.GainDbi}}
	txPos := types.Position{X: req.TxPosition.X, Y: req.TxPosition.Y, Z: req.TxPosition.Z}
	rxPos := types.Position{X: req.RxPosition.X, Y: req.RxPosition.Y, Z: req.RxPosition.Z}

	ps := s.Model.Paths(tx, types.RadioConfig{}, txPos, rxPos)
	resp := pathsResponse{Paths: make([]wirePath, len(ps.Paths)), NumPaths: len(ps.Paths)}
	for i, p := range ps.Paths {
		resp.Paths[i] = wirePath{ComplexGainRe: p.GainRe, ComplexGainIm: p.GainIm, DelaySec: p.DelaySec}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
