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

// Package orchestrator implements the single-writer reactor that owns
// per-link state and MCS memory, drives the interference engine and tc
// synthesizer on deploy and on position updates, and exposes the
// deploy/update_position/recompute/destroy operations of spec component C6.
//
// After Deploy, the reactor goroutine (Run) is the only writer of linkState
// and mcsMemory apart from Destroy, which resets them; every access goes
// through mu. Mobility position updates arrive over a bounded channel;
// a newer position update for the same node supersedes a pending older one
// (coalesced by node identity, per §5's ordering guarantee). Per-recompute
// fan-out (channel-server RPCs, tc pushes) runs on a worker pool via
// golang.org/x/sync/errgroup; only the reactor goroutine merges results
// back into state.
package orchestrator

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openthread/sine/interference"
	"github.com/openthread/sine/logger"
	"github.com/openthread/sine/mcs"
	"github.com/openthread/sine/progctx"
	"github.com/openthread/sine/sineerr"
	"github.com/openthread/sine/tcsynth"
	"github.com/openthread/sine/types"
)

// State is the per-orchestrator lifecycle state machine of §4.6.
type State int

const (
	StateInit State = iota
	StateUp
	StateTeardown
)

// LinkFailure records one link that could not be pushed during a deploy or
// recompute pass (§7: "multi-line report listing which links failed and why").
type LinkFailure struct {
	Link types.LinkKey
	Err  error
}

// DeploySummary is returned by Deploy (SPEC_FULL.md §4.6).
type DeploySummary struct {
	Nodes    int
	Links    int
	Failed   []LinkFailure
	Duration time.Duration
}

// Config bundles the orchestrator's tunables.
type Config struct {
	Workers          int // worker-pool size; default min(16, NumCPU*4)
	RecomputeEpsilon types.LinkParams
	Hysteresis       types.DbValue
	Overhead         float64
	TCRetries        int // default 3
	TCRetryBaseDelay time.Duration
}

func DefaultConfig() Config {
	w := runtime.NumCPU() * 4
	if w > 16 {
		w = 16
	}
	if w < 1 {
		w = 1
	}
	return Config{
		Workers:          w,
		RecomputeEpsilon: types.DefaultEpsilon(),
		Hysteresis:       mcs.DefaultHysteresisDb,
		Overhead:         mcs.DefaultOverhead,
		TCRetries:        3,
		TCRetryBaseDelay: 50 * time.Millisecond,
	}
}

type positionUpdate struct {
	node types.NodeId
	pos  types.Position
}

// Orchestrator is the C6 reactor.
type Orchestrator struct {
	cfg      Config
	engine   *interference.Engine
	applier  tcsynth.Applier
	selector *mcs.Selector // process-wide, immutable after load (Design Note §9)

	mu    sync.Mutex // guards state, topo, linkState and mcsMemory
	state State
	topo  *types.Topology

	events chan positionUpdate
	ctx    *progctx.ProgCtx

	// written by Deploy's workers, then by the reactor (Run); reset by Destroy
	linkState map[types.LinkKey]types.LinkParams
	mcsMemory map[types.LinkKey]int
}

// New builds an Orchestrator over a fixed MCS table. Call Deploy before
// any position update.
func New(pctx *progctx.ProgCtx, engine *interference.Engine, applier tcsynth.Applier, table types.MCSTable, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		engine:    engine,
		applier:   applier,
		selector:  mcs.NewSelector(table, cfg.Hysteresis, cfg.Overhead),
		state:     StateInit,
		events:    make(chan positionUpdate, 256),
		ctx:       pctx,
		linkState: make(map[types.LinkKey]types.LinkParams),
		mcsMemory: make(map[types.LinkKey]int),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Deploy installs the base tc program on every node and pushes initial
// parameters for every directed link (§4.6 deploy). All-or-nothing for
// structural failures; per-link parameter push failures are recorded in
// DeploySummary.Failed but do not abort the deploy.
func (o *Orchestrator) Deploy(ctx context.Context, topo *types.Topology) (DeploySummary, error) {
	start := time.Now()
	o.mu.Lock()
	if o.state != StateInit {
		o.mu.Unlock()
		return DeploySummary{}, sineerr.New(sineerr.KindConfiguration, "deploy called outside INIT state")
	}
	o.topo = topo
	o.mu.Unlock()

	names := topo.OrderedNodeNames()

	var failed []LinkFailure
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, txName := range names {
		txName := txName
		node := topo.Nodes[txName]
		dests := otherNames(names, txName)
		if err := o.installBaseProgram(txName, dests); err != nil {
			o.Destroy()
			return DeploySummary{}, sineerr.Wrap(sineerr.KindTCFailure, err, "install base tc program for %s", txName)
		}
		for idx, rxName := range dests {
			idx, rxName := idx, rxName
			g.Go(func() error {
				key := types.LinkKey{Tx: txName, Rx: rxName}
				rxNode := topo.Nodes[rxName]
				var lp types.LinkParams
				var err error
				if fixed, ok := fixedParamsFor(node, rxNode); ok {
					lp = linkParamsFromFixed(fixed)
				} else {
					lp, err = o.engine.Evaluate(gctx, topo, o.selector, txName, rxName, types.DownIndex)
				}
				if err != nil {
					mu.Lock()
					failed = append(failed, LinkFailure{Link: key, Err: err})
					mu.Unlock()
					return nil
				}
				if err := o.pushWithRetry(txName, idx, rxName, lp); err != nil {
					mu.Lock()
					failed = append(failed, LinkFailure{Link: key, Err: err})
					mu.Unlock()
					return nil
				}
				mu.Lock()
				o.linkState[key] = lp
				o.mcsMemory[key] = lp.MCSIndex
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return DeploySummary{}, err
	}

	o.mu.Lock()
	o.state = StateUp
	o.mu.Unlock()

	logger.Infof("deploy complete: %d nodes, %d links, %d failed", len(names), len(names)*(len(names)-1), len(failed))
	return DeploySummary{
		Nodes:    len(names),
		Links:    len(names) * maxInt(len(names)-1, 0),
		Failed:   failed,
		Duration: time.Since(start),
	}, nil
}

// installBaseProgram creates the HTB hierarchy, the N-1 per-destination
// classes, and the flower filters for one node (§4.6 deploy, §4.5).
func (o *Orchestrator) installBaseProgram(node types.NodeId, dests []types.NodeId) error {
	txNode := o.topo.Nodes[node]
	destParams := make([]tcsynth.DestParams, len(dests))
	for i, d := range dests {
		ip := ""
		rxNode := o.topo.Nodes[d]
		if rxNode != nil {
			ip = rxNode.BridgeIP
		}
		destParams[i] = tcsynth.DestParams{Dest: d, DestIP: ip, RateMbps: 0.1}
		if fixed, ok := fixedParamsFor(txNode, rxNode); ok {
			destParams[i].DelayMs, destParams[i].JitterMs = fixed.DelayMs, fixed.JitterMs
			destParams[i].LossPct, destParams[i].RateMbps = fixed.LossPercent, fixed.RateMbps
			destParams[i].CorrelationPercent = fixed.CorrelationPercent
		}
	}
	prog := tcsynth.BuildDeployProgram(o.topo.Bridge.InterfaceName, 1000, 0.1, destParams)
	return o.applier.Apply(node, prog)
}

// UpdatePosition enqueues the node's new position; the reactor (Run) writes
// it into the topology and recomputes, and a newer update for the same node
// coalesces with a pending one (§4.6 update_position, §5 ordering guarantee).
func (o *Orchestrator) UpdatePosition(node types.NodeId, pos types.Position) error {
	if o.State() == StateTeardown {
		return sineerr.New(sineerr.KindShutdown, "orchestrator is tearing down")
	}
	select {
	case o.events <- positionUpdate{node: node, pos: pos}:
		return nil
	case <-o.ctx.Done():
		return sineerr.New(sineerr.KindShutdown, "orchestrator is shutting down")
	}
}

// Run starts the reactor loop; it owns linkState/mcsMemory exclusively
// until ctx is cancelled. Callers typically run this in its own goroutine
// registered under the shared progctx.ProgCtx.
func (o *Orchestrator) Run(ctx context.Context) {
	o.ctx.WaitAdd("orchestrator.reactor", 1)
	defer o.ctx.WaitDone("orchestrator.reactor")

	pending := make(map[types.NodeId]types.Position)
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ev := <-o.events:
			pending[ev.node] = ev.pos // coalesce by node identity
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			batch := pending
			pending = make(map[types.NodeId]types.Position)
			o.applyPositionBatch(ctx, batch)
		case <-ctx.Done():
			o.mu.Lock()
			o.state = StateTeardown
			o.mu.Unlock()
			return
		}
	}
}

func (o *Orchestrator) applyPositionBatch(ctx context.Context, batch map[types.NodeId]types.Position) {
	for node, pos := range batch {
		if n := o.topo.Nodes[node]; n != nil {
			n.Position = pos
		}
	}
	for node := range batch {
		o.recompute(ctx, node)
	}
}

// recompute re-evaluates every directed link whose tx, rx, or any
// interferer equals changedNode. Under the shared-bridge model interference
// is global, so this is every link in the bridge group (§4.6).
func (o *Orchestrator) recompute(ctx context.Context, changedNode types.NodeId) {
	names := o.topo.OrderedNodeNames()
	type pair struct {
		tx, rx types.NodeId
		idx    int
	}
	var pairs []pair
	for _, tx := range names {
		dests := otherNames(names, tx)
		for idx, rx := range dests {
			pairs = append(pairs, pair{tx, rx, idx})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return types.LinkKey{Tx: pairs[i].tx, Rx: pairs[i].rx}.Less(types.LinkKey{Tx: pairs[j].tx, Rx: pairs[j].rx})
	})

	type result struct {
		key types.LinkKey
		idx int
		lp  types.LinkParams
		err error
	}
	results := make([]result, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			key := types.LinkKey{Tx: p.tx, Rx: p.rx}
			if fixed, ok := fixedParamsFor(o.topo.Nodes[p.tx], o.topo.Nodes[p.rx]); ok {
				results[i] = result{key: key, idx: p.idx, lp: linkParamsFromFixed(fixed)}
				return nil
			}
			o.mu.Lock()
			prev, ok := o.mcsMemory[key]
			o.mu.Unlock()
			if !ok {
				prev = types.DownIndex
			}
			lp, err := o.engine.Evaluate(gctx, o.topo, o.selector, p.tx, p.rx, prev)
			results[i] = result{key: key, idx: p.idx, lp: lp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// Pushes are applied in the deterministic (tx,rx) order computed above,
	// on the reactor goroutine only (§4.6 ordering guarantee). linkState and
	// mcsMemory are still guarded by mu because Destroy (called from the
	// mobility server's shutdown goroutine) may reset them concurrently.
	for _, r := range results {
		if r.err != nil {
			logger.Errorf("recompute %s failed: %v", r.key, r.err)
			continue
		}
		o.mu.Lock()
		prevLp, existed := o.linkState[r.key]
		torndown := o.state == StateTeardown
		o.mu.Unlock()
		if torndown {
			return
		}
		if existed && prevLp.NearlyEqual(r.lp, o.cfg.RecomputeEpsilon) {
			continue
		}
		if err := o.pushWithRetry(r.key.Tx, r.idx, r.key.Rx, r.lp); err != nil {
			logger.Errorf("tc push %s failed after retries: %v", r.key, err)
			continue // keep previous parameters live (§4.5 failure semantics)
		}
		o.mu.Lock()
		o.linkState[r.key] = r.lp
		o.mcsMemory[r.key] = r.lp.MCSIndex
		o.mu.Unlock()
	}
}

// pushWithRetry applies an update Program for one destination, retrying up
// to cfg.TCRetries times with exponential backoff (§4.5, §5).
func (o *Orchestrator) pushWithRetry(tx types.NodeId, destIdx int, rx types.NodeId, lp types.LinkParams) error {
	ip := ""
	if n := o.topo.Nodes[rx]; n != nil {
		ip = n.BridgeIP
	}
	d := tcsynth.DestParams{
		Dest: rx, DestIP: ip,
		DelayMs: lp.DelayMs, JitterMs: lp.JitterMs, LossPct: lp.LossPct, RateMbps: lp.RateMbps,
	}
	if fixed, ok := fixedParamsFor(o.topo.Nodes[tx], o.topo.Nodes[rx]); ok {
		d.CorrelationPercent = fixed.CorrelationPercent
	}
	prog := tcsynth.BuildUpdateProgram(o.topo.Bridge.InterfaceName, destIdx, d)

	var err error
	delay := o.cfg.TCRetryBaseDelay
	for attempt := 0; attempt <= o.cfg.TCRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		if err = o.applier.Apply(tx, prog); err == nil {
			return nil
		}
	}
	return sineerr.Wrap(sineerr.KindTCFailure, err, "tc push to %s for dest %s failed after %d retries", tx, rx, o.cfg.TCRetries)
}

// Destroy tears down the orchestrator's view of the topology; best-effort,
// idempotent (§4.6 destroy, §8 round-trip law).
func (o *Orchestrator) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateTeardown
	o.topo = nil
	o.linkState = make(map[types.LinkKey]types.LinkParams)
	o.mcsMemory = make(map[types.LinkKey]int)
}

// LinkParams returns the last-applied parameters for a directed link, used
// by tests.
func (o *Orchestrator) LinkParams(tx, rx types.NodeId) (types.LinkParams, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lp, ok := o.linkState[types.LinkKey{Tx: tx, Rx: rx}]
	return lp, ok
}

// Topology returns the deployed topology (nil before Deploy / after Destroy).
func (o *Orchestrator) Topology() *types.Topology {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.topo
}

// fixedParamsFor returns the verbatim fixed-netem parameters that govern
// directed link tx->rx and whether this link bypasses C1-C4 entirely (§4.5
// "Fixed-netem links bypass C1-C4: parameters are taken verbatim from
// configuration"). The transmitter's own fixed configuration takes
// precedence, since it owns the tc classes being installed; a fixed-netem
// destination of an otherwise-wireless transmitter is used when the
// transmitter has no fixed config of its own, because C1-C4 cannot run
// without radio parameters on both ends.
func fixedParamsFor(txNode, rxNode *types.Node) (types.FixedNetemParams, bool) {
	if txNode != nil && txNode.Link.Kind == types.LinkConfigFixed {
		return txNode.Link.Fixed, true
	}
	if rxNode != nil && rxNode.Link.Kind == types.LinkConfigFixed {
		return rxNode.Link.Fixed, true
	}
	return types.FixedNetemParams{}, false
}

// linkParamsFromFixed converts verbatim fixed-netem configuration into the
// LinkParams shape the reactor pushes through tc. MCSIndex is DownIndex
// because MCS selection never runs for a fixed link (§4.5).
func linkParamsFromFixed(f types.FixedNetemParams) types.LinkParams {
	return types.LinkParams{
		SignalDbm:       types.NegInf,
		InterferenceDbm: types.NegInf,
		SNRDb:           types.NegInf,
		SINRDb:          types.NegInf,
		MCSIndex:        types.DownIndex,
		PER:             f.LossPercent / 100,
		DelayMs:         f.DelayMs,
		JitterMs:        f.JitterMs,
		LossPct:         f.LossPercent,
		RateMbps:        f.RateMbps,
	}
}

func otherNames(names []types.NodeId, self types.NodeId) []types.NodeId {
	out := make([]types.NodeId, 0, len(names)-1)
	for _, n := range names {
		if n != self {
			out = append(out, n)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
