/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package graph

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/streamlab-io/core/channel"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
	"github.com/streamlab-io/core/pipeline"
	"github.com/streamlab-io/core/resilience"
	"github.com/streamlab-io/core/stats"
)

const defaultCapacity = 10

// Compile validates doc against reg and builds an Idle pipeline.Pipeline
// identified by id. All of spec §6's validation errors are surfaced here,
// before any task is spawned, so a failed Compile never leaves a
// partially-started pipeline behind (spec §7 taxonomy item 1).
func Compile(id string, doc *Doc, reg *node.Registry) (*pipeline.Pipeline, error) {
	capacity := doc.PipelineConfig.ChannelCapacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	policy, err := channel.ParsePolicy(doc.PipelineConfig.OverflowPolicy)
	if err != nil {
		return nil, errors.Wrap(err, "graph: pipeline_config")
	}
	if len(doc.Nodes) == 0 {
		return nil, errors.New("graph: no nodes declared")
	}

	byID, factories, err := resolveNodes(doc.Nodes, reg)
	if err != nil {
		return nil, err
	}
	outgoing, indegree, err := resolveConnections(doc.Connections, byID)
	if err != nil {
		return nil, err
	}
	sourceID, err := uniqueSource(byID, indegree)
	if err != nil {
		return nil, err
	}
	if err := detectCycle(byID, outgoing); err != nil {
		return nil, err
	}
	if err := validateConfigs(byID, factories); err != nil {
		return nil, err
	}

	statsReg := stats.NewRegistry()
	b := pipeline.NewBuilder(id, statsReg)

	edges := make(map[string]*channel.Bounded, len(byID))
	for nid := range byID {
		edges[nid] = channel.NewBounded(capacity, policy)
	}
	b.SetTrigger(edges[sourceID])

	for nid, decl := range byID {
		if err := wireNode(b, statsReg, edges, outgoing, nid, decl, factories[nid]); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

func resolveNodes(decls []NodeDecl, reg *node.Registry) (map[string]NodeDecl, map[string]node.Factory, error) {
	byID := make(map[string]NodeDecl, len(decls))
	factories := make(map[string]node.Factory, len(decls))
	for _, n := range decls {
		if n.ID == "" {
			return nil, nil, errors.New("graph: node declared with empty id")
		}
		if _, dup := byID[n.ID]; dup {
			return nil, nil, errors.Errorf("graph: duplicate node id %q", n.ID)
		}
		registration, err := reg.Lookup(n.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "graph: node %q", n.ID)
		}
		byID[n.ID] = n
		factories[n.ID] = registration.Factory
	}
	return byID, factories, nil
}

func resolveConnections(conns []Connection, byID map[string]NodeDecl) (map[string][]Connection, map[string]int, error) {
	outgoing := make(map[string][]Connection)
	indegree := make(map[string]int, len(byID))
	for _, c := range conns {
		if _, ok := byID[c.From]; !ok {
			return nil, nil, errors.Errorf("graph: connection from unknown node %q", c.From)
		}
		if _, ok := byID[c.To]; !ok {
			return nil, nil, errors.Errorf("graph: connection to unknown node %q", c.To)
		}
		outgoing[c.From] = append(outgoing[c.From], c)
		indegree[c.To]++
	}
	return outgoing, indegree, nil
}

func uniqueSource(byID map[string]NodeDecl, indegree map[string]int) (string, error) {
	var sourceID string
	count := 0
	for id := range byID {
		if indegree[id] == 0 {
			count++
			sourceID = id
		}
	}
	switch {
	case count == 0:
		return "", errors.New("graph: no source node (every node has an incoming connection)")
	case count > 1:
		return "", errors.New("graph: multiple source nodes")
	}
	return sourceID, nil
}

func detectCycle(byID map[string]NodeDecl, outgoing map[string][]Connection) error {
	const white, gray, black = 0, 1, 2
	color := make(map[string]int, len(byID))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, c := range outgoing[id] {
			switch color[c.To] {
			case gray:
				return errors.Errorf("graph: cycle detected at node %q", c.To)
			case white:
				if err := visit(c.To); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range byID {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateConfigs constructs and configures a throwaway instance of
// every declared node, so a bad config document fails Compile instead of
// surfacing asynchronously on the pipeline's first Start (spec §7
// taxonomy item 1, spec §8 boundary behavior "a node whose configure
// fails"). The instance is discarded; the resilience wrapper builds and
// configures its own at task-spawn time.
func validateConfigs(byID map[string]NodeDecl, factories map[string]node.Factory) error {
	for nid, decl := range byID {
		n := factories[nid]()
		if err := n.Configure(decl.Config); err != nil {
			return errors.Wrapf(err, "graph: node %q: configure", nid)
		}
	}
	return nil
}

func wireNode(
	b *pipeline.Builder, statsReg *stats.Registry, edges map[string]*channel.Bounded,
	outgoing map[string][]Connection, nid string, decl NodeDecl, factory node.Factory,
) error {
	st := statsReg.Register(nid)
	cfg, err := resilienceConfig(decl)
	if err != nil {
		return errors.Wrapf(err, "graph: node %q", nid)
	}
	wrapper := resilience.New(nid, factory, decl.Config, cfg, st)

	nodeOut := make(chan frame.Frame)
	gatedIn := b.Gated(edges[nid].RecvCh())
	b.AddTask(nid, func(ctx context.Context) error {
		return wrapper.Run(ctx, gatedIn, nodeOut)
	})

	conns := outgoing[nid]
	switch len(conns) {
	case 0:
		b.AddTask(nid+".sink-drain", func(context.Context) error {
			for range nodeOut {
			}
			return nil
		})
	case 1:
		b.Forward(nid+"->"+conns[0].To, nodeOut, edges[conns[0].To])
	default:
		downs := make([]*channel.Bounded, len(conns))
		for i, c := range conns {
			downs[i] = edges[c.To]
		}
		splitter := channel.NewSplitter(nodeOut, downs)
		b.AddTask(nid+".split", splitter.Run)
	}
	return nil
}

func resilienceConfig(decl NodeDecl) (resilience.Config, error) {
	var cfg resilience.Config
	switch decl.ErrorPolicy {
	case "", "propagate":
		cfg.ErrorPolicy = resilience.Propagate
	case "skip_frame":
		cfg.ErrorPolicy = resilience.SkipFrame
	case "use_default":
		cfg.ErrorPolicy = resilience.UseDefault
	default:
		return cfg, errors.Errorf("unknown error_policy %q", decl.ErrorPolicy)
	}

	if decl.Restart == nil {
		cfg.Restart = resilience.RestartConfig{Policy: resilience.Never}
		return cfg, nil
	}
	r := decl.Restart
	rc := resilience.RestartConfig{
		BaseDelay:        time.Duration(r.BaseDelayMS) * time.Millisecond,
		MaxDelay:         time.Duration(r.MaxDelayMS) * time.Millisecond,
		BreakerThreshold: r.BreakerThreshold,
		BreakerWindow:    time.Duration(r.BreakerWindowMS) * time.Millisecond,
		BreakerCooldown:  time.Duration(r.BreakerCooldownMS) * time.Millisecond,
	}
	switch r.Policy {
	case "", "never":
		rc.Policy = resilience.Never
	case "immediate":
		rc.Policy = resilience.Immediate
	case "exponential":
		rc.Policy = resilience.Exponential
	case "circuit_breaker":
		rc.Policy = resilience.CircuitBreaker
	default:
		return cfg, errors.Errorf("unknown restart_policy %q", r.Policy)
	}
	cfg.Restart = rc
	return cfg, nil
}
