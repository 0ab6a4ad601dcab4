// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist provides the process groups mixed precision training uses to
// agree on overflow decisions and gradient norms across ranks.
//
// # Overview
//
// This package contains:
//   - Group: scalar all-reduce between the ranks of one parallelism axis
//   - Provider, Topology, SingleProcess: resolving a Role to its Group
//   - LocalCluster: in-process groups for goroutine ranks
//   - JoinSession and Coordinator: HTTP groups for multi-process runs
//
// # Basic Usage
//
//	import "github.com/tandem-ml/tandem/dist"
//
//	cluster, err := dist.NewLocalCluster(2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for rank := range 2 {
//	    go func() {
//	        topo := dist.Topology{Data: cluster.Rank(rank)}
//	        // pass topo as amp.Config.Groups
//	    }()
//	}
//
// # Reduction Semantics
//
// Groups reduce scalars, not tensors. Mixed precision training only needs
// two collective results per step: the max of the overflow flags and the
// sum of squared gradient norms. Every rank must call the same reductions
// in the same order; the sequence number is part of the protocol and a
// mismatch fails the call.
//
// A nil Group is valid everywhere a Group is accepted and reduces locally,
// so single-rank axes cost nothing.
//
// # Topologies
//
// A rank in a 2D layout belongs to one data parallel group and one model
// parallel group. Build a Topology with both and the optimizer reduces
// overflow flags over data first, then model, reaching a global decision:
//
//	topo := dist.Topology{Data: dataGroup, Model: modelGroup}
//
// For single-process training use SingleProcess, which resolves every role
// to nil:
//
//	opt, err := amp.NewMixedPrecisionOptimizer(base, scaler, backend, amp.Config{
//	    Groups: dist.SingleProcess{},
//	})
//
// # Multi-Process Runs
//
// One process serves the coordinator; each training process joins a named
// session per group it belongs to:
//
//	g, err := dist.JoinSession(ctx, "http://127.0.0.1:7700", "run1.data.0", rank, size)
//
// Sessions are complete when all ranks of the declared size have joined.
// The tandem CLI wraps both sides: "tandem coordinator" serves, and
// "tandem train --coordinator ..." joins.
//
// # Concurrency
//
// LocalCluster rank handles are not safe for concurrent use by multiple
// goroutines; give each goroutine its own rank. The cluster itself and the
// coordinator handle any number of concurrent ranks.
package dist
