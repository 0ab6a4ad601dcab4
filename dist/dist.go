// Copyright 2026 Tandem ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"
	"log/slog"

	"github.com/tandem-ml/tandem/internal/dist"
	"github.com/tandem-ml/tandem/internal/logger"
)

// Process groups

// Group is a set of ranks that reduce scalar values together. A nil Group
// means single membership and reductions are local no-ops.
type Group = dist.Group

// Role names the parallelism axis a group reduces over.
type Role = dist.Role

const (
	// RoleData is the data parallel group: ranks holding replicas of the
	// same parameters.
	RoleData = dist.RoleData

	// RoleModel is the model parallel group: ranks holding shards of one
	// model instance.
	RoleModel = dist.RoleModel
)

// Provider resolves a Role to the Group handling it.
type Provider = dist.Provider

// SingleProcess is the Provider for non-distributed training. Every Role
// resolves to nil.
type SingleProcess = dist.SingleProcess

// Topology is a Provider backed by explicit data and model groups. Either
// may be nil when that axis has size one.
type Topology = dist.Topology

// In-process cluster

// LocalCluster coordinates reductions between goroutines in one process.
// Useful for tests and for demonstrating multi-rank behavior without a
// coordinator server.
type LocalCluster = dist.LocalCluster

// NewLocalCluster creates a cluster of the given size.
//
// Example:
//
//	cluster, err := dist.NewLocalCluster(4)
//	// hand cluster.Rank(i) to goroutine i
func NewLocalCluster(size int) (*LocalCluster, error) {
	return dist.NewLocalCluster(size)
}

// HTTP coordination

// HTTPGroup reduces against a coordinator server over HTTP.
type HTTPGroup = dist.HTTPGroup

// JoinSession registers this rank with the coordinator at baseURL and
// returns the group once the session is joined.
//
// Example:
//
//	g, err := dist.JoinSession(ctx, "http://127.0.0.1:7700", "run1.data.0", rank, worldSize)
func JoinSession(ctx context.Context, baseURL, session string, rank, size int) (*HTTPGroup, error) {
	return dist.JoinSession(ctx, baseURL, session, rank, size)
}

// Coordinator serves the reduction protocol for HTTPGroup clients. Mount it
// on an echo instance with Register, then serve:
//
//	co := dist.NewCoordinator(slog.Default())
//	e := echo.New()
//	co.Register(e)
type Coordinator = dist.Coordinator

// NewCoordinator creates a coordinator logging through log. A nil log
// discards diagnostics.
func NewCoordinator(log *slog.Logger) *Coordinator {
	if log == nil {
		return dist.NewCoordinator(logger.Discard())
	}
	return dist.NewCoordinator(logger.New(log.Handler()))
}
