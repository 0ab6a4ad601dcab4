// Package dist provides the process-group abstraction the training core
// uses to agree on scalar values across ranks, plus two transports: an
// in-process LocalCluster for tests and single-host demos, and an HTTP
// coordinator for multi-process runs.
//
// The training core only ever reduces scalars: the overflow flag travels as
// a max-reduction so one rank's NaN skips the step everywhere, and squared
// gradient norms travel as a sum-reduction for global clipping. Tensor
// collectives (gradient averaging, parameter sharding) belong to the data
// loader and model layers, not here.
package dist

import "context"

// Role names the process group a reduction runs over. A rank typically
// belongs to one group per role.
type Role int

const (
	// RoleData is the data-parallel group: ranks holding replicas of the
	// same parameters.
	RoleData Role = iota
	// RoleModel is the model-parallel group: ranks holding partitions of
	// the same layer.
	RoleModel
)

func (r Role) String() string {
	switch r {
	case RoleData:
		return "data"
	case RoleModel:
		return "model"
	default:
		return "unknown"
	}
}

// Group is one communicator. All ranks of a group must issue the same
// reductions in the same order; the transport matches calls by arrival
// order per operation.
type Group interface {
	// Rank returns this process's index within the group.
	Rank() int

	// Size returns the number of ranks in the group.
	Size() int

	// AllReduceMax replaces *value with the maximum across all ranks.
	// It blocks until every rank has contributed or ctx is done.
	AllReduceMax(ctx context.Context, value *float32) error

	// AllReduceSum replaces *value with the sum across all ranks.
	// It blocks until every rank has contributed or ctx is done.
	AllReduceSum(ctx context.Context, value *float64) error
}

// Provider hands out the groups a rank belongs to. A nil Group means the
// rank has no peers for that role and reductions are local no-ops.
type Provider interface {
	Group(role Role) Group
}

// SingleProcess is the Provider for non-distributed training. Every role
// resolves to no group.
type SingleProcess struct{}

func (SingleProcess) Group(Role) Group { return nil }

// Topology binds the groups one rank belongs to. Unset roles resolve to no
// group.
type Topology struct {
	Data  Group
	Model Group
}

func (t Topology) Group(role Role) Group {
	switch role {
	case RoleData:
		return t.Data
	case RoleModel:
		return t.Model
	default:
		return nil
	}
}

var (
	_ Provider = SingleProcess{}
	_ Provider = Topology{}
)
